// Package questiongen talks to the external question-generation service and
// parses its raw text output into structured question drafts.
package questiongen

import (
	"regexp"
	"strings"

	"github.com/chainlms-net/lms/core"
)

var (
	dividerRe       = regexp.MustCompile(`(?m)^\s*(-{3,}|\*{3,})\s*$`)
	blockSplitRe    = regexp.MustCompile(`\n\s*\n`)
	correctAnswerRe = regexp.MustCompile(`(?i)^correct answer\s*[:\-]?\s*([A-D])\b`)
	correctInlineRe = regexp.MustCompile(`(?i)\(correct\)`)
)

// Parse converts a generation-service text blob into question drafts.
//
// The blob is split into blocks on blank-line runs and markdown dividers
// (both upstream formats appear in the wild). Each block parses
// independently; a malformed block is dropped silently, never escalated.
// The same blob always yields the same drafts in the same block order.
func Parse(blob string) []core.QuestionDraft {
	blob = strings.ReplaceAll(blob, "\r\n", "\n")
	blob = dividerRe.ReplaceAllString(blob, "\n")

	var drafts []core.QuestionDraft
	for _, block := range blockSplitRe.Split(blob, -1) {
		if d, ok := parseBlock(block); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

// parseBlock parses one question block: a question line, two or more option
// lines, and optionally a "Correct Answer: X" line or an inline marker on
// the correct option.
func parseBlock(block string) (core.QuestionDraft, bool) {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 3 {
		// Needs at least a question line and two options.
		return core.QuestionDraft{}, false
	}

	text := lines[0]
	answerLetter := -1
	var options []string
	for _, line := range lines[1:] {
		if m := correctAnswerRe.FindStringSubmatch(line); m != nil {
			if answerLetter >= 0 {
				// Two answer lines make the marker unresolvable.
				return core.QuestionDraft{}, false
			}
			answerLetter = int(strings.ToUpper(m[1])[0] - 'A')
			continue
		}
		options = append(options, line)
	}
	if len(options) < 2 {
		return core.QuestionDraft{}, false
	}

	// Inline markers take precedence: the first option carrying one wins.
	correct := -1
	for i, opt := range options {
		if correctInlineRe.MatchString(opt) || strings.HasSuffix(opt, "*") {
			correct = i
			options[i] = stripMarker(opt)
			break
		}
	}

	if correct < 0 && answerLetter >= 0 {
		if answerLetter >= len(options) {
			// The letter points past the option list; unresolvable.
			return core.QuestionDraft{}, false
		}
		correct = answerLetter
	}
	if correct < 0 {
		// No marker anywhere. Defaulting to the first option mirrors the
		// generation service's dominant layout, but a format drift would
		// silently produce wrong answer keys.
		correct = 0
	}

	return core.QuestionDraft{
		Text:          text,
		Options:       options,
		CorrectOption: correct,
	}, true
}

func stripMarker(opt string) string {
	opt = correctInlineRe.ReplaceAllString(opt, "")
	opt = strings.TrimSuffix(strings.TrimSpace(opt), "*")
	return strings.TrimSpace(opt)
}

// Package txflow sequences state-changing contract calls: validate, submit,
// await confirmation, run follow-up reads, and classify failures into one
// shared taxonomy for every caller.
package txflow

import (
	"errors"
	"strings"

	"github.com/chainlms-net/lms/wallet"
)

// Category is the user-facing classification of a failed operation.
type Category string

const (
	CategoryNone             Category = ""
	CategoryAlreadyEnrolled  Category = "AlreadyEnrolled"
	CategoryAlreadySubmitted Category = "AlreadySubmitted"
	CategoryExamEnded        Category = "ExamEnded"
	CategoryNotEnrolled      Category = "NotEnrolled"
	CategoryInvalidCourse    Category = "InvalidCourse"
	CategoryUserRejected     Category = "UserRejectedSignature"
	CategoryValidation       Category = "ValidationError"
	CategoryNetwork          Category = "NetworkError"
	CategoryUnknown          Category = "Unknown"
)

// Benign reports whether the category reflects a consistent, recoverable
// state rather than a defect. Benign failures are presented as informational,
// success-adjacent outcomes.
func (c Category) Benign() bool {
	return c == CategoryAlreadyEnrolled || c == CategoryAlreadySubmitted
}

// ValidationFailure is a pre-network input rejection. It never reaches the
// chain and resolves synchronously.
type ValidationFailure struct {
	Reason string
	cause  error
}

func (e *ValidationFailure) Error() string {
	return "validation failed: " + e.Reason
}

func (e *ValidationFailure) Unwrap() error {
	return e.cause
}

func validationErr(reason string, cause error) *ValidationFailure {
	return &ValidationFailure{Reason: reason, cause: cause}
}

// revertRules maps known revert phrases to categories, in priority order.
// The table is data-driven so new revert reasons are one line, not a new
// branch. Patterns are matched case-insensitively as substrings.
var revertRules = []struct {
	pattern  string
	category Category
}{
	{"already enrolled", CategoryAlreadyEnrolled},
	{"already submitted", CategoryAlreadySubmitted},
	{"exam ended", CategoryExamEnded},
	{"exam time has ended", CategoryExamEnded},
	{"not enrolled", CategoryNotEnrolled},
	{"invalid course", CategoryInvalidCourse},
}

// Classify reduces a raw failure to its category. Candidate text is
// inspected in order of preference: the structured revert reason, then the
// nested provider message, then the generic error message.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return CategoryValidation
	}
	if wallet.IsUserRejected(err) {
		return CategoryUserRejected
	}

	var candidates []string
	var pe *wallet.Error
	if errors.As(err, &pe) {
		if pe.Reason != "" {
			candidates = append(candidates, pe.Reason)
		}
		if pe.Message != "" {
			candidates = append(candidates, pe.Message)
		}
	}
	candidates = append(candidates, err.Error())

	for _, text := range candidates {
		lower := strings.ToLower(text)
		for _, rule := range revertRules {
			if strings.Contains(lower, rule.pattern) {
				return rule.category
			}
		}
	}

	if pe != nil && pe.Code == wallet.CodeNetwork && pe.Reason == "" {
		return CategoryNetwork
	}
	return CategoryUnknown
}

// messageFor renders the short human-readable text for a classified failure.
// Unknown failures surface the raw message.
func messageFor(c Category, err error) string {
	switch c {
	case CategoryAlreadyEnrolled:
		return "Already enrolled in this course"
	case CategoryAlreadySubmitted:
		return "Exam already submitted"
	case CategoryExamEnded:
		return "Exam time has ended; submissions are no longer accepted"
	case CategoryNotEnrolled:
		return "Not enrolled in this course"
	case CategoryInvalidCourse:
		return "Unknown course"
	case CategoryUserRejected:
		return "Signature request was declined"
	case CategoryValidation:
		var vf *ValidationFailure
		if errors.As(err, &vf) {
			return vf.Reason
		}
		return "Invalid input"
	case CategoryNetwork:
		return "Network error, please retry"
	default:
		if err != nil {
			return err.Error()
		}
		return "Unknown error"
	}
}

package questiongen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorrectAnswerLine(t *testing.T) {
	blob := `What is 2+2?
3
4
5
6
Correct Answer: B

Capital of France?
Paris
Rome
Berlin
Madrid
Correct Answer: A`

	drafts := Parse(blob)
	require.Len(t, drafts, 2)

	assert.Equal(t, "What is 2+2?", drafts[0].Text)
	assert.Equal(t, []string{"3", "4", "5", "6"}, drafts[0].Options)
	assert.Equal(t, 1, drafts[0].CorrectOption)

	assert.Equal(t, "Capital of France?", drafts[1].Text)
	assert.Equal(t, 0, drafts[1].CorrectOption)
}

func TestParseInlineMarkers(t *testing.T) {
	blob := `Pick the even number.
1
4 (correct)
7

Pick the prime.
4
6
5*`

	drafts := Parse(blob)
	require.Len(t, drafts, 2)

	assert.Equal(t, 1, drafts[0].CorrectOption)
	assert.Equal(t, "4", drafts[0].Options[1], "marker must be stripped")

	assert.Equal(t, 2, drafts[1].CorrectOption)
	assert.Equal(t, "5", drafts[1].Options[2])
}

func TestParseMarkdownDividers(t *testing.T) {
	blob := "Q one?\nA\nB\nCorrect Answer: A\n---\nQ two?\nC\nD\nCorrect Answer: B"

	drafts := Parse(blob)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Q one?", drafts[0].Text)
	assert.Equal(t, "Q two?", drafts[1].Text)
	assert.Equal(t, 1, drafts[1].CorrectOption)
}

func TestParseCRLF(t *testing.T) {
	blob := "Q?\r\nA\r\nB\r\nCorrect Answer: B\r\n\r\nQ2?\r\nC\r\nD\r\nCorrect Answer: A"

	drafts := Parse(blob)
	require.Len(t, drafts, 2)
	assert.Equal(t, 1, drafts[0].CorrectOption)
}

func TestParseDropsMalformedBlocks(t *testing.T) {
	blob := `Good question?
A
B
Correct Answer: A

only a question line

One option only?
A

Letter out of range?
A
B
Correct Answer: D`

	drafts := Parse(blob)
	require.Len(t, drafts, 1, "malformed blocks are dropped, not surfaced")
	assert.Equal(t, "Good question?", drafts[0].Text)
}

func TestParseDefaultsToFirstOption(t *testing.T) {
	blob := "No marker here?\nA\nB\nC"

	drafts := Parse(blob)
	require.Len(t, drafts, 1)
	assert.Equal(t, 0, drafts[0].CorrectOption)
}

func TestParseInlineMarkerWinsOverLetter(t *testing.T) {
	blob := "Q?\nA\nB (correct)\nCorrect Answer: A"

	drafts := Parse(blob)
	require.Len(t, drafts, 1)
	assert.Equal(t, 1, drafts[0].CorrectOption)
}

func TestParseDeterministic(t *testing.T) {
	blob := "Q?\nA\nB\nCorrect Answer: B\n\nQ2?\nC*\nD"
	first := Parse(blob)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Parse(blob))
	}
}

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("\n\n\n"))
}

package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	doc := sampleDoc + `
export const sleepAzkar = [
  { id: 1, arabic: "a", transliteration: "b", translation: "c", count: 1 },
  { id: 3, arabic: "a", transliteration: "b", translation: "c", count: 1 },
  { id: 3, arabic: "a", transliteration: "b", translation: "c", count: 1 },
];

export const brokenAzkar = [
  { id: 1, arabic: "a" },
];
`
	p := &Patcher{Schema: DefaultSchema()}
	reports := p.Inspect(doc)
	require.Len(t, reports, 4)

	assert.Equal(t, "morningAzkar", reports[0].Name)
	assert.True(t, reports[0].OK())
	assert.Len(t, reports[0].Records, 3)

	sleep := reports[2]
	assert.False(t, sleep.OK())
	assert.NoError(t, sleep.Err)
	assert.Equal(t, []int{3}, sleep.Duplicates)
	assert.Equal(t, []int{2}, sleep.Gaps)

	broken := reports[3]
	assert.ErrorIs(t, broken.Err, ErrMalformedRecord)
	assert.ErrorContains(t, broken.Err, `block "brokenAzkar"`)
	assert.False(t, broken.OK())
}

func TestInspectSkipsNonRecordArrays(t *testing.T) {
	doc := "export const MILESTONES = [10, 25] as const;\n\n" + sampleDoc
	p := &Patcher{Schema: DefaultSchema()}
	reports := p.Inspect(doc)
	require.Len(t, reports, 3)

	assert.Equal(t, "MILESTONES", reports[0].Name)
	assert.True(t, reports[0].Skipped)
	assert.NoError(t, reports[0].Err)
	assert.False(t, reports[0].OK())

	assert.True(t, reports[1].OK())
	assert.True(t, reports[2].OK())

	out, err := p.AppendBlock(doc, "MILESTONES", []Record{{ID: 1, Primary: "a", Transliteration: "b", Translation: "c", Count: 1}})
	assert.ErrorIs(t, err, ErrBlockExists)
	assert.Equal(t, doc, out)
}

func TestEscapeRawLineBreaks(t *testing.T) {
	corrupted := "const note = \"outside\";\n" +
		"export const x = [\n" +
		"  { id: 1, arabic: \"line one\r\nline two\nline three\", transliteration: \"a \\\"q\\\" b\", translation: \"c\", count: 1 },\n" +
		"];\n" +
		"export const y = [\n" +
		"  { id: 1, arabic: \"ok\", transliteration: \"split\nhere\", translation: \"c\", count: 1 },\n" +
		"];\n"

	_, _, err := PatchDocument(corrupted, "x", nil)
	require.ErrorIs(t, err, ErrMalformedRecord, "repair is never implicit")

	fixed, n := EscapeRawLineBreaks(corrupted)
	assert.Equal(t, 3, n)

	x := parseBlock(t, fixed, "x")
	assert.Equal(t, "line one\nline two\nline three", x[0].Primary)
	assert.Equal(t, `a "q" b`, x[0].Transliteration)
	y := parseBlock(t, fixed, "y")
	assert.Equal(t, "split\nhere", y[0].Transliteration)

	assert.True(t, strings.HasPrefix(fixed, "const note = \"outside\";\n"))

	again, n := EscapeRawLineBreaks(fixed)
	assert.Zero(t, n)
	assert.Equal(t, fixed, again)
}

func TestCollapseBlankLines(t *testing.T) {
	doubled := "export const x = [\n\n  {\n\n    id: 1,\n\n\n\n  },\n\n];\n"
	out, n := CollapseBlankLines(doubled)
	assert.Equal(t, 5, n)
	assert.Equal(t, "export const x = [\n  {\n    id: 1,\n\n  },\n];\n", out)

	crlf := "a\r\n\r\nb\r\n"
	out, n = CollapseBlankLines(crlf)
	assert.Equal(t, 1, n)
	assert.Equal(t, "a\r\nb\r\n", out)

	out, n = CollapseBlankLines("clean\n")
	assert.Zero(t, n)
	assert.Equal(t, "clean\n", out)
}

package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int, edit map[int]string) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := edit[i]; ok {
			sb.WriteString(s + "\n")
			continue
		}
		fmt.Fprintf(&sb, "l%d\n", i)
	}
	return sb.String()
}

func TestCompute_SimpleAddition(t *testing.T) {
	d := Compute("azkar-data.ts", "line1\nline2\nline3\n", "line1\nline2\nline2.5\nline3\n", DefaultContext)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, Stats{Added: 1}, d.Stats)

	h := d.Hunks[0]
	assert.Equal(t, "@@ -1,3 +1,4 @@", h.Header())

	var added []Line
	for _, l := range h.Lines {
		if l.Kind == LineAdded {
			added = append(added, l)
		}
	}
	require.Len(t, added, 1)
	assert.Equal(t, "line2.5", added[0].Text)
	assert.Equal(t, 3, added[0].NewNum)
	assert.Zero(t, added[0].OldNum)
}

func TestCompute_SimpleDeletion(t *testing.T) {
	d := Compute("a.ts", "line1\nline2\nline3\nline4\n", "line1\nline2\nline4\n", DefaultContext)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, Stats{Removed: 1}, d.Stats)
	assert.Equal(t, "@@ -1,4 +1,3 @@", d.Hunks[0].Header())
}

func TestCompute_NoChanges(t *testing.T) {
	d := Compute("a.ts", "same\n", "same\n", DefaultContext)
	assert.True(t, d.Empty())
	assert.Equal(t, Stats{}, d.Stats)
}

func TestCompute_SeparateAndMergedHunks(t *testing.T) {
	before := numbered(20, nil)

	far := Compute("a.ts", before, numbered(20, map[int]string{2: "L2", 18: "L18"}), DefaultContext)
	require.Len(t, far.Hunks, 2)
	assert.Equal(t, "@@ -1,5 +1,5 @@", far.Hunks[0].Header())
	assert.Equal(t, "@@ -15,6 +15,6 @@", far.Hunks[1].Header())

	near := Compute("a.ts", before, numbered(20, map[int]string{5: "L5", 9: "L9"}), DefaultContext)
	require.Len(t, near.Hunks, 1, "overlapping context windows merge")
	assert.Equal(t, "@@ -2,11 +2,11 @@", near.Hunks[0].Header())
	assert.Equal(t, Stats{Added: 2, Removed: 2}, near.Stats)
}

func TestCompute_ZeroContextInsert(t *testing.T) {
	d := Compute("a.ts", "a\nb\n", "a\nx\nb\n", 0)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "@@ -1,0 +2,1 @@", d.Hunks[0].Header())
}

func TestCompute_CRLF(t *testing.T) {
	d := Compute("a.ts", "a\r\nb\r\n", "a\r\nc\r\n", DefaultContext)
	require.Len(t, d.Hunks, 1)
	for _, l := range d.Hunks[0].Lines {
		assert.NotContains(t, l.Text, "\r")
	}
}

func TestCompute_NegativeContextUsesDefault(t *testing.T) {
	before := numbered(20, nil)
	after := numbered(20, map[int]string{10: "L10"})
	assert.Equal(t, Compute("a.ts", before, after, DefaultContext).Hunks, Compute("a.ts", before, after, -1).Hunks)
}

func TestRender_Plain(t *testing.T) {
	d := Compute("src/lib/azkar-data.ts", "a\nb\nc\n", "a\nB\nc\n", DefaultContext)

	var sb strings.Builder
	require.NoError(t, d.Render(&sb, false))
	want := "--- a/src/lib/azkar-data.ts\n" +
		"+++ b/src/lib/azkar-data.ts\n" +
		"@@ -1,3 +1,3 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		" c\n"
	assert.Equal(t, want, sb.String())
}

func TestRender_ColorKeepsText(t *testing.T) {
	d := Compute("a.ts", "a\n", "b\n", DefaultContext)

	var sb strings.Builder
	require.NoError(t, d.Render(&sb, true))
	assert.Contains(t, sb.String(), "-a")
	assert.Contains(t, sb.String(), "+b")
}

func BenchmarkCompute(b *testing.B) {
	before := numbered(2000, nil)
	after := numbered(2000, map[int]string{10: "x", 500: "y", 1500: "z"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute("a.ts", before, after, DefaultContext)
	}
}

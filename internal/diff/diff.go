// Package diff renders line diffs of the Document for dry runs, using the
// sergi/go-diff line mode and unified-style hunks.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// LineKind classifies a diff line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

func (k LineKind) prefix() string {
	switch k {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	}
	return " "
}

// Line is one line of a hunk. OldNum or NewNum is zero when the line does
// not exist on that side.
type Line struct {
	Kind   LineKind
	OldNum int
	NewNum int
	Text   string // without its line terminator

	oldPos, newPos int // cursor on each side when the line was emitted
}

// Hunk is a run of changes plus surrounding context.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Header returns the "@@ -a,b +c,d @@" line.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// Stats counts changed lines.
type Stats struct {
	Added   int
	Removed int
}

func (s Stats) String() string { return fmt.Sprintf("+%d -%d", s.Added, s.Removed) }

// Diff is the line diff between two versions of one file.
type Diff struct {
	Path  string
	Hunks []Hunk
	Stats Stats
}

// Empty reports whether the two versions were identical.
func (d *Diff) Empty() bool { return len(d.Hunks) == 0 }

// Compute diffs before and after line by line. context < 0 means
// DefaultContext.
func Compute(path, before, after string, context int) *Diff {
	if context < 0 {
		context = DefaultContext
	}
	d := &Diff{Path: path}
	if before == after {
		return d
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	ops := toLines(diffs, &d.Stats)
	d.Hunks = group(ops, context)
	return d
}

func toLines(diffs []diffmatchpatch.Diff, stats *Stats) []Line {
	var out []Line
	oldNum, newNum := 1, 1
	for _, df := range diffs {
		for _, text := range splitLines(df.Text) {
			switch df.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, Line{Kind: LineContext, OldNum: oldNum, NewNum: newNum, Text: text, oldPos: oldNum, newPos: newNum})
				oldNum++
				newNum++
			case diffmatchpatch.DiffDelete:
				out = append(out, Line{Kind: LineRemoved, OldNum: oldNum, Text: text, oldPos: oldNum, newPos: newNum})
				oldNum++
				stats.Removed++
			case diffmatchpatch.DiffInsert:
				out = append(out, Line{Kind: LineAdded, NewNum: newNum, Text: text, oldPos: oldNum, newPos: newNum})
				newNum++
				stats.Added++
			}
		}
	}
	return out
}

// splitLines cuts s into lines and drops their terminators, including the
// CR of CRLF documents.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		p = strings.TrimSuffix(p, "\n")
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// group merges the context windows of nearby changes into hunks.
func group(lines []Line, context int) []Hunk {
	var hunks []Hunk
	start, end := -1, -1
	flush := func() {
		if start < 0 {
			return
		}
		hunks = append(hunks, makeHunk(lines[start:end]))
	}
	for i, l := range lines {
		if l.Kind == LineContext {
			continue
		}
		lo, hi := max(i-context, 0), min(i+context+1, len(lines))
		if start >= 0 && lo <= end {
			end = max(end, hi)
			continue
		}
		flush()
		start, end = lo, hi
	}
	flush()
	return hunks
}

func makeHunk(lines []Line) Hunk {
	h := Hunk{Lines: lines}
	for _, l := range lines {
		if l.Kind != LineAdded {
			if h.OldLines == 0 {
				h.OldStart = l.OldNum
			}
			h.OldLines++
		}
		if l.Kind != LineRemoved {
			if h.NewLines == 0 {
				h.NewStart = l.NewNum
			}
			h.NewLines++
		}
	}
	// An empty side points at the line before the change, as in unified diffs.
	if h.OldLines == 0 {
		h.OldStart = lines[0].oldPos - 1
	}
	if h.NewLines == 0 {
		h.NewStart = lines[0].newPos - 1
	}
	return h
}

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#38bdf8"))
	fileStyle    = lipgloss.NewStyle().Bold(true)
)

// Render writes d in unified format. With color set, lines are styled with
// lipgloss.
func (d *Diff) Render(w io.Writer, color bool) error {
	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	sb.WriteString(paint(fileStyle, "--- a/"+d.Path) + "\n")
	sb.WriteString(paint(fileStyle, "+++ b/"+d.Path) + "\n")
	for _, h := range d.Hunks {
		sb.WriteString(paint(hunkStyle, h.Header()) + "\n")
		for _, l := range h.Lines {
			text := l.Kind.prefix() + l.Text
			switch l.Kind {
			case LineAdded:
				text = paint(addedStyle, text)
			case LineRemoved:
				text = paint(removedStyle, text)
			}
			sb.WriteString(text + "\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

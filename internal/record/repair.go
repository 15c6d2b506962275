package record

import (
	"sort"
	"strings"
)

// Repairs for the two corruption patterns seen in hand-edited content files.
// Neither runs implicitly: parsing rejects both, and a caller has to ask for
// the repair and then re-check the result.

// EscapeRawLineBreaks rewrites raw line breaks that sit inside double-quoted
// literals of any named block into the `\n` escape. CR is dropped when it
// precedes LF. It returns the new document and the number of breaks escaped.
func EscapeRawLineBreaks(doc string) (string, int) {
	var spans []Span
	for _, name := range ListBlocks(doc) {
		if span, err := LocateBlock(doc, name); err == nil {
			spans = append(spans, span)
		}
	}
	// Rewrite from the end so earlier offsets stay valid.
	sort.Slice(spans, func(i, j int) bool { return spans[i].InnerStart > spans[j].InnerStart })

	total := 0
	for _, span := range spans {
		fixed, n := escapeInner(span.Inner(doc))
		if n == 0 {
			continue
		}
		doc = doc[:span.InnerStart] + fixed + doc[span.InnerEnd:]
		total += n
	}
	return doc, total
}

func escapeInner(inner string) (string, int) {
	var b strings.Builder
	b.Grow(len(inner))
	in, n := false, 0
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '\\' && in && i+1 < len(inner):
			b.WriteByte(c)
			i++
			b.WriteByte(inner[i])
		case c == '"':
			in = !in
			b.WriteByte(c)
		case c == '\r' && in:
			if i+1 < len(inner) && inner[i+1] == '\n' {
				continue
			}
			b.WriteString(`\n`)
			n++
		case c == '\n' && in:
			b.WriteString(`\n`)
			n++
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), n
}

// CollapseBlankLines undoes systematic double spacing by replacing every
// pair of line breaks with one, so "a\n\nb" becomes "a\nb" and an intended
// blank line that was doubled to three breaks survives as one. CRLF pairs
// are handled the same way. It returns the new document and the number of
// pairs collapsed.
func CollapseBlankLines(doc string) (string, int) {
	nl := "\n"
	if strings.Contains(doc, "\r\n") {
		nl = "\r\n"
	}
	n := strings.Count(doc, nl+nl)
	if n == 0 {
		return doc, 0
	}
	return strings.ReplaceAll(doc, nl+nl, nl), n
}

package record

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Layout controls the whitespace of serialized blocks.
type Layout struct {
	RecordIndent string
	FieldIndent  string
	Newline      string
}

// DefaultLayout is two-space records, four-space fields, LF line endings.
func DefaultLayout() Layout {
	return Layout{RecordIndent: "  ", FieldIndent: "    ", Newline: "\n"}
}

// DetectLayout infers the layout already used by a block so that a patch only
// changes the lines it has to. Anything it cannot recognise falls back to
// DefaultLayout.
func DetectLayout(inner string) Layout {
	l := DefaultLayout()
	if strings.Contains(inner, "\r\n") {
		l.Newline = "\r\n"
	}
	lines := strings.Split(strings.ReplaceAll(inner, "\r\n", "\n"), "\n")
	recordLine := -1
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "{") {
			if trimmed == "{" {
				l.RecordIndent = line[:len(line)-len(trimmed)]
				recordLine = i
			}
			break
		}
	}
	if recordLine < 0 {
		return l
	}
	for _, line := range lines[recordLine+1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if indent := line[:len(line)-len(trimmed)]; len(indent) > len(l.RecordIndent) {
			l.FieldIndent = indent
		}
		break
	}
	return l
}

// SerializeBlock renders records as the inner text of a named block, with
// every field present in the fixed order id, primary, transliteration,
// translation, count. The result starts with a newline and ends with one, so
// "[" + SerializeBlock(...) + "];" puts the end marker on its own line.
func SerializeBlock(records []Record, layout Layout, schema Schema) string {
	var b strings.Builder
	b.WriteString(layout.Newline)
	for _, r := range records {
		b.WriteString(layout.RecordIndent)
		b.WriteString("{")
		b.WriteString(layout.Newline)
		for _, f := range allFields {
			b.WriteString(layout.FieldIndent)
			b.WriteString(schema.Key(f))
			b.WriteString(": ")
			b.WriteString(formatValue(r, f))
			b.WriteString(",")
			b.WriteString(layout.Newline)
		}
		b.WriteString(layout.RecordIndent)
		b.WriteString("},")
		b.WriteString(layout.Newline)
	}
	return b.String()
}

// FormatRecord renders a record as a single-line literal, for logs and
// reports.
func FormatRecord(r Record, schema Schema) string {
	parts := make([]string, 0, len(allFields))
	for _, f := range allFields {
		parts = append(parts, schema.Key(f)+": "+formatValue(r, f))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func formatValue(r Record, f Field) string {
	switch f {
	case FieldID:
		return strconv.Itoa(r.ID)
	case FieldCount:
		return strconv.Itoa(r.Count)
	}
	return Quote(r.Text(f))
}

// Quote renders s as a double-quoted literal that never contains a raw line
// break. A "]" directly followed by ";" is escaped as well, since "];" ends
// the enclosing block.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == ']' && i+1 < len(s) && s[i+1] == ';':
			b.WriteString(`\u005d`)
		case r < 0x20, r == 0x7f, r == '\u2028', r == '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		case r == utf8.RuneError && size == 1:
			// Invalid byte; keep it verbatim rather than inventing a character.
			b.WriteByte(s[i])
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

package record

import (
	"regexp"
	"strings"
)

// EndMarker closes every named block.
const EndMarker = "];"

// Span locates a named block inside a Document. Inner text is
// doc[InnerStart:InnerEnd]; the whole block, marker to end marker, is
// doc[Start:End].
type Span struct {
	Name       string
	Start      int
	InnerStart int
	InnerEnd   int
	End        int
}

// Inner returns the text between "[" and "];".
func (s Span) Inner(doc string) string {
	return doc[s.InnerStart:s.InnerEnd]
}

const identPattern = `[A-Za-z_$][A-Za-z0-9_$]*`

// An optional type annotation ("export const x: Zikr[] = [") is allowed
// between the name and "=".
var blockStartRE = regexp.MustCompile(`export\s+const\s+(` + identPattern + `)\s*(?::[^=\n]*)?=\s*\[`)

func startPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`export\s+const\s+` + regexp.QuoteMeta(name) + `\s*(?::[^=\n]*)?=\s*\[`)
}

// LocateBlock finds the first start marker for name and the first end marker
// after it. The format has no nested arrays, so the first "];" is the end.
func LocateBlock(doc, name string) (Span, error) {
	if !isIdentifier(name) {
		e := newError(ErrBlockNotFound, "%q is not a valid block name", name)
		e.Block = name
		return Span{}, e
	}
	loc := startPattern(name).FindStringIndex(doc)
	if loc == nil {
		e := newError(ErrBlockNotFound, "no \"export const %s = [\" marker in document", name)
		e.Block = name
		return Span{}, e
	}
	innerStart := loc[1]
	rel := strings.Index(doc[innerStart:], EndMarker)
	if rel < 0 {
		e := newError(ErrUnterminatedBlock, "no %q after the start marker", EndMarker)
		e.Block = name
		e.Offset = loc[0]
		return Span{}, e
	}
	return Span{
		Name:       name,
		Start:      loc[0],
		InnerStart: innerStart,
		InnerEnd:   innerStart + rel,
		End:        innerStart + rel + len(EndMarker),
	}, nil
}

// ListBlocks returns the names of every named record block in document
// order. Exported arrays of anything else, such as
// "export const MILESTONES = [10, 25] as const;", are left out.
// Repeated names are reported once.
func ListBlocks(doc string) []string {
	var names []string
	for _, a := range namedArrays(doc) {
		if a.records {
			names = append(names, a.name)
		}
	}
	return names
}

type namedArray struct {
	name    string
	records bool
}

// namedArrays lists every "export const x = [" in document order with
// whether its body looks like a record list.
func namedArrays(doc string) []namedArray {
	var out []namedArray
	seen := make(map[string]bool)
	for _, m := range blockStartRE.FindAllStringSubmatchIndex(doc, -1) {
		name := doc[m[2]:m[3]]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, namedArray{name: name, records: holdsRecords(doc[m[1]:])})
	}
	return out
}

// holdsRecords reports whether an array body opens with a record, the
// closing bracket, or a comment. Comments are kept so the parser can
// report them.
func holdsRecords(body string) bool {
	body = strings.TrimLeft(body, " \t\r\n")
	return body == "" || body[0] == '{' || body[0] == ']' || body[0] == '/'
}

// lastBlockEnd returns the offset just past the last terminated block, or -1.
func lastBlockEnd(doc string) (int, Layout) {
	end, layout := -1, DefaultLayout()
	for _, name := range ListBlocks(doc) {
		span, err := LocateBlock(doc, name)
		if err != nil {
			continue
		}
		if span.End > end {
			end = span.End
			layout = DetectLayout(span.Inner(doc))
		}
	}
	return end, layout
}

// renderBlock produces the full text of a new named block.
func renderBlock(name string, records []Record, layout Layout, schema Schema) string {
	return "export const " + name + " = [" + SerializeBlock(records, layout, schema) + EndMarker
}

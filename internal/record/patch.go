package record

import (
	"fmt"
	"slices"
	"strings"

	"azkartool/internal/logging"
)

// Patcher applies edit sequences to named blocks using one Schema.
type Patcher struct {
	Schema Schema
}

// NewPatcher validates schema and returns a Patcher for it.
func NewPatcher(schema Schema) (*Patcher, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Patcher{Schema: schema}, nil
}

// EditSummary describes one applied edit.
type EditSummary struct {
	Index       int // 1-based
	Kind        Kind
	Description string
	Before      int
	After       int
}

// Result reports what a successful patch did to its block.
type Result struct {
	Block   string
	Span    Span // span of the block in the patched document
	Before  int
	After   int
	Edits   []EditSummary
	Changed bool // false when the patched document equals the input
}

// BlockEdits pairs a block name with the edits to fold over it.
type BlockEdits struct {
	Block string
	Edits []Edit
}

// PatchDocument patches block with the default schema.
func PatchDocument(doc, block string, edits []Edit) (string, *Result, error) {
	return (&Patcher{Schema: DefaultSchema()}).Patch(doc, block, edits)
}

// Patch locates block, parses it, folds edits over its records, serializes
// them back into the original span and verifies the result by parsing it
// again. On any error the input document is returned unchanged.
func (p *Patcher) Patch(doc, block string, edits []Edit) (string, *Result, error) {
	timer := logging.StartTimer(logging.CategoryPatch, "patch "+block)
	defer timer.Stop()

	span, err := LocateBlock(doc, block)
	if err != nil {
		return doc, nil, err
	}
	inner := span.Inner(doc)
	records, err := ParseRecords(inner, p.Schema)
	if err != nil {
		return doc, nil, annotate(err, block, 0, "", span.InnerStart)
	}
	logging.ParseDebug("block %s: %d records at bytes %d-%d", block, len(records), span.Start, span.End)

	res := &Result{Block: block, Before: len(records)}
	expected := len(records)
	cur := records
	for i, e := range edits {
		if e == nil {
			return doc, nil, annotate(newError(ErrInvalidEdit, "nil edit"), block, i+1, "", 0)
		}
		next, err := e.Apply(cur)
		if err != nil {
			return doc, nil, annotate(err, block, i+1, e.Kind(), 0)
		}
		if len(next) != len(cur)+e.delta() {
			err := newError(ErrPostCondition, "edit produced %d records, expected %d", len(next), len(cur)+e.delta())
			return doc, nil, annotate(err, block, i+1, e.Kind(), 0)
		}
		logging.PatchDebug("block %s edit %d: %s (%d -> %d records)", block, i+1, e, len(cur), len(next))
		res.Edits = append(res.Edits, EditSummary{
			Index:       i + 1,
			Kind:        e.Kind(),
			Description: e.String(),
			Before:      len(cur),
			After:       len(next),
		})
		expected += e.delta()
		cur = next
	}

	newInner := SerializeBlock(cur, DetectLayout(inner), p.Schema)
	out := doc[:span.InnerStart] + newInner + doc[span.InnerEnd:]

	newSpan, err := p.verify(out, block, cur, expected, span.Start)
	if err != nil {
		logging.PatchWarn("block %s: discarding candidate: %v", block, err)
		return doc, nil, err
	}

	res.Span = newSpan
	res.After = len(cur)
	res.Changed = out != doc
	logging.Patch("block %s: %d edit(s), %d -> %d records", block, len(edits), res.Before, res.After)
	return out, res, nil
}

// PatchAll patches several blocks in order. The document is only returned
// modified when every block succeeds.
func (p *Patcher) PatchAll(doc string, plan []BlockEdits) (string, []*Result, error) {
	out := doc
	results := make([]*Result, 0, len(plan))
	for _, be := range plan {
		next, res, err := p.Patch(out, be.Block, be.Edits)
		if err != nil {
			logging.PatchError("block %s failed, document left unchanged: %v", be.Block, err)
			return doc, nil, err
		}
		out = next
		results = append(results, res)
	}
	return out, results, nil
}

// AppendBlock adds a new named block holding records after the last block
// in doc, or at the end of doc when it has none.
func (p *Patcher) AppendBlock(doc, name string, records []Record) (string, error) {
	if !isIdentifier(name) {
		e := newError(ErrInvalidEdit, "%q is not a valid block name", name)
		e.Block = name
		return doc, e
	}
	if startPattern(name).MatchString(doc) {
		e := newError(ErrBlockExists, "cannot append a second %q block", name)
		e.Block = name
		return doc, e
	}
	if err := validateRecords(records); err != nil {
		return doc, annotate(err, name, 0, "", 0)
	}

	end, layout := lastBlockEnd(doc)
	text := renderBlock(name, records, layout, p.Schema)
	var out string
	if end >= 0 {
		out = doc[:end] + layout.Newline + layout.Newline + text + doc[end:]
	} else {
		sep := ""
		switch {
		case doc == "":
		case strings.HasSuffix(doc, "\n"):
			sep = layout.Newline
		default:
			sep = layout.Newline + layout.Newline
		}
		out = doc + sep + text + layout.Newline
	}

	if _, err := p.verify(out, name, records, len(records), -1); err != nil {
		return doc, err
	}
	return out, nil
}

// verify re-locates and re-parses block in the candidate document and checks
// the post-conditions: record count, unique ids, no raw line break inside a
// string literal, and records identical to the ones that were serialized.
// wantStart < 0 skips the position check.
func (p *Patcher) verify(out, block string, want []Record, expected, wantStart int) (Span, error) {
	fail := func(format string, args ...any) (Span, error) {
		e := newError(ErrPostCondition, format, args...)
		e.Block = block
		return Span{}, e
	}

	span, err := LocateBlock(out, block)
	if err != nil {
		return fail("block cannot be located after splicing: %v", err)
	}
	if wantStart >= 0 && span.Start != wantStart {
		return fail("block moved from byte %d to %d", wantStart, span.Start)
	}
	inner := span.Inner(out)
	if off := rawLineBreakInString(inner); off >= 0 {
		e := newError(ErrPostCondition, "raw line break inside a string literal")
		e.Block = block
		e.Offset = span.InnerStart + off
		return Span{}, e
	}
	got, err := ParseRecords(inner, p.Schema)
	if err != nil {
		return fail("serialized block does not parse: %v", err)
	}
	if len(got) != expected {
		return fail("record count is %d, expected %d", len(got), expected)
	}
	if dups := duplicateIDs(got); len(dups) > 0 {
		e := newError(ErrPostCondition, "duplicate ids %v; add a renumber edit", dups)
		e.Block = block
		e.RecordID = dups[0]
		return Span{}, e
	}
	if !slices.Equal(got, want) {
		for i := range got {
			if got[i] != want[i] {
				e := newError(ErrPostCondition, "record %d does not survive a round trip", i+1)
				e.Block = block
				e.RecordID = want[i].ID
				return Span{}, e
			}
		}
	}
	return span, nil
}

// rawLineBreakInString returns the offset of the first CR or LF that sits
// inside a double-quoted literal, or -1.
func rawLineBreakInString(s string) int {
	in := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && in:
			i++
		case c == '"':
			in = !in
		case (c == '\n' || c == '\r') && in:
			return i
		}
	}
	return -1
}

func duplicateIDs(records []Record) []int {
	seen := make(map[int]bool, len(records))
	var dups []int
	for _, r := range records {
		if seen[r.ID] && !slices.Contains(dups, r.ID) {
			dups = append(dups, r.ID)
		}
		seen[r.ID] = true
	}
	return dups
}

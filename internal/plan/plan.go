// Package plan loads YAML edit plans: per-block sequences of declarative
// record edits that azkarctl applies in one atomic rewrite of the Document.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"azkartool/internal/logging"
	"azkartool/internal/record"
)

// ErrInvalidPlan marks plans that decode but cannot be turned into edits.
var ErrInvalidPlan = errors.New("invalid plan")

// Plan is the root of a plan file.
type Plan struct {
	Document string      `yaml:"document,omitempty"`
	Blocks   []BlockPlan `yaml:"blocks"`
}

// BlockPlan lists the edits for one named block, applied in order.
type BlockPlan struct {
	Name  string `yaml:"name"`
	Edits []Step `yaml:"edits"`
}

// Step holds exactly one edit kind.
type Step struct {
	StripPrefix   *StripPrefixStep   `yaml:"strip_prefix,omitempty"`
	ReplaceRecord *ReplaceRecordStep `yaml:"replace_record,omitempty"`
	Renumber      *RenumberStep      `yaml:"renumber,omitempty"`
	InsertRecords *InsertRecordsStep `yaml:"insert_records,omitempty"`
	DeleteRecord  *DeleteRecordStep  `yaml:"delete_record,omitempty"`
	ReplaceField  *ReplaceFieldStep  `yaml:"replace_field,omitempty"`
}

// MatchSpec selects records by id and/or substring. Field accepts a
// Document key or a logical field name.
type MatchSpec struct {
	ID       int    `yaml:"id,omitempty"`
	Field    string `yaml:"field,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

type StripPrefixStep struct {
	Field  string     `yaml:"field"`
	Prefix string     `yaml:"prefix"`
	Match  *MatchSpec `yaml:"match,omitempty"`
}

type ReplaceRecordStep struct {
	Match   MatchSpec    `yaml:"match"`
	Records []RecordSpec `yaml:"records"`
}

type RenumberStep struct {
	Start int `yaml:"start,omitempty"`
}

type InsertRecordsStep struct {
	After   *MatchSpec   `yaml:"after,omitempty"`
	AtStart bool         `yaml:"at_start,omitempty"`
	Records []RecordSpec `yaml:"records"`
}

type DeleteRecordStep struct {
	Match MatchSpec `yaml:"match"`
}

type ReplaceFieldStep struct {
	Match MatchSpec `yaml:"match"`
	Field string    `yaml:"field"`
	Value string    `yaml:"value"`
}

// RecordSpec is a record written either as a source literal
// ("{ id: 1, arabic: ... }", bare or under a literal key) or as a YAML
// mapping keyed by the Document keys. It is resolved against a Schema when
// edits are built.
type RecordSpec struct {
	Literal string
	Fields  map[string]string
	line    int
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RecordSpec) UnmarshalYAML(value *yaml.Node) error {
	r.line = value.Line
	switch value.Kind {
	case yaml.ScalarNode:
		r.Literal = value.Value
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: record must be a literal string or a mapping", value.Line)
	}

	if len(value.Content) == 2 && value.Content[0].Value == "literal" {
		lit := value.Content[1]
		if lit.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: literal must be a string", lit.Line)
		}
		r.Literal = lit.Value
		return nil
	}

	r.Fields = make(map[string]string, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %q must be a scalar", v.Line, k.Value)
		}
		if _, dup := r.Fields[k.Value]; dup {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		r.Fields[k.Value] = v.Value
	}
	return nil
}

// Record resolves the spec with schema.
func (r RecordSpec) Record(schema record.Schema) (record.Record, error) {
	if r.Fields == nil {
		return record.ParseRecordLiteral(r.Literal, schema)
	}

	var rec record.Record
	seen := make(map[record.Field]bool, len(r.Fields))
	for key, val := range r.Fields {
		f, err := schema.ParseField(key)
		if err != nil {
			return record.Record{}, err
		}
		if seen[f] {
			return record.Record{}, fmt.Errorf("field %s given twice", f)
		}
		seen[f] = true
		if f.IsText() {
			rec.SetText(f, record.NormalizeEscapes(val))
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return record.Record{}, fmt.Errorf("%s must be an integer, got %q", key, val)
		}
		if f == record.FieldID {
			rec.ID = n
		} else {
			rec.Count = n
		}
	}
	for _, f := range []record.Field{record.FieldID, record.FieldPrimary, record.FieldTransliteration, record.FieldTranslation, record.FieldCount} {
		if !seen[f] {
			return record.Record{}, fmt.Errorf("missing field %s", schema.Key(f))
		}
	}
	return rec, rec.Validate()
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Plan("loaded plan %s: %d block(s)", path, len(p.Blocks))
	return p, nil
}

// Parse decodes a plan. Unknown keys are rejected.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
		}
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		fillBareRenumber(&root, &p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// fillBareRenumber treats a step written as "- renumber:" with no options
// as a renumber from 1. The strict decode leaves such a step empty.
func fillBareRenumber(root *yaml.Node, p *Plan) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return
	}
	blocks := mappingValue(root.Content[0], "blocks")
	if blocks == nil || blocks.Kind != yaml.SequenceNode {
		return
	}
	for i, b := range blocks.Content {
		edits := mappingValue(b, "edits")
		if i >= len(p.Blocks) || edits == nil || edits.Kind != yaml.SequenceNode {
			continue
		}
		for j, step := range edits.Content {
			if j >= len(p.Blocks[i].Edits) {
				break
			}
			v := mappingValue(step, "renumber")
			if v != nil && v.ShortTag() == "!!null" && p.Blocks[i].Edits[j].Renumber == nil {
				p.Blocks[i].Edits[j].Renumber = &RenumberStep{}
			}
		}
	}
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// Validate checks the plan shape without resolving fields or records.
func (p *Plan) Validate() error {
	if len(p.Blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrInvalidPlan)
	}
	seen := make(map[string]bool, len(p.Blocks))
	for i, b := range p.Blocks {
		if b.Name == "" {
			return fmt.Errorf("%w: block %d has no name", ErrInvalidPlan, i+1)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: block %s listed twice; merge its edits", ErrInvalidPlan, b.Name)
		}
		seen[b.Name] = true
		for j, s := range b.Edits {
			if n := s.kinds(); n != 1 {
				return fmt.Errorf("%w: block %s edit %d sets %d edit kinds, want exactly one", ErrInvalidPlan, b.Name, j+1, n)
			}
		}
	}
	return nil
}

func (s Step) kinds() int {
	n := 0
	for _, set := range []bool{
		s.StripPrefix != nil,
		s.ReplaceRecord != nil,
		s.Renumber != nil,
		s.InsertRecords != nil,
		s.DeleteRecord != nil,
		s.ReplaceField != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Edits builds the edits for the named block.
func (p *Plan) Edits(block string, schema record.Schema) ([]record.Edit, error) {
	for _, b := range p.Blocks {
		if b.Name == block {
			return b.edits(schema)
		}
	}
	return nil, fmt.Errorf("%w: no block %s in plan", ErrInvalidPlan, block)
}

// BlockEdits builds the edits for every block, in plan order.
func (p *Plan) BlockEdits(schema record.Schema) ([]record.BlockEdits, error) {
	out := make([]record.BlockEdits, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		edits, err := b.edits(schema)
		if err != nil {
			return nil, err
		}
		out = append(out, record.BlockEdits{Block: b.Name, Edits: edits})
	}
	return out, nil
}

func (b BlockPlan) edits(schema record.Schema) ([]record.Edit, error) {
	edits := make([]record.Edit, 0, len(b.Edits))
	for i, s := range b.Edits {
		e, err := s.edit(schema)
		if err != nil {
			return nil, fmt.Errorf("%w: block %s edit %d: %w", ErrInvalidPlan, b.Name, i+1, err)
		}
		logging.PlanDebug("block %s edit %d: %s", b.Name, i+1, e)
		edits = append(edits, e)
	}
	return edits, nil
}

func (s Step) edit(schema record.Schema) (record.Edit, error) {
	switch {
	case s.StripPrefix != nil:
		f, err := schema.ParseField(s.StripPrefix.Field)
		if err != nil {
			return nil, err
		}
		e := record.StripPrefix{Field: f, Prefix: s.StripPrefix.Prefix}
		if s.StripPrefix.Match != nil {
			m, err := s.StripPrefix.Match.match(schema)
			if err != nil {
				return nil, err
			}
			e.Match = m
		}
		return e, nil

	case s.ReplaceRecord != nil:
		m, err := s.ReplaceRecord.Match.match(schema)
		if err != nil {
			return nil, err
		}
		rs, err := records(s.ReplaceRecord.Records, schema)
		if err != nil {
			return nil, err
		}
		return record.ReplaceRecord{Match: m, Records: rs}, nil

	case s.Renumber != nil:
		return record.Renumber{Start: s.Renumber.Start}, nil

	case s.InsertRecords != nil:
		rs, err := records(s.InsertRecords.Records, schema)
		if err != nil {
			return nil, err
		}
		e := record.InsertRecords{AtStart: s.InsertRecords.AtStart, Records: rs}
		if s.InsertRecords.After != nil {
			m, err := s.InsertRecords.After.match(schema)
			if err != nil {
				return nil, err
			}
			e.After = m
		}
		return e, nil

	case s.DeleteRecord != nil:
		m, err := s.DeleteRecord.Match.match(schema)
		if err != nil {
			return nil, err
		}
		return record.DeleteRecord{Match: m}, nil

	case s.ReplaceField != nil:
		m, err := s.ReplaceField.Match.match(schema)
		if err != nil {
			return nil, err
		}
		f, err := schema.ParseField(s.ReplaceField.Field)
		if err != nil {
			return nil, err
		}
		return record.ReplaceField{Match: m, Field: f, Value: s.ReplaceField.Value}, nil
	}
	return nil, errors.New("step sets no edit kind")
}

func (m MatchSpec) match(schema record.Schema) (record.Match, error) {
	out := record.Match{ID: m.ID, Contains: m.Contains}
	if m.Field != "" {
		f, err := schema.ParseField(m.Field)
		if err != nil {
			return record.Match{}, err
		}
		out.Field = f
	}
	return out, nil
}

func records(specs []RecordSpec, schema record.Schema) ([]record.Record, error) {
	out := make([]record.Record, 0, len(specs))
	for i, s := range specs {
		r, err := s.Record(schema)
		if err != nil {
			if s.line > 0 {
				return nil, fmt.Errorf("record %d (line %d): %w", i+1, s.line, err)
			}
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Kind names an edit in plans, logs and errors.
type Kind string

const (
	KindStripPrefix   Kind = "strip_prefix"
	KindReplaceRecord Kind = "replace_record"
	KindRenumber      Kind = "renumber"
	KindInsertRecords Kind = "insert_records"
	KindDeleteRecord  Kind = "delete_record"
	KindReplaceField  Kind = "replace_field"
)

// Edit is one declarative operation on the records of a block. Edits never
// mutate their input slice. The set of implementations is closed.
type Edit interface {
	Kind() Kind
	Apply(records []Record) ([]Record, error)
	String() string

	// delta is the change in record count the edit must produce.
	delta() int
}

// Predicate selects records for targeted edits.
type Predicate interface {
	Matches(r Record) bool
	String() string
}

// Match selects records by id and/or a substring of a text field. Every
// criterion that is set must hold. Field zero with Contains set searches all
// text fields.
type Match struct {
	ID       int
	Field    Field
	Contains string
}

func (m Match) Matches(r Record) bool {
	if m.ID > 0 && r.ID != m.ID {
		return false
	}
	if m.Contains == "" {
		return true
	}
	needle := NormalizeEscapes(m.Contains)
	if m.Field != 0 {
		return strings.Contains(r.Text(m.Field), needle)
	}
	for _, f := range allFields {
		if f.IsText() && strings.Contains(r.Text(f), needle) {
			return true
		}
	}
	return false
}

func (m Match) String() string {
	var parts []string
	if m.ID > 0 {
		parts = append(parts, "id == "+strconv.Itoa(m.ID))
	}
	if m.Contains != "" {
		where := "any text field"
		if m.Field != 0 {
			where = m.Field.String()
		}
		parts = append(parts, fmt.Sprintf("%s contains %q", where, m.Contains))
	}
	if len(parts) == 0 {
		return "<empty match>"
	}
	return strings.Join(parts, " && ")
}

func (m Match) validate() error {
	if m.ID < 0 {
		return newError(ErrInvalidEdit, "match id must be positive, got %d", m.ID)
	}
	if m.ID == 0 && m.Contains == "" {
		return newError(ErrInvalidEdit, "match needs an id or a contains substring")
	}
	if m.Contains != "" && m.Field != 0 && !m.Field.IsText() {
		return newError(ErrInvalidEdit, "contains can only search text fields, not %s", m.Field)
	}
	return nil
}

// NormalizeEscapes turns the two-character sequence `\n` into a real line
// break, so prefixes and needles written in either form compare equal to the
// decoded field values.
func NormalizeEscapes(s string) string {
	s = strings.ReplaceAll(s, `\r\n`, "\n")
	return strings.ReplaceAll(s, `\n`, "\n")
}

func validatePredicate(p Predicate) error {
	if p == nil {
		return newError(ErrInvalidEdit, "missing match predicate")
	}
	if m, ok := p.(Match); ok {
		return m.validate()
	}
	return nil
}

// findOne returns the index of the single record matching p.
func findOne(records []Record, p Predicate) (int, error) {
	var hits []int
	for i, r := range records {
		if p.Matches(r) {
			hits = append(hits, i)
		}
	}
	switch len(hits) {
	case 1:
		return hits[0], nil
	case 0:
		e := newError(ErrRecordNotFound, "no record matches %s", p)
		if m, ok := p.(Match); ok {
			e.RecordID = m.ID
		}
		return -1, e
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = strconv.Itoa(records[h].ID)
	}
	return -1, newError(ErrAmbiguousMatch, "%s matches %d records (ids %s)", p, len(hits), strings.Join(ids, ", "))
}

func validateRecords(rs []Record) error {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			e := newError(ErrInvalidEdit, "record literal %d: %v", i+1, err)
			e.RecordID = r.ID
			return e
		}
	}
	return nil
}

// StripPrefix removes Prefix, and any whitespace or line breaks right after
// it, from Field. Records whose value does not start with Prefix are left
// untouched. With Match nil every record is considered; otherwise Match must
// select exactly one record.
type StripPrefix struct {
	Field  Field
	Prefix string
	Match  Predicate
}

func (e StripPrefix) Kind() Kind { return KindStripPrefix }
func (e StripPrefix) delta() int { return 0 }

func (e StripPrefix) String() string {
	s := fmt.Sprintf("strip %q from %s", e.Prefix, e.Field)
	if e.Match != nil {
		s += " where " + e.Match.String()
	}
	return s
}

func (e StripPrefix) Apply(records []Record) ([]Record, error) {
	if !e.Field.IsText() {
		return nil, newError(ErrInvalidEdit, "strip_prefix needs a text field, got %s", e.Field)
	}
	prefix := NormalizeEscapes(e.Prefix)
	if prefix == "" {
		return nil, newError(ErrInvalidEdit, "strip_prefix needs a non-empty prefix")
	}
	out := slices.Clone(records)
	strip := func(r *Record) {
		v := r.Text(e.Field)
		if rest, ok := strings.CutPrefix(v, prefix); ok {
			r.SetText(e.Field, strings.TrimLeftFunc(rest, unicode.IsSpace))
		}
	}
	if e.Match == nil {
		for i := range out {
			strip(&out[i])
		}
		return out, nil
	}
	if err := validatePredicate(e.Match); err != nil {
		return nil, err
	}
	i, err := findOne(out, e.Match)
	if err != nil {
		return nil, err
	}
	strip(&out[i])
	return out, nil
}

// ReplaceRecord swaps the single record selected by Match for Records,
// keeping its position.
type ReplaceRecord struct {
	Match   Predicate
	Records []Record
}

func (e ReplaceRecord) Kind() Kind { return KindReplaceRecord }
func (e ReplaceRecord) delta() int { return len(e.Records) - 1 }

func (e ReplaceRecord) String() string {
	return fmt.Sprintf("replace record where %v with %d record(s)", e.Match, len(e.Records))
}

func (e ReplaceRecord) Apply(records []Record) ([]Record, error) {
	if err := validatePredicate(e.Match); err != nil {
		return nil, err
	}
	if len(e.Records) == 0 {
		return nil, newError(ErrInvalidEdit, "replace_record needs at least one replacement; use delete_record to remove")
	}
	if err := validateRecords(e.Records); err != nil {
		return nil, err
	}
	i, err := findOne(records, e.Match)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records)+len(e.Records)-1)
	out = append(out, records[:i]...)
	out = append(out, e.Records...)
	return append(out, records[i+1:]...), nil
}

// Renumber assigns ids Start, Start+1, ... in block order. Start 0 means 1.
type Renumber struct {
	Start int
}

func (e Renumber) Kind() Kind { return KindRenumber }
func (e Renumber) delta() int { return 0 }

func (e Renumber) String() string { return fmt.Sprintf("renumber from %d", e.start()) }

func (e Renumber) start() int {
	if e.Start == 0 {
		return 1
	}
	return e.Start
}

func (e Renumber) Apply(records []Record) ([]Record, error) {
	if e.Start < 0 {
		return nil, newError(ErrInvalidEdit, "renumber start must be positive, got %d", e.Start)
	}
	out := slices.Clone(records)
	for i := range out {
		out[i].ID = e.start() + i
	}
	return out, nil
}

// InsertRecords adds Records after the record selected by After. Without
// After they go to the start of the block when AtStart is set, else to the
// end.
type InsertRecords struct {
	After   Predicate
	AtStart bool
	Records []Record
}

func (e InsertRecords) Kind() Kind { return KindInsertRecords }
func (e InsertRecords) delta() int { return len(e.Records) }

func (e InsertRecords) String() string {
	switch {
	case e.After != nil:
		return fmt.Sprintf("insert %d record(s) after %v", len(e.Records), e.After)
	case e.AtStart:
		return fmt.Sprintf("insert %d record(s) at start", len(e.Records))
	}
	return fmt.Sprintf("append %d record(s)", len(e.Records))
}

func (e InsertRecords) Apply(records []Record) ([]Record, error) {
	if len(e.Records) == 0 {
		return nil, newError(ErrInvalidEdit, "insert_records needs at least one record")
	}
	if e.After != nil && e.AtStart {
		return nil, newError(ErrInvalidEdit, "insert_records takes either after or at_start, not both")
	}
	if err := validateRecords(e.Records); err != nil {
		return nil, err
	}
	at := len(records)
	switch {
	case e.After != nil:
		if err := validatePredicate(e.After); err != nil {
			return nil, err
		}
		i, err := findOne(records, e.After)
		if err != nil {
			return nil, err
		}
		at = i + 1
	case e.AtStart:
		at = 0
	}
	out := make([]Record, 0, len(records)+len(e.Records))
	out = append(out, records[:at]...)
	out = append(out, e.Records...)
	return append(out, records[at:]...), nil
}

// DeleteRecord removes the single record selected by Match.
type DeleteRecord struct {
	Match Predicate
}

func (e DeleteRecord) Kind() Kind { return KindDeleteRecord }
func (e DeleteRecord) delta() int { return -1 }

func (e DeleteRecord) String() string { return fmt.Sprintf("delete record where %v", e.Match) }

func (e DeleteRecord) Apply(records []Record) ([]Record, error) {
	if err := validatePredicate(e.Match); err != nil {
		return nil, err
	}
	i, err := findOne(records, e.Match)
	if err != nil {
		return nil, err
	}
	return slices.Delete(slices.Clone(records), i, i+1), nil
}

// ReplaceField overwrites one field of the single record selected by Match.
// Integer fields take their value in decimal.
type ReplaceField struct {
	Match Predicate
	Field Field
	Value string
}

func (e ReplaceField) Kind() Kind { return KindReplaceField }
func (e ReplaceField) delta() int { return 0 }

func (e ReplaceField) String() string {
	return fmt.Sprintf("set %s = %q where %v", e.Field, e.Value, e.Match)
}

func (e ReplaceField) Apply(records []Record) ([]Record, error) {
	if err := validatePredicate(e.Match); err != nil {
		return nil, err
	}
	i, err := findOne(records, e.Match)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(records)
	switch e.Field {
	case FieldPrimary, FieldTransliteration, FieldTranslation:
		out[i].SetText(e.Field, NormalizeEscapes(e.Value))
	case FieldID, FieldCount:
		n, err := strconv.Atoi(strings.TrimSpace(e.Value))
		if err != nil || n < 1 {
			return nil, newError(ErrInvalidEdit, "%s must be a positive integer, got %q", e.Field, e.Value)
		}
		if e.Field == FieldID {
			out[i].ID = n
		} else {
			out[i].Count = n
		}
	default:
		return nil, newError(ErrInvalidEdit, "unknown field %s", e.Field)
	}
	return out, nil
}

package record

import (
	"fmt"
	"strings"
)

// Field identifies one of the five record fields independently of the key
// used for it in the Document.
type Field int

const (
	FieldID Field = iota + 1
	FieldPrimary
	FieldTransliteration
	FieldTranslation
	FieldCount
)

// allFields is the fixed serialization order.
var allFields = [...]Field{FieldID, FieldPrimary, FieldTransliteration, FieldTranslation, FieldCount}

func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldPrimary:
		return "primary"
	case FieldTransliteration:
		return "transliteration"
	case FieldTranslation:
		return "translation"
	case FieldCount:
		return "count"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// IsText reports whether the field holds a quoted string.
func (f Field) IsText() bool {
	return f == FieldPrimary || f == FieldTransliteration || f == FieldTranslation
}

// Record is one entry of a named block. String fields are stored decoded:
// a line break is a real "\n", never the two-character escape.
type Record struct {
	ID              int
	Primary         string
	Transliteration string
	Translation     string
	Count           int
}

// Text returns the value of a string field.
func (r Record) Text(f Field) string {
	switch f {
	case FieldPrimary:
		return r.Primary
	case FieldTransliteration:
		return r.Transliteration
	case FieldTranslation:
		return r.Translation
	}
	return ""
}

// SetText replaces the value of a string field. Non-text fields are ignored.
func (r *Record) SetText(f Field, v string) {
	switch f {
	case FieldPrimary:
		r.Primary = v
	case FieldTransliteration:
		r.Transliteration = v
	case FieldTranslation:
		r.Translation = v
	}
}

// Validate checks the invariants a record must hold before it is serialized.
func (r Record) Validate() error {
	if r.ID < 1 {
		return fmt.Errorf("id must be a positive integer, got %d", r.ID)
	}
	if r.Count < 1 {
		return fmt.Errorf("count must be a positive integer, got %d", r.Count)
	}
	return nil
}

// Schema maps logical fields to the keys written in the Document.
type Schema struct {
	IDKey              string `yaml:"id"`
	PrimaryKey         string `yaml:"primary"`
	TransliterationKey string `yaml:"transliteration"`
	TranslationKey     string `yaml:"translation"`
	CountKey           string `yaml:"count"`
}

// DefaultSchema returns the keys used by the azkar content file.
func DefaultSchema() Schema {
	return Schema{
		IDKey:              "id",
		PrimaryKey:         "arabic",
		TransliterationKey: "transliteration",
		TranslationKey:     "translation",
		CountKey:           "count",
	}
}

// Key returns the Document key for f.
func (s Schema) Key(f Field) string {
	switch f {
	case FieldID:
		return s.IDKey
	case FieldPrimary:
		return s.PrimaryKey
	case FieldTransliteration:
		return s.TransliterationKey
	case FieldTranslation:
		return s.TranslationKey
	case FieldCount:
		return s.CountKey
	}
	return ""
}

// FieldForKey resolves a Document key to its logical field.
func (s Schema) FieldForKey(key string) (Field, bool) {
	for _, f := range allFields {
		if s.Key(f) == key {
			return f, true
		}
	}
	return 0, false
}

// ParseField accepts either a Document key ("arabic") or a logical field
// name ("primary").
func (s Schema) ParseField(name string) (Field, error) {
	name = strings.TrimSpace(name)
	if f, ok := s.FieldForKey(name); ok {
		return f, nil
	}
	for _, f := range allFields {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q (known: %s)", name, strings.Join(s.keys(), ", "))
}

func (s Schema) keys() []string {
	out := make([]string, 0, len(allFields))
	for _, f := range allFields {
		out = append(out, s.Key(f))
	}
	return out
}

// Validate rejects empty, duplicated, or non-identifier keys.
func (s Schema) Validate() error {
	seen := make(map[string]Field, len(allFields))
	for _, f := range allFields {
		key := s.Key(f)
		if !isIdentifier(key) {
			return fmt.Errorf("schema key for %s must be an identifier, got %q", f, key)
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("schema key %q used for both %s and %s", key, prev, f)
		}
		seen[key] = f
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isIdentStart(c) || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBlockNotFound     = errors.New("block not found")
	ErrUnterminatedBlock = errors.New("unterminated block")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrRecordNotFound    = errors.New("record not found")
	ErrAmbiguousMatch    = errors.New("ambiguous match")
	ErrPostCondition     = errors.New("post-condition violation")
	ErrInvalidEdit       = errors.New("invalid edit")
	ErrBlockExists       = errors.New("block already exists")
)

// PatchError locates a failure inside a Document. Err is always one of the
// package sentinels so callers can use errors.Is.
type PatchError struct {
	Err      error
	Block    string
	Edit     int // 1-based position in the edit sequence, 0 when not tied to an edit
	EditKind Kind
	RecordID int // 0 when unknown
	Offset   int // byte offset, -1 when unknown
	Detail   string
}

func (e *PatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Block != "" {
		fmt.Fprintf(&b, " in block %q", e.Block)
	}
	if e.Edit > 0 {
		fmt.Fprintf(&b, " at edit %d", e.Edit)
		if e.EditKind != "" {
			fmt.Fprintf(&b, " (%s)", e.EditKind)
		}
	}
	switch {
	case e.RecordID > 0:
		fmt.Fprintf(&b, ", record id %d", e.RecordID)
	case e.Offset >= 0:
		fmt.Fprintf(&b, ", byte offset %d", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *PatchError) Unwrap() error { return e.Err }

func newError(sentinel error, format string, args ...any) *PatchError {
	return &PatchError{
		Err:    sentinel,
		Offset: -1,
		Detail: fmt.Sprintf(format, args...),
	}
}

func malformedAt(offset int, format string, args ...any) *PatchError {
	e := newError(ErrMalformedRecord, format, args...)
	e.Offset = offset
	return e
}

// annotate copies err with block/edit context filled in where missing and
// offsets shifted by base. Errors that are not *PatchError are wrapped.
func annotate(err error, block string, edit int, kind Kind, base int) error {
	var pe *PatchError
	if !errors.As(err, &pe) {
		return fmt.Errorf("block %q: %w", block, err)
	}
	out := *pe
	if out.Block == "" {
		out.Block = block
	}
	if out.Edit == 0 && edit > 0 {
		out.Edit = edit
		out.EditKind = kind
	}
	if out.Offset >= 0 {
		out.Offset += base
	}
	return &out
}

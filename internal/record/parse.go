package record

import "strconv"

// ParseRecords decodes the inner text of a named block (everything between
// "[" and "];") into records. Offsets in returned errors are relative to
// inner.
func ParseRecords(inner string, schema Schema) ([]Record, error) {
	p := &parser{lex: newLexer(inner), schema: schema}
	records, perr := p.parseList()
	if perr != nil {
		return nil, perr
	}
	return records, nil
}

// ParseRecordLiteral parses exactly one "{ ... }" literal. A trailing comma
// is tolerated so literals can be copied straight out of a block.
func ParseRecordLiteral(text string, schema Schema) (Record, error) {
	records, err := ParseRecords(text, schema)
	if err != nil {
		return Record{}, err
	}
	if len(records) != 1 {
		return Record{}, newError(ErrMalformedRecord, "expected exactly one record literal, found %d", len(records))
	}
	return records[0], nil
}

type parser struct {
	lex    *lexer
	schema Schema
	peeked *token
}

func (p *parser) next() (token, *PatchError) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	return p.lex.next()
}

func (p *parser) peek() (token, *PatchError) {
	if p.peeked == nil {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *parser) parseList() ([]Record, *PatchError) {
	var records []Record
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokEOF {
			return records, nil
		}
		if t.kind != tokLBrace {
			return nil, malformedAt(t.pos, "expected '{' to start a record, found %s", t.kind)
		}
		rec, err := p.parseRecord(t.pos)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)

		sep, err := p.next()
		if err != nil {
			return nil, err
		}
		switch sep.kind {
		case tokComma:
		case tokEOF:
			return records, nil
		default:
			e := malformedAt(sep.pos, "expected ',' after record, found %s", sep.kind)
			e.RecordID = rec.ID
			return nil, e
		}
	}
}

// parseRecord reads fields up to the closing brace. Errors name the record
// id once the id field has been read.
func (p *parser) parseRecord(open int) (Record, *PatchError) {
	var (
		rec  Record
		seen = make(map[Field]bool, len(allFields))
	)
	fail := func(e *PatchError) (Record, *PatchError) {
		if seen[FieldID] {
			e.RecordID = rec.ID
		}
		return Record{}, e
	}

	for {
		t, err := p.next()
		if err != nil {
			return fail(err)
		}
		switch t.kind {
		case tokRBrace:
			for _, f := range allFields {
				if !seen[f] {
					return fail(malformedAt(open, "record is missing field %q", p.schema.Key(f)))
				}
			}
			return rec, nil
		case tokEOF:
			return fail(malformedAt(open, "unbalanced '{': record is never closed"))
		case tokIdent:
		default:
			return fail(malformedAt(t.pos, "expected field name, found %s", t.kind))
		}

		field, ok := p.schema.FieldForKey(t.text)
		if !ok {
			return fail(malformedAt(t.pos, "unknown field %q", t.text))
		}
		if seen[field] {
			return fail(malformedAt(t.pos, "duplicate field %q", t.text))
		}

		colon, err := p.next()
		if err != nil {
			return fail(err)
		}
		if colon.kind != tokColon {
			return fail(malformedAt(colon.pos, "expected ':' after %q, found %s", t.text, colon.kind))
		}

		val, err := p.next()
		if err != nil {
			return fail(err)
		}
		if err := p.assign(&rec, field, t.text, val); err != nil {
			return fail(err)
		}
		seen[field] = true

		after, err := p.peek()
		if err != nil {
			return fail(err)
		}
		switch after.kind {
		case tokComma:
			p.peeked = nil
		case tokRBrace:
		case tokEOF:
			return fail(malformedAt(open, "unbalanced '{': record is never closed"))
		default:
			return fail(malformedAt(after.pos, "expected ',' or '}' after %q, found %s", t.text, after.kind))
		}
	}
}

func (p *parser) assign(rec *Record, field Field, key string, val token) *PatchError {
	if val.kind == tokLBrace || val.kind == tokLBracket {
		return malformedAt(val.pos, "nested values are not supported (field %q)", key)
	}
	if field.IsText() {
		if val.kind != tokString {
			return malformedAt(val.pos, "field %q must be a string, found %s", key, val.kind)
		}
		rec.SetText(field, val.text)
		return nil
	}
	if val.kind != tokInt {
		return malformedAt(val.pos, "field %q must be an integer, found %s", key, val.kind)
	}
	n, err := strconv.Atoi(val.text)
	if err != nil {
		return malformedAt(val.pos, "field %q: integer %s out of range", key, val.text)
	}
	if n < 1 {
		return malformedAt(val.pos, "field %q must be a positive integer, got %d", key, n)
	}
	if field == FieldID {
		rec.ID = n
	} else {
		rec.Count = n
	}
	return nil
}

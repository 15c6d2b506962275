package record

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBrace
	tokRBrace
	tokLBracket
	tokComma
	tokColon
	tokIdent
	tokInt
	tokString
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of block"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokComma:
		return "','"
	case tokColon:
		return "':'"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokString:
		return "string"
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string // identifier, digits, or decoded string value
	pos  int
}

// lexer tokenizes the inner text of a named block. It knows nothing about
// records; the parser gives the tokens meaning.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) next() (token, *PatchError) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '{':
		l.pos++
		return token{kind: tokLBrace, pos: start}, nil
	case c == '}':
		l.pos++
		return token{kind: tokRBrace, pos: start}, nil
	case c == '[':
		l.pos++
		return token{kind: tokLBracket, pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, pos: start}, nil
	case c == ':':
		l.pos++
		return token{kind: tokColon, pos: start}, nil
	case c == '"':
		return l.lexString()
	case c == '\'' || c == '`':
		return token{}, malformedAt(start, "only double-quoted strings are supported")
	case c == '/' && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '/' || l.src[l.pos+1] == '*'):
		return token{}, malformedAt(start, "comments inside a block are not supported")
	case c == '-' || (c >= '0' && c <= '9'):
		return l.lexInt()
	case isIdentStart(c):
		for l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || (l.src[l.pos] >= '0' && l.src[l.pos] <= '9')) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return token{}, malformedAt(start, "unexpected character %q", r)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) lexInt() (token, *PatchError) {
	start := l.pos
	if l.src[l.pos] == '-' {
		return token{}, malformedAt(start, "integers must be positive")
	}
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	if l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || l.src[l.pos] == '.') {
		return token{}, malformedAt(start, "invalid integer literal")
	}
	return token{kind: tokInt, text: l.src[start:l.pos], pos: start}, nil
}

// lexString decodes a double-quoted literal. A raw line break before the
// closing quote is the corruption this package exists to reject.
func (l *lexer) lexString() (token, *PatchError) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, malformedAt(start, "unterminated string literal")
		}
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\n', '\r':
			return token{}, malformedAt(l.pos, "raw line break inside string literal")
		case '\\':
			if err := l.lexEscape(&b); err != nil {
				return token{}, err
			}
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r == '\u2028' || r == '\u2029' {
				return token{}, malformedAt(l.pos, "raw line separator inside string literal")
			}
			b.WriteString(l.src[l.pos : l.pos+size])
			l.pos += size
		}
	}
}

func (l *lexer) lexEscape(b *strings.Builder) *PatchError {
	at := l.pos
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return malformedAt(at, "unterminated escape sequence")
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n', '\r':
		return malformedAt(at, "line continuation inside string literal")
	case 'x':
		v, err := l.hex(2)
		if err != nil {
			return malformedAt(at, "invalid \\x escape")
		}
		b.WriteRune(rune(v))
	case 'u':
		v, err := l.hex(4)
		if err != nil {
			return malformedAt(at, "invalid \\u escape")
		}
		r := rune(v)
		if utf16.IsSurrogate(r) && strings.HasPrefix(l.src[l.pos:], `\u`) {
			save := l.pos
			l.pos += 2
			if lo, err := l.hex(4); err == nil {
				if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
					b.WriteRune(pair)
					return nil
				}
			}
			l.pos = save
		}
		b.WriteRune(r)
	default:
		// Any other escaped character stands for itself, including \" and \\.
		r, size := utf8.DecodeRuneInString(l.src[l.pos-1:])
		l.pos += size - 1
		b.WriteRune(r)
	}
	return nil
}

func (l *lexer) hex(n int) (uint64, error) {
	if l.pos+n > len(l.src) {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(l.src[l.pos:l.pos+n], 16, 32)
	if err != nil {
		return 0, err
	}
	l.pos += n
	return v, nil
}

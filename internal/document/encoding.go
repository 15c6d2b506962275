package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is the single text encoding of a Document file.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF16   Encoding = "utf-16" // byte order taken from the BOM, which is required
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
)

// ErrEncodingMismatch means the file bytes are not valid in the configured
// encoding. It is raised before any parsing.
var ErrEncodingMismatch = errors.New("encoding mismatch")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ParseEncoding normalizes user spellings such as "UTF8" or "utf_16le".
func ParseEncoding(s string) (Encoding, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "").Replace(norm)
	switch norm {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-16", "utf16":
		return EncodingUTF16, nil
	case "utf-16le", "utf16le", "utf-16-le":
		return EncodingUTF16LE, nil
	case "utf-16be", "utf16be", "utf-16-be":
		return EncodingUTF16BE, nil
	}
	return "", fmt.Errorf("unsupported encoding %q (want utf-8, utf-16, utf-16le or utf-16be)", s)
}

func mismatch(enc Encoding, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrEncodingMismatch, enc, fmt.Sprintf(format, args...))
}

// Decode converts raw file bytes to text. It reports whether a BOM was
// present and resolves EncodingUTF16 to the concrete byte order.
func Decode(data []byte, enc Encoding) (text string, resolved Encoding, bom bool, err error) {
	switch enc {
	case EncodingUTF8, "":
		return decodeUTF8(data)
	case EncodingUTF16:
		switch {
		case bytes.HasPrefix(data, bomUTF16LE):
			return decodeUTF16(data[2:], EncodingUTF16LE, true)
		case bytes.HasPrefix(data, bomUTF16BE):
			return decodeUTF16(data[2:], EncodingUTF16BE, true)
		}
		return "", "", false, mismatch(enc, "no byte order mark")
	case EncodingUTF16LE:
		if bytes.HasPrefix(data, bomUTF16BE) {
			return "", "", false, mismatch(enc, "file starts with a big-endian byte order mark")
		}
		if bytes.HasPrefix(data, bomUTF16LE) {
			return decodeUTF16(data[2:], enc, true)
		}
		return decodeUTF16(data, enc, false)
	case EncodingUTF16BE:
		if bytes.HasPrefix(data, bomUTF16LE) {
			return "", "", false, mismatch(enc, "file starts with a little-endian byte order mark")
		}
		if bytes.HasPrefix(data, bomUTF16BE) {
			return decodeUTF16(data[2:], enc, true)
		}
		return decodeUTF16(data, enc, false)
	}
	return "", "", false, fmt.Errorf("unsupported encoding %q", enc)
}

func decodeUTF8(data []byte) (string, Encoding, bool, error) {
	if bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		return "", "", false, mismatch(EncodingUTF8, "file starts with a UTF-16 byte order mark")
	}
	bom := bytes.HasPrefix(data, bomUTF8)
	if bom {
		data = data[len(bomUTF8):]
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return "", "", false, mismatch(EncodingUTF8, "NUL byte at offset %d (UTF-16 without a BOM?)", i)
	}
	if !utf8.Valid(data) {
		return "", "", false, mismatch(EncodingUTF8, "invalid UTF-8 at byte offset %d", firstInvalid(data))
	}
	return string(data), EncodingUTF8, bom, nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

func utf16Codec(enc Encoding) encoding.Encoding {
	if enc == EncodingUTF16BE {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

func decodeUTF16(data []byte, enc Encoding, bom bool) (string, Encoding, bool, error) {
	if len(data)%2 != 0 {
		return "", "", false, mismatch(enc, "odd byte length %d", len(data))
	}
	out, err := utf16Codec(enc).NewDecoder().Bytes(data)
	if err != nil {
		return "", "", false, mismatch(enc, "%v", err)
	}
	// The decoder substitutes U+FFFD for unpaired surrogates.
	if i := bytes.IndexRune(out, utf8.RuneError); i >= 0 {
		return "", "", false, mismatch(enc, "invalid UTF-16 sequence (decoded text offset %d)", i)
	}
	return string(out), enc, bom, nil
}

// Encode converts text back to file bytes in enc, restoring the BOM when
// the original had one.
func Encode(text string, enc Encoding, bom bool) ([]byte, error) {
	switch enc {
	case EncodingUTF8, "":
		if !bom {
			return []byte(text), nil
		}
		return append(append([]byte{}, bomUTF8...), text...), nil
	case EncodingUTF16LE, EncodingUTF16BE:
		body, err := utf16Codec(enc).NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", enc, err)
		}
		if !bom {
			return body, nil
		}
		mark := bomUTF16LE
		if enc == EncodingUTF16BE {
			mark = bomUTF16BE
		}
		return append(append([]byte{}, mark...), body...), nil
	}
	return nil, fmt.Errorf("cannot encode to %q; resolve the byte order first", enc)
}

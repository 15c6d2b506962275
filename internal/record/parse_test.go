package record

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordsDecodesStrings(t *testing.T) {
	records := sampleRecords(t)

	assert.Equal(t, "أَعُوذُ بِاللَّهِ\nاللَّهُ لَا إِلَٰهَ إِلَّا هُوَ", records[0].Primary)
	assert.Equal(t, 3, records[1].Count)
	assert.Equal(t, "Surah Al-Ikhlas, Al-Falaq and An-Nas", records[1].Translation)
}

func TestParseRecordsEscapes(t *testing.T) {
	inner := `{ id: 1, arabic: "a\"b\\c\td\u0041", transliteration: "\ud83d\ude00", translation: "x\/y\'z\x41", count: 1 }`
	records, err := ParseRecords(inner, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "a\"b\\c\tdA", records[0].Primary)
	assert.Equal(t, "\U0001F600", records[0].Transliteration)
	assert.Equal(t, "x/y'zA", records[0].Translation)
}

func TestParseRecordsLayoutTolerance(t *testing.T) {
	// Fields in any order, CRLF line endings, no trailing commas.
	inner := "\r\n\t{ count: 2, translation: \"b\", transliteration: \"c\", arabic: \"d\", id: 7 },\r\n\t{id:8,arabic:\"e\",transliteration:\"f\",translation:\"g\",count:1}\r\n"
	records, err := ParseRecords(inner, DefaultSchema())
	require.NoError(t, err)

	want := []Record{
		{ID: 7, Primary: "d", Transliteration: "c", Translation: "b", Count: 2},
		{ID: 8, Primary: "e", Transliteration: "f", Translation: "g", Count: 1},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRecordsEmptyBlock(t *testing.T) {
	records, err := ParseRecords("\n  \n", DefaultSchema())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRecordsCustomSchema(t *testing.T) {
	schema := Schema{IDKey: "id", PrimaryKey: "text", TransliterationKey: "latin", TranslationKey: "english", CountKey: "repeat"}
	records, err := ParseRecords(`{ id: 1, text: "a", latin: "b", english: "c", repeat: 33 },`, schema)
	require.NoError(t, err)
	assert.Equal(t, 33, records[0].Count)

	_, err = ParseRecords(`{ id: 1, arabic: "a", latin: "b", english: "c", repeat: 33 },`, schema)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestParseRecordsMalformed(t *testing.T) {
	const full = `transliteration: "t", translation: "tr", count: 1`
	tests := []struct {
		name     string
		inner    string
		wantID   int
		contains string
	}{
		{"missing field", `{ id: 4, arabic: "a", transliteration: "t", count: 1 }`, 4, `missing field "translation"`},
		{"duplicate field", `{ id: 4, arabic: "a", arabic: "b", ` + full + ` }`, 4, `duplicate field "arabic"`},
		{"unknown field", `{ id: 4, latin: "a", ` + full + ` }`, 4, `unknown field "latin"`},
		{"raw newline in string", "{ id: 5, arabic: \"line one\nline two\", " + full + " }", 5, "raw line break"},
		{"raw carriage return", "{ id: 5, arabic: \"a\rb\", " + full + " }", 5, "raw line break"},
		{"unterminated string", `{ id: 6, arabic: "never closed`, 6, "unterminated string"},
		{"unbalanced brace", `{ id: 2, arabic: "a", ` + full, 2, "never closed"},
		{"zero count", `{ id: 2, arabic: "a", transliteration: "t", translation: "tr", count: 0 }`, 2, "positive integer"},
		{"negative id", `{ id: -1, arabic: "a", ` + full + ` }`, 0, "positive"},
		{"string id", `{ id: "1", arabic: "a", ` + full + ` }`, 0, "must be an integer"},
		{"number text", `{ id: 1, arabic: 12, ` + full + ` }`, 1, "must be a string"},
		{"nested object", `{ id: 1, arabic: { x: 1 }, ` + full + ` }`, 1, "nested values"},
		{"nested array", `{ id: 1, arabic: ["a"], ` + full + ` }`, 1, "nested values"},
		{"line comment", "// note\n{ id: 1, arabic: \"a\", " + full + " }", 0, "comments"},
		{"single quotes", `{ id: 1, arabic: 'a', ` + full + ` }`, 1, "double-quoted"},
		{"missing comma between records", `{ id: 1, arabic: "a", ` + full + ` } { id: 2 }`, 1, "expected ','"},
		{"missing colon", `{ id 1 }`, 0, "expected ':'"},
		{"stray token", `id: 1`, 0, "expected '{'"},
		{"empty record", `{}`, 0, `missing field "id"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecords(tt.inner, DefaultSchema())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)
			assert.ErrorContains(t, err, tt.contains)

			var pe *PatchError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantID, pe.RecordID)
			if tt.wantID == 0 {
				assert.GreaterOrEqual(t, pe.Offset, 0, "without an id the error must carry a byte offset")
			}
		})
	}
}

func TestParseRecordsOffsetPointsAtProblem(t *testing.T) {
	inner := "\n  { id: 1, arabic: \"ok\", transliteration: \"t\", translation: \"tr\", count: 1 },\n  { id: 2, arabic: \"bad\nbreak\" }"
	_, err := ParseRecords(inner, DefaultSchema())

	var pe *PatchError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.RecordID)
	assert.Equal(t, byte('\n'), inner[pe.Offset])
}

func TestParseRecordLiteral(t *testing.T) {
	r, err := ParseRecordLiteral(`{ id: 9, arabic: "a", transliteration: "b", translation: "c", count: 100 },`, DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, Record{ID: 9, Primary: "a", Transliteration: "b", Translation: "c", Count: 100}, r)

	_, err = ParseRecordLiteral("", DefaultSchema())
	assert.ErrorIs(t, err, ErrMalformedRecord)

	two := `{ id: 1, arabic: "a", transliteration: "b", translation: "c", count: 1 }, { id: 2, arabic: "a", transliteration: "b", translation: "c", count: 1 }`
	_, err = ParseRecordLiteral(two, DefaultSchema())
	assert.ErrorContains(t, err, "exactly one")
}

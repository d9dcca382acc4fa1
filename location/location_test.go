package location

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		source string
		offset int
		want   Position
	}{
		{"start of source", "abc\ndef", 0, Position{0, 0}},
		{"first line", "abc\ndef", 2, Position{0, 2}},
		{"on newline", "abc\ndef", 3, Position{0, 3}},
		{"second line", "abc\ndef", 5, Position{1, 1}},
		{"end of source", "abc\ndef", 7, Position{1, 3}},
		{"empty source", "", 0, Position{0, 0}},
		{"trailing newline", "a\n", 2, Position{1, 0}},
		{"blank lines", "\n\n\nx", 3, Position{3, 0}},
		{"multibyte counts code points", "λx\nπ = 1", 4, Position{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.source, Span{Start: tt.offset, End: tt.offset})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOutOfRange(t *testing.T) {
	_, err := Resolve("abc", Span{Start: 4, End: 4})
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = Resolve("abc", Span{Start: -1, End: 0})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestResolveMatchesLineTerminatorCount(t *testing.T) {
	source := "let x = 1;\n\nlet y = [1, 2];\n  x + y\n"
	runes := []rune(source)

	for o := 0; o <= len(runes); o++ {
		pos, err := Resolve(source, Span{Start: o, End: o})
		require.NoError(t, err)

		prefix := string(runes[:o])
		assert.Equal(t, strings.Count(prefix, "\n"), pos.Line, "line at offset %d", o)

		lastBreak := strings.LastIndex(prefix, "\n")
		assert.Equal(t, len([]rune(prefix[lastBreak+1:])), pos.Column, "column at offset %d", o)
	}
}

func TestText(t *testing.T) {
	got, err := Text("let λ = 1;", Span{Start: 4, End: 5})
	require.NoError(t, err)
	assert.Equal(t, "λ", got)

	_, err = Text("abc", Span{Start: 2, End: 5})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Text("abc", Span{Start: 2, End: 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

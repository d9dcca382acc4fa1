// Package location maps character offsets reported by the interpreter onto
// line/column positions and renders framed source excerpts around them.
//
// Offsets count Unicode code points, not bytes, since that is how the
// interpreter measures its source.
package location

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrOutOfRange reports a span that does not fit inside its source.
var ErrOutOfRange = errors.New("location out of range")

// Span is a half-open range of code point offsets into a source string.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Position is a 0-indexed line and column.
type Position struct {
	Line   int
	Column int
}

// Resolve returns the line and column of span.Start within source.
// A start beyond the end of source is a caller bug and yields ErrOutOfRange
// rather than a clamped position.
func Resolve(source string, span Span) (Position, error) {
	if span.Start < 0 {
		return Position{}, fmt.Errorf("%w: offset %d", ErrOutOfRange, span.Start)
	}

	var pos Position
	offset := 0
	for _, r := range source {
		if offset == span.Start {
			return pos, nil
		}
		offset++
		pos.Column++
		if r == '\n' {
			pos.Line++
			pos.Column = 0
		}
	}

	if offset == span.Start {
		return pos, nil
	}
	return Position{}, fmt.Errorf("%w: offset %d exceeds source length %d", ErrOutOfRange, span.Start, offset)
}

// Text returns the code points covered by span.
func Text(source string, span Span) (string, error) {
	n := utf8.RuneCountInString(source)
	if span.Start < 0 || span.End < span.Start || span.End > n {
		return "", fmt.Errorf("%w: span [%d, %d) in source of length %d", ErrOutOfRange, span.Start, span.End, n)
	}

	runes := []rune(source)
	return string(runes[span.Start:span.End]), nil
}

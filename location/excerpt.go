package location

import (
	"fmt"
	"strings"
)

// ExcerptContext is the number of lines shown on each side of the target line.
const ExcerptContext = 2

// Caret marks the offending column under the target line.
const Caret = "^~~"

// ExcerptLine is one source line inside an excerpt window.
type ExcerptLine struct {
	Number int // 1-based
	Text   string
	Target bool
}

// Prefix returns the gutter printed before the line text.
func (l ExcerptLine) Prefix() string {
	return fmt.Sprintf("%2d: ", l.Number)
}

// Excerpt returns the window of lines around span.Start together with its
// resolved position.
func Excerpt(source string, span Span) ([]ExcerptLine, Position, error) {
	pos, err := Resolve(source, span)
	if err != nil {
		return nil, Position{}, err
	}

	lines := strings.Split(source, "\n")
	first := max(0, pos.Line-ExcerptContext)
	last := min(len(lines)-1, pos.Line+ExcerptContext)

	window := make([]ExcerptLine, 0, last-first+1)
	for i := first; i <= last; i++ {
		window = append(window, ExcerptLine{
			Number: i + 1,
			Text:   lines[i],
			Target: i == pos.Line,
		})
	}
	return window, pos, nil
}

// CaretLine returns the marker line pointing at column under l.
func (l ExcerptLine) CaretLine(column int) string {
	return strings.Repeat(" ", column+len(l.Prefix())) + Caret
}

// RenderExcerpt renders the excerpt window as plain text, one line per
// source line plus a caret line under the target.
func RenderExcerpt(source string, span Span) (string, error) {
	window, pos, err := Excerpt(source, span)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, line := range window {
		b.WriteString(line.Prefix())
		b.WriteString(line.Text)
		b.WriteByte('\n')
		if line.Target {
			b.WriteString(line.CaretLine(pos.Column))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Package diagnostic turns interpreter replies into the text shown to the
// user: framed error reports, solution parts and test case summaries.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/caffeineduck/santabox/executor"
	"github.com/caffeineduck/santabox/location"
)

// DefaultName labels error locators coming from the editor.
const DefaultName = "editor"

// Formatter renders replies. The zero value renders plain text with the
// DefaultName locator.
type Formatter struct {
	Name  string
	Theme Theme
}

// New returns a Formatter labelling locators with name.
func New(name string, theme Theme) *Formatter {
	return &Formatter{Name: name, Theme: theme}
}

func (f *Formatter) name() string {
	if f.Name == "" {
		return DefaultName
	}
	return f.Name
}

// FormatError renders a script failure: the message, a framed excerpt of the
// failing line, a locator and one line per trace frame.
func (f *Formatter) FormatError(source string, e executor.ExecutionError) (string, error) {
	window, pos, err := location.Excerpt(source, e.Location)
	if err != nil {
		return "", fmt.Errorf("format error %q: %w", e.Message, err)
	}

	var b strings.Builder
	b.WriteString(apply(f.Theme.Message, e.Message))
	b.WriteString("\n\n")

	for _, line := range window {
		if line.Target {
			b.WriteString(apply(f.Theme.Target, line.Prefix()+line.Text))
			b.WriteByte('\n')
			b.WriteString(apply(f.Theme.Caret, line.CaretLine(pos.Column)))
		} else {
			b.WriteString(apply(f.Theme.Gutter, line.Prefix()+line.Text))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\n%s:%s\n", f.name(), apply(f.Theme.Locator, lineColumn(pos)))

	for _, span := range e.Trace {
		frame, err := traceFrame(source, span)
		if err != nil {
			return "", fmt.Errorf("format trace of %q: %w", e.Message, err)
		}
		fmt.Fprintf(&b, "  %s:%s\n", apply(f.Theme.Trace, frame.text), apply(f.Theme.Locator, lineColumn(frame.pos)))
	}

	return b.String(), nil
}

type frame struct {
	text string
	pos  location.Position
}

// traceFrame keeps only the first line of the spanned text.
func traceFrame(source string, span location.Span) (frame, error) {
	pos, err := location.Resolve(source, span)
	if err != nil {
		return frame{}, err
	}
	text, err := location.Text(source, span)
	if err != nil {
		return frame{}, err
	}
	first, _, _ := strings.Cut(text, "\n")
	return frame{text: strings.TrimSpace(first), pos: pos}, nil
}

func lineColumn(pos location.Position) string {
	return fmt.Sprintf("%d:%d", pos.Line+1, pos.Column+1)
}

// FormatRunResult renders a bare value verbatim, or one line per present
// solution part.
func (f *Formatter) FormatRunResult(result executor.RunResult) string {
	if result.Value != nil {
		return *result.Value
	}

	var b strings.Builder
	for i, part := range []*executor.Part{result.PartOne, result.PartTwo} {
		if part == nil {
			continue
		}
		fmt.Fprintf(&b, "Part %d: %s %s\n",
			i+1,
			apply(f.Theme.Pass, part.Value),
			apply(f.Theme.Duration, fmt.Sprintf("%dms", part.Duration)),
		)
	}
	return b.String()
}

// FormatTestResult renders each test case in order. Pass/fail is taken from
// the interpreter as is.
func (f *Formatter) FormatTestResult(cases []*executor.TestCase) string {
	var b strings.Builder
	for i, tc := range cases {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(apply(f.Theme.Heading, fmt.Sprintf("Testcase %d", i+1)))
		b.WriteByte('\n')

		if tc == nil || (tc.PartOne == nil && tc.PartTwo == nil) {
			b.WriteString("No expectations\n")
			continue
		}

		for n, part := range []*executor.TestCaseResult{tc.PartOne, tc.PartTwo} {
			if part == nil {
				continue
			}
			if part.Passed {
				fmt.Fprintf(&b, "Part %d: %s %s\n", n+1, part.Actual, apply(f.Theme.Pass, "✔️"))
			} else {
				fmt.Fprintf(&b, "Part %d: %s %s\n", n+1, part.Actual,
					apply(f.Theme.Fail, fmt.Sprintf("✘ (Expected: %s)", part.Expected)))
			}
		}
	}
	return b.String()
}

// Passed reports whether every present expectation in cases passed.
func Passed(cases []*executor.TestCase) bool {
	for _, tc := range cases {
		if tc == nil {
			continue
		}
		if (tc.PartOne != nil && !tc.PartOne.Passed) || (tc.PartTwo != nil && !tc.PartTwo.Passed) {
			return false
		}
	}
	return true
}

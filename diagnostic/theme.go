package diagnostic

import "github.com/charmbracelet/lipgloss"

// Theme styles the pieces of a report. A nil field leaves text unchanged.
type Theme struct {
	Message  func(string) string
	Gutter   func(string) string
	Target   func(string) string
	Caret    func(string) string
	Locator  func(string) string
	Trace    func(string) string
	Pass     func(string) string
	Fail     func(string) string
	Duration func(string) string
	Heading  func(string) string
}

// PlainTheme renders reports without any escape sequences.
func PlainTheme() Theme {
	return Theme{}
}

// ANSITheme colours reports for a terminal on stdout. Colours are dropped
// when stdout is not a terminal.
func ANSITheme() Theme {
	return ANSIThemeFor(lipgloss.DefaultRenderer())
}

// ANSIThemeFor colours reports with the colour profile of r.
func ANSIThemeFor(r *lipgloss.Renderer) Theme {
	red := r.NewStyle().Foreground(lipgloss.Color("1"))
	green := r.NewStyle().Foreground(lipgloss.Color("2"))
	white := r.NewStyle().Foreground(lipgloss.Color("7"))
	grey := r.NewStyle().Foreground(lipgloss.Color("8"))
	faint := r.NewStyle().Faint(true)
	underline := r.NewStyle().Underline(true)

	return Theme{
		Message:  render(red),
		Gutter:   render(faint),
		Target:   render(white),
		Caret:    render(red),
		Locator:  render(green),
		Trace:    render(faint),
		Pass:     render(green),
		Fail:     render(red),
		Duration: render(grey),
		Heading:  render(underline),
	}
}

func render(style lipgloss.Style) func(string) string {
	return func(s string) string { return style.Render(s) }
}

func apply(style func(string) string, s string) string {
	if style == nil {
		return s
	}
	return style(s)
}

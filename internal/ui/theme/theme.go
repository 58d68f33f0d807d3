package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette for terminal output of solutions and marking.
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Working = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(4)

	Tip = lipgloss.NewStyle().
		Foreground(Accent).
		PaddingLeft(4)
)

// Blocks
var (
	Answer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Success).
		Padding(0, 1)

	Warning = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Foreground(Accent).
		Padding(0, 1)
)

// Marking states
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Partial = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Missing = lipgloss.NewStyle().
		Foreground(TextDim).
		Bold(true)
)

// StatusStyle returns the style for a step status such as "correct" or
// "partially_correct".
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "correct":
		return Correct
	case "partially_correct":
		return Partial
	case "incorrect":
		return Incorrect
	default:
		return Missing
	}
}

// Meter
var (
	MeterFilled = lipgloss.NewStyle().
			Background(Secondary)

	MeterEmpty = lipgloss.NewStyle().
			Background(Border)
)

package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/denimozh/mathstutor-sub000/internal/ui/theme"
)

// Meter is a horizontal bar showing Value out of Max, used for marks and
// confidence.
type Meter struct {
	Label string
	Value float64
	Max   float64
	Width int

	// Suffix overrides the "value/max" text after the bar.
	Suffix string
}

// Fraction returns Value/Max clamped to [0,1].
func (m Meter) Fraction() float64 {
	if m.Max <= 0 {
		return 0
	}
	f := m.Value / m.Max
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// View renders the meter.
func (m Meter) View() string {
	var result string
	if m.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(m.Label) + "  "
	}

	suffix := m.Suffix
	if suffix == "" {
		suffix = fmt.Sprintf("%g/%g", m.Value, m.Max)
	}
	suffix = "  " + suffix

	barWidth := m.Width - lipgloss.Width(result) - len(suffix)
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(float64(barWidth)*m.Fraction() + 0.5)
	empty := barWidth - filled

	result += theme.MeterFilled.Render(strings.Repeat(" ", filled))
	result += theme.MeterEmpty.Render(strings.Repeat(" ", empty))
	result += lipgloss.NewStyle().Foreground(theme.TextDim).Render(suffix)
	return result
}

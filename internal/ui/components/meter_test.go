package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestMeter_Fraction(t *testing.T) {
	tests := []struct {
		m    Meter
		want float64
	}{
		{Meter{Value: 3, Max: 5}, 0.6},
		{Meter{Value: 7, Max: 5}, 1},
		{Meter{Value: -1, Max: 5}, 0},
		{Meter{Value: 1, Max: 0}, 0},
	}
	for _, tt := range tests {
		if got := tt.m.Fraction(); got != tt.want {
			t.Errorf("%+v: Fraction() = %v, want %v", tt.m, got, tt.want)
		}
	}
}

func TestMeter_View(t *testing.T) {
	out := Meter{Label: "Marks", Value: 3, Max: 5, Width: 30}.View()
	if !strings.Contains(out, "Marks") || !strings.Contains(out, "3/5") {
		t.Fatalf("unexpected view %q", out)
	}
	if w := lipgloss.Width(out); w != 30 {
		t.Fatalf("width = %d, want 30", w)
	}

	custom := Meter{Value: 0.6, Max: 1, Width: 20, Suffix: "60%"}.View()
	if !strings.Contains(custom, "60%") {
		t.Fatalf("suffix not rendered: %q", custom)
	}
}

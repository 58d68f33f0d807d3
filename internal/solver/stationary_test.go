package solver

import (
	"context"
	"strings"
	"testing"
)

func TestExtractDerivative(t *testing.T) {
	tests := []struct {
		name, text, want string
		ok               bool
	}{
		{"given derivative", "A curve has dy/dx = 3x^2 - 12x + 9. Find its stationary points.", "3*x^2 - 12*x + 9", true},
		{"function notation", "f'(x) = 2(x - 1) where x is real", "2*(x - 1)", true},
		{"polynomial curve", "Find the stationary points on y = x^3 - 6x^2 + 9x + 1 and their nature.", "(3)*x^2 + (-12)*x^1 + (9)", true},
		{"condition only", "Solve dy/dx = 0 for the curve y = x^2 - 4x.", "(2)*x^1 + (-4)", true},
		{"not polynomial", "Find the stationary points of y = sin x.", "", false},
		{"nothing", "Find the turning points.", "", false},
		{"typeset minus and superscript", "Find the stationary points on y = x² − 4x + 1.", "(2)*x^1 + (-4)", true},
		{"typeset quartic", "Find the stationary points of y = 3x⁴ − 8x³", "(12)*x^3 + (-24)*x^2", true},
		{"stops at unsupported symbol", "Find the stationary points of y = 2x^2 + 3√x.", "", false},
		{"runs into another variable", "Find the turning point where y = x^2 + 3k and k > 0.", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractDerivative(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("extractDerivative() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCheckStationaryPoints(t *testing.T) {
	q := "Find the coordinates of the stationary points on the curve y = x^3 - 6x^2 + 9x + 1."

	correct := map[string]any{
		"maximum": map[string]any{"x": 1.0, "y": 5.0},
		"minimum": map[string]any{"x": 3.0, "y": 1.0},
	}
	check, ok := CheckStationaryPoints(q, correct)
	if !ok {
		t.Fatal("expected the check to run")
	}
	if len(check.Values) != 2 || len(check.Failures()) != 0 {
		t.Fatalf("unexpected check: %+v", check)
	}

	wrong := map[string]any{"x": []any{1.0, 2.0}}
	check, ok = CheckStationaryPoints(q, wrong)
	if !ok || len(check.Failures()) != 1 || check.Failures()[0] != 2 {
		t.Fatalf("expected x = 2 to fail, got %+v", check)
	}

	if _, ok := CheckStationaryPoints("Solve 2x = 4 where y = 2x", map[string]any{"x": 2.0}); ok {
		t.Fatal("non-stationary question should be skipped")
	}
	if _, ok := CheckStationaryPoints(q, "no numbers here"); ok {
		t.Fatal("answer without x values should be skipped")
	}
}

func TestCheckStationaryPoints_TypesetQuestions(t *testing.T) {
	tests := []struct {
		question string
		answer   map[string]any
	}{
		{"Find the stationary point on y = x² − 4x + 1.", map[string]any{"x": 2.0, "y": -3.0}},
		{"Find the stationary points of y = 3x⁴ − 8x³.", map[string]any{"stationary_x": []any{0.0, 2.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			check, ok := CheckStationaryPoints(tt.question, tt.answer)
			if !ok {
				t.Fatal("expected the check to run")
			}
			if f := check.Failures(); len(f) != 0 {
				t.Fatalf("correct answer flagged at %v (dy/dx = %s)", f, check.Derivative)
			}
		})
	}

	if _, ok := CheckStationaryPoints("Find the stationary points of y = 2x^2 + 3√x.", map[string]any{"x": 1.0}); ok {
		t.Fatal("unsupported expression should be skipped")
	}
}

func TestValidateAndRepair_StationaryWarning(t *testing.T) {
	q := "Find the stationary points on the curve y = x^3 - 3x."
	raw := `{
  "steps": [{"step_number": 1, "title": "Differentiate", "working": "3x^2 - 3 = 0"}],
  "final_answer": {"stationary_x": [1, 2]},
  "verification": {"method": "substitution", "passes": true},
  "confidence": 0.95
}`
	res, err := ValidateAndRepair(context.Background(), raw, singleContext(q), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != ReviewConfidence || res.WasCorrected || res.NeedsReview {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "x = 2") {
		t.Fatalf("warnings = %v", res.Warnings)
	}

	ok := strings.Replace(raw, "[1, 2]", "[1, -1]", 1)
	res, err = ValidateAndRepair(context.Background(), ok, singleContext(q), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 0 || res.Confidence != 0.95 {
		t.Fatalf("correct answer flagged: %+v", res)
	}
}

func TestClaimedX(t *testing.T) {
	got := claimedX(map[string]any{
		"points": []any{
			map[string]any{"x": 1.0, "y": 2.0},
			map[string]any{"X": -1.0, "y": 0.0},
		},
		"x_values": []any{4.0},
		"label":    "x",
		"y_at_x":   7.0,
	})
	if len(got) != 3 {
		t.Fatalf("claimedX = %v", got)
	}
}

func TestIsXKey(t *testing.T) {
	tests := map[string]bool{
		"x":               true,
		"x_1":             true,
		"x2":              true,
		"x_values":        true,
		"stationary_x":    true,
		"turning_point_x": true,
		"min_x":           true,
		"y":               false,
		"y_at_x":          false,
		"gradient_at_x":   false,
		"max_y":           false,
		"xmax":            false,
	}
	for key, want := range tests {
		if got := isXKey(key); got != want {
			t.Errorf("isXKey(%q) = %v, want %v", key, got, want)
		}
	}
}

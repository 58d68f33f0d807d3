package solver

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// StationaryTolerance is the largest |dy/dx| accepted at a claimed
// stationary point.
const StationaryTolerance = 0.02

var (
	stationaryRe = regexp.MustCompile(`(?i)stationary|turning point`)

	// Only polynomial-looking text in x is captured; anything else is a no-op.
	derivativeRe = regexp.MustCompile(`(?i)(?:dy/dx|f'\(x\))\s*=\s*([-+*/^().\dx ]+)`)
	curveRe      = regexp.MustCompile(`(?i)(?:\by|\bf\(x\))\s*=\s*([-+*/^().\dx ]+)`)

	implicitMulRe = regexp.MustCompile(`(\d|\))\s*(x|\()`)
	xParenRe      = regexp.MustCompile(`x\s*\(`)
	termRe        = regexp.MustCompile(`^([+-]?)(\d*\.?\d*)\*?(x(?:\^(\d+))?)?$`)

	xKeyRe = regexp.MustCompile(`^(?:x(?:_?\d+|_values?|_coords?|_coordinates?)?|(?:stationary|turning|critical|min|max|minimum|maximum)(?:_points?)?_x(?:_?\d+)?)$`)
)

var superscriptDigits = map[rune]byte{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

// StationaryCheck is the outcome of evaluating dy/dx at claimed x values.
type StationaryCheck struct {
	Derivative string
	Values     map[float64]float64
}

// Failures returns the x values where |dy/dx| is at or above the tolerance,
// in ascending order.
func (c StationaryCheck) Failures() []float64 {
	var out []float64
	for x, v := range c.Values {
		if math.Abs(v) >= StationaryTolerance {
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}

// CheckStationaryPoints evaluates the question's derivative at every x the
// answer claims. ok is false when the question is not a stationary point
// question or no derivative or x values could be extracted.
func CheckStationaryPoints(questionText string, finalAnswer any) (StationaryCheck, bool) {
	if !stationaryRe.MatchString(questionText) {
		return StationaryCheck{}, false
	}
	deriv, ok := extractDerivative(questionText)
	if !ok {
		return StationaryCheck{}, false
	}
	xs := claimedX(finalAnswer)
	if len(xs) == 0 {
		return StationaryCheck{}, false
	}

	program, err := expr.Compile(deriv, expr.Env(map[string]any{"x": 0.0}), expr.AsFloat64())
	if err != nil {
		return StationaryCheck{}, false
	}
	check := StationaryCheck{Derivative: deriv, Values: make(map[float64]float64, len(xs))}
	for _, x := range xs {
		out, err := expr.Run(program, map[string]any{"x": x})
		if err != nil {
			return StationaryCheck{}, false
		}
		v, ok := out.(float64)
		if !ok {
			return StationaryCheck{}, false
		}
		check.Values[x] = v
	}
	return check, true
}

// applyStationaryCheck attaches a warning and caps confidence when a claimed
// stationary point does not have zero gradient. It never changes
// WasCorrected.
func applyStationaryCheck(res *Result, questionText string) {
	check, ok := CheckStationaryPoints(questionText, res.FinalAnswer)
	if !ok {
		return
	}
	for _, x := range check.Failures() {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"stationary point check: dy/dx = %s evaluates to %.4g at x = %g, expected 0",
			check.Derivative, check.Values[x], x))
		res.capConfidence(ReviewConfidence)
	}
}

// extractDerivative returns an expr-compatible derivative, either given in
// the question or obtained by differentiating a polynomial curve.
func extractDerivative(text string) (string, bool) {
	text = normalizeMathText(text)
	// "dy/dx = 0" states the condition, not the derivative.
	if m, ok := matchWhole(derivativeRe, text); ok && strings.Contains(strings.ToLower(m), "x") {
		return normalizeExpr(m), true
	}
	if m, ok := matchWhole(curveRe, text); ok {
		return differentiatePolynomial(normalizeExpr(m))
	}
	return "", false
}

// matchWhole returns the first capture of re only when it runs to a clause
// boundary. A capture cut short by an unsupported symbol is not a
// polynomial and must not be checked.
func matchWhole(re *regexp.Regexp, text string) (string, bool) {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", false
	}
	capture := text[loc[2]:loc[3]]
	if loc[3] == len(text) {
		return capture, true
	}
	next := text[loc[3]]
	switch {
	case strings.IndexByte(".,;:!?\n\r\t", next) >= 0:
		return capture, true
	case isASCIILetter(next):
		// "x^2 + 3 has" ends at a word; "x^2 + 3y" does not.
		return capture, strings.HasSuffix(capture, " ") || strings.HasSuffix(capture, ".")
	}
	return "", false
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// normalizeMathText rewrites typeset minus signs, multiplication signs and
// superscript powers into the ASCII forms the patterns expect.
func normalizeMathText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSup := false
	for _, r := range s {
		if d, ok := superscriptDigits[r]; ok {
			if !inSup {
				b.WriteByte('^')
				inSup = true
			}
			b.WriteByte(d)
			continue
		}
		inSup = false
		switch r {
		case '−', '–':
			b.WriteByte('-')
		case '×':
			b.WriteByte('*')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeExpr trims trailing punctuation and makes implicit
// multiplication explicit: "3x^2 - 2(x+1)" becomes "3*x^2 - 2*(x+1)".
func normalizeExpr(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ". ")
	s = implicitMulRe.ReplaceAllString(s, "$1*$2")
	s = xParenRe.ReplaceAllString(s, "x*(")
	return s
}

// differentiatePolynomial handles sums of terms c*x^n with non-negative
// integer n.
func differentiatePolynomial(poly string) (string, bool) {
	compact := strings.ReplaceAll(poly, " ", "")
	if compact == "" {
		return "", false
	}

	var terms []string
	start := 0
	for i := 1; i < len(compact); i++ {
		if (compact[i] == '+' || compact[i] == '-') && compact[i-1] != '^' && compact[i-1] != '*' {
			terms = append(terms, compact[start:i])
			start = i
		}
	}
	terms = append(terms, compact[start:])

	var out []string
	for _, t := range terms {
		m := termRe.FindStringSubmatch(t)
		if m == nil || (m[2] == "" && m[3] == "") {
			return "", false
		}
		if m[3] == "" {
			continue
		}
		coef := 1.0
		if m[2] != "" {
			c, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return "", false
			}
			coef = c
		}
		if m[1] == "-" {
			coef = -coef
		}
		power := 1
		if m[4] != "" {
			p, err := strconv.Atoi(m[4])
			if err != nil {
				return "", false
			}
			power = p
		}
		switch {
		case power == 0:
			continue
		case power == 1:
			out = append(out, fmt.Sprintf("(%g)", coef))
		default:
			out = append(out, fmt.Sprintf("(%g)*x^%d", coef*float64(power), power-1))
		}
	}
	if len(out) == 0 {
		return "0", true
	}
	return strings.Join(out, " + "), true
}

// claimedX collects numeric x values from an answer: fields such as "x",
// "x_1", "x_values" or "stationary_x", directly or in nested objects and
// arrays.
func claimedX(v any) []float64 {
	var xs []float64
	var walk func(v any, key string)
	walk = func(v any, key string) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k], strings.ToLower(k))
			}
		case []any:
			for _, e := range t {
				walk(e, key)
			}
		case float64:
			if isXKey(key) {
				xs = append(xs, t)
			}
		}
	}
	walk(v, "")
	return xs
}

func isXKey(k string) bool {
	return xKeyRe.MatchString(k)
}

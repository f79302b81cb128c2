// Package grading is the single home of percentage arithmetic shared by the
// assignment, exam-result and leaderboard read paths.
//
// Rounding policy:
//   - stored exam percentages: 2 decimals (Percent)
//   - averages and table rows: 1 decimal (Round1)
//   - chart points, subject scores, leaderboard points: integers (RoundInt)
package grading

import "math"

// Letter grades.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeF = "F"
)

// Letters lists the letter grades from best to worst.
var Letters = []string{GradeA, GradeB, GradeC, GradeD, GradeF}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 { return Round(v, 1) }

// RoundInt rounds to the nearest integer.
func RoundInt(v float64) int { return int(math.Round(v)) }

// Ratio returns obtained/possible*100 without rounding. A non-positive
// possible value yields 0.
func Ratio(obtained, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return obtained / possible * 100
}

// Percent is the stored exam percentage: Ratio rounded to 2 decimals.
func Percent(obtained, possible float64) float64 {
	return Round(Ratio(obtained, possible), 2)
}

// Letter maps a percentage onto the A-F scale
// (A >= 90, B >= 80, C >= 70, D >= 60, else F).
func Letter(pct float64) string {
	switch {
	case pct >= 90:
		return GradeA
	case pct >= 80:
		return GradeB
	case pct >= 70:
		return GradeC
	case pct >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// Clamp limits v to [0, 100].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Distribution counts percentages per letter grade. Every letter is present
// in the result, with zero when unused.
func Distribution(pcts []float64) map[string]int {
	out := make(map[string]int, len(Letters))
	for _, l := range Letters {
		out[l] = 0
	}
	for _, p := range pcts {
		out[Letter(p)]++
	}
	return out
}

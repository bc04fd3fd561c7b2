// Package grading maps numeric marks onto letter grades.
package grading

// Marks bounds accepted by the ledger. Callers must reject values outside
// this range before asking for a letter.
const (
	MinMarks = 0
	MaxMarks = 100
)

// ValidMarks reports whether marks fall within the accepted range.
func ValidMarks(marks int) bool {
	return marks >= MinMarks && marks <= MaxMarks
}

// Letter returns the letter grade for marks in [MinMarks, MaxMarks].
// Bands are inclusive on their lower bound, first match wins.
func Letter(marks int) string {
	switch {
	case marks >= 90:
		return "A"
	case marks >= 80:
		return "B"
	case marks >= 70:
		return "C"
	case marks >= 60:
		return "D"
	default:
		return "F"
	}
}

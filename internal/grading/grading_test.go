package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterBoundaries(t *testing.T) {
	cases := []struct {
		marks  int
		letter string
	}{
		{100, "A"},
		{90, "A"},
		{89, "B"},
		{85, "B"},
		{80, "B"},
		{79, "C"},
		{70, "C"},
		{69, "D"},
		{60, "D"},
		{59, "F"},
		{1, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.letter, Letter(tc.marks), "marks=%d", tc.marks)
	}
}

func TestLetterTotalOverDomain(t *testing.T) {
	known := map[string]struct{}{"A": {}, "B": {}, "C": {}, "D": {}, "F": {}}
	prev := Letter(MaxMarks)
	for m := MaxMarks; m >= MinMarks; m-- {
		letter := Letter(m)
		_, ok := known[letter]
		assert.True(t, ok, "marks=%d produced unknown letter %q", m, letter)
		// letters only get worse as marks decrease
		assert.GreaterOrEqual(t, bandRank(letter), bandRank(prev), "marks=%d", m)
		prev = letter
	}
}

func TestValidMarks(t *testing.T) {
	assert.True(t, ValidMarks(0))
	assert.True(t, ValidMarks(100))
	assert.False(t, ValidMarks(-1))
	assert.False(t, ValidMarks(101))
}

func bandRank(letter string) int {
	switch letter {
	case "A":
		return 0
	case "B":
		return 1
	case "C":
		return 2
	case "D":
		return 3
	default:
		return 4
	}
}

package score

import (
	"fmt"
	"strings"
)

// Label is the categorical tier of a score.
type Label string

const (
	Beginner  Label = "Beginner"
	Average   Label = "Average"
	Good      Label = "Good"
	Better    Label = "Better"
	Excellent Label = "Excellent"
)

// Labels lists all tiers in ascending order.
var Labels = []Label{Beginner, Average, Good, Better, Excellent}

// upper bounds are exclusive; anything above the last bound is Excellent
var labelBounds = []struct {
	below float64
	label Label
}{
	{200, Beginner},
	{260, Average},
	{340, Good},
	{440, Better},
}

// Classify maps a score to its label.
func Classify(score float64) Label {
	for _, b := range labelBounds {
		if score < b.below {
			return b.label
		}
	}
	return Excellent
}

// Rank returns the ordinal of the label, 0 for Beginner through 4 for
// Excellent, or -1 for an unknown label.
func (l Label) Rank() int {
	for i, v := range Labels {
		if v == l {
			return i
		}
	}
	return -1
}

// ParseLabel parses a label case-insensitively.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown label: %q", s)
}

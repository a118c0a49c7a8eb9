package grading

import (
	"fmt"
	"strings"
)

// Alphabet labels alternatives in order. Its length caps the number of
// alternatives a sheet layout may have.
const Alphabet = "ABCDEFGH"

// DefaultAlternativesPerQuestion is the bubble count of the standard sheet.
const DefaultAlternativesPerQuestion = 5

// Alternative is a 0-based alternative index within a question.
type Alternative int

// Label returns the printed letter, or "?" when the index is outside the
// alphabet.
func (a Alternative) Label() string {
	if a < 0 || int(a) >= len(Alphabet) {
		return "?"
	}
	return Alphabet[a : a+1]
}

// ParseAlternative maps a letter back to its index. Lower case is accepted.
func ParseAlternative(label string) (Alternative, error) {
	l := strings.ToUpper(strings.TrimSpace(label))
	if len(l) != 1 {
		return 0, fmt.Errorf("invalid alternative %q", label)
	}
	i := strings.Index(Alphabet, l)
	if i < 0 {
		return 0, fmt.Errorf("invalid alternative %q", label)
	}
	return Alternative(i), nil
}

// LabelFor renders an optional answer; "-" stands for no answer.
func LabelFor(a *int) string {
	if a == nil {
		return "-"
	}
	return Alternative(*a).Label()
}

// ValidAlternatives reports whether n alternatives per question can be
// labelled.
func ValidAlternatives(n int) bool {
	return n >= 2 && n <= len(Alphabet)
}

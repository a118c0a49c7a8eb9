package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name    string
		marks   int
		answers []*int
		want    int
	}{
		{"nothing detected", 0, []*int{nil, nil}, 0},
		{"no questions", 10, nil, 0},
		{"complete", 10, []*int{ip(0), ip(1)}, 100},
		{"all bubbles blank answers", 10, []*int{nil, nil}, 60},
		{"half detected all answered", 5, []*int{ip(0), ip(1)}, 70},
		{"over-detected", 50, []*int{ip(0), nil}, 80},
		{"rounding", 1, []*int{nil, nil, nil}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.marks, tt.answers, 5))
		})
	}
}

func TestConfidence_Bounds(t *testing.T) {
	for marks := -5; marks < 200; marks += 7 {
		for n := 0; n < 8; n++ {
			answers := make([]*int, n)
			for i := 0; i < n; i += 2 {
				answers[i] = ip(i % 5)
			}
			c := Confidence(marks, answers, 5)
			assert.GreaterOrEqual(t, c, 0)
			assert.LessOrEqual(t, c, 100)
		}
	}
	assert.Equal(t, 0, Confidence(10, []*int{ip(1)}, 0))
}

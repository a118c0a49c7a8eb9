package grading

import (
	"sort"

	"github.com/ironsheep/gabarito-omr/internal/detection"
)

// DefaultRowTolerance is the vertical distance, in canonical pixels, under
// which two marks belong to the same row.
const DefaultRowTolerance = 15.0

// QuestionSlot is the group of marks read for one question.
type QuestionSlot struct {
	QuestionNumber      int              `json:"questionNumber"`
	Marks               []detection.Mark `json:"marks"`
	SelectedAlternative *int             `json:"selectedAlternative"`
	Ambiguous           bool             `json:"ambiguous"`
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRowTolerance overrides DefaultRowTolerance.
func WithRowTolerance(px float64) Option {
	return func(a *Assembler) {
		if px > 0 {
			a.rowTolerance = px
		}
	}
}

// WithAlternatives sets the number of bubbles per question.
func WithAlternatives(n int) Option {
	return func(a *Assembler) {
		if ValidAlternatives(n) {
			a.alternatives = n
		}
	}
}

// Assembler turns unordered marks into per-question answers.
type Assembler struct {
	rowTolerance float64
	alternatives int
}

// NewAssembler creates an assembler for the standard layout unless
// overridden by opts.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{rowTolerance: DefaultRowTolerance, alternatives: DefaultAlternativesPerQuestion}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Alternatives returns the configured bubbles per question.
func (a *Assembler) Alternatives() int { return a.alternatives }

// Slots orders marks top to bottom, left to right and cuts the sequence into
// one chunk per question. The result always has totalQuestions entries;
// questions past the last complete chunk come back empty and unanswered,
// marks past the last question are ignored.
func (a *Assembler) Slots(marks []detection.Mark, totalQuestions int) []QuestionSlot {
	if totalQuestions < 0 {
		totalQuestions = 0
	}
	ordered := a.readingOrder(marks)

	slots := make([]QuestionSlot, totalQuestions)
	for q := range slots {
		slots[q].QuestionNumber = q + 1
		start := q * a.alternatives
		if start+a.alternatives > len(ordered) {
			continue
		}
		chunk := ordered[start : start+a.alternatives]
		slots[q].Marks = chunk
		slots[q].SelectedAlternative, slots[q].Ambiguous = resolve(chunk)
	}
	return slots
}

// Assemble returns only the selected alternatives, one per question.
func (a *Assembler) Assemble(marks []detection.Mark, totalQuestions int) []*int {
	return Answers(a.Slots(marks, totalQuestions))
}

// Answers extracts the selected alternative of each slot.
func Answers(slots []QuestionSlot) []*int {
	answers := make([]*int, len(slots))
	for i, s := range slots {
		answers[i] = s.SelectedAlternative
	}
	return answers
}

// resolve picks the single filled mark of a chunk. Two or more filled marks
// are never resolved to one of them.
func resolve(chunk []detection.Mark) (*int, bool) {
	selected := -1
	for i, m := range chunk {
		if !m.Filled {
			continue
		}
		if selected >= 0 {
			return nil, true
		}
		selected = i
	}
	if selected < 0 {
		return nil, false
	}
	return &selected, false
}

// readingOrder groups marks into rows by y and sorts each row by x. A row
// is anchored on its topmost mark so a slowly drifting line of bubbles
// cannot absorb the next row.
func (a *Assembler) readingOrder(marks []detection.Mark) []detection.Mark {
	sorted := make([]detection.Mark, len(marks))
	copy(sorted, marks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	out := make([]detection.Mark, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Y-sorted[start].Y < a.rowTolerance {
			end++
		}
		row := sorted[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		out = append(out, row...)
		start = end
	}
	return out
}

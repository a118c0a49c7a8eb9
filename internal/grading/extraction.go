package grading

import "github.com/ironsheep/gabarito-omr/internal/detection"

// ExtractionResult is what the image stages read from one sheet.
type ExtractionResult struct {
	Answers            []*int         `json:"answers"`
	Confidence         int            `json:"confidence"`
	TotalMarksDetected int            `json:"totalMarksDetected"`
	Slots              []QuestionSlot `json:"slots,omitempty"`
	LowConfidence      bool           `json:"lowConfidence"`
	Warning            string         `json:"warning,omitempty"`
}

// Extract assembles marks into answers and scores the result. A confidence
// under lowThreshold flags the result without changing the answers.
func (a *Assembler) Extract(marks []detection.Mark, totalQuestions, lowThreshold int) ExtractionResult {
	slots := a.Slots(marks, totalQuestions)
	answers := Answers(slots)
	res := ExtractionResult{
		Answers:            answers,
		Confidence:         Confidence(len(marks), answers, a.alternatives),
		TotalMarksDetected: len(marks),
		Slots:              slots,
	}
	res.flag(lowThreshold)
	return res
}

func (r *ExtractionResult) flag(threshold int) {
	if threshold <= 0 {
		threshold = DefaultLowConfidenceThreshold
	}
	r.LowConfidence = r.Confidence < threshold
	if r.LowConfidence {
		r.Warning = LowConfidenceWarning
	} else {
		r.Warning = ""
	}
}

// AmbiguousQuestions lists the 1-based numbers of questions with more than
// one filled bubble.
func (r ExtractionResult) AmbiguousQuestions() []int {
	var out []int
	for _, s := range r.Slots {
		if s.Ambiguous {
			out = append(out, s.QuestionNumber)
		}
	}
	return out
}

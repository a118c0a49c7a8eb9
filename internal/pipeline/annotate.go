package pipeline

import (
	"fmt"
	"image"

	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// Annotate draws the marks of a processed sheet over its rectified image:
// the selected answer of each question, unfilled bubbles, ambiguous
// questions and, when the sheet was graded, the expected answer of every
// question the student missed. A banner reports confidence and score.
func (p *Pipeline) Annotate(sheet *Sheet) (*image.RGBA, error) {
	if sheet == nil || sheet.Rectified == nil || sheet.Rectified.Image == nil {
		return nil, fmt.Errorf("%w: sheet has no rectified image", ErrInvalidImage)
	}
	radius := float64(p.opts.Detector.SampleRadius)
	if radius <= 0 {
		radius = 10
	}

	var anns []imaging.Annotation
	for _, slot := range sheet.Extraction.Slots {
		var expected *int
		if g := sheet.Grading; g != nil && slot.QuestionNumber-1 < len(g.PerQuestion) {
			if qr := g.PerQuestion[slot.QuestionNumber-1]; !qr.IsCorrect {
				expected = qr.CorrectAnswer
			}
		}
		for i, m := range slot.Marks {
			a := imaging.Annotation{Center: m.Center(), Radius: radius, Style: imaging.StyleEmpty}
			switch {
			case m.Filled && slot.Ambiguous:
				a.Style = imaging.StyleAmbiguous
			case m.Filled:
				a.Style = imaging.StyleFilled
			case expected != nil && *expected == i:
				a.Style = imaging.StyleExpected
			}
			if i == 0 {
				a.Label = fmt.Sprintf("%d", slot.QuestionNumber)
			}
			anns = append(anns, a)
		}
	}

	out := imaging.Annotate(sheet.Rectified.Image, anns)

	text := fmt.Sprintf("confidence %d%%", sheet.Extraction.Confidence)
	if g := sheet.Grading; g != nil {
		text += fmt.Sprintf(" | score %.2f | %d/%d correct", g.TotalScore, g.CorrectCount, g.TotalQuestions)
	}
	if sheet.Extraction.LowConfidence {
		text += " | verify manually"
	}
	imaging.DrawBanner(out, text, imaging.HighlightColor(sheet.Extraction.Confidence))
	return out, nil
}

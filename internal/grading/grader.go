package grading

import (
	"math"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
)

// MaxScore is the top of the grading scale.
const MaxScore = 10.0

// QuestionResult is the outcome for one question.
type QuestionResult struct {
	QuestionNumber int     `json:"questionNumber"`
	StudentAnswer  *int    `json:"studentAnswer"`
	CorrectAnswer  *int    `json:"correctAnswer"`
	StudentLabel   string  `json:"studentLabel"`
	CorrectLabel   string  `json:"correctLabel"`
	IsCorrect      bool    `json:"isCorrect"`
	PointsAwarded  float64 `json:"pointsAwarded"`
	MaxPoints      float64 `json:"maxPoints"`
}

// Result is the graded sheet.
type Result struct {
	PerQuestion     []QuestionResult `json:"perQuestion"`
	TotalScore      float64          `json:"totalScore"`
	PointsAwarded   float64          `json:"pointsAwarded"`
	MaxPoints       float64          `json:"maxPoints"`
	CorrectCount    int              `json:"correctCount"`
	AnsweredCount   int              `json:"answeredCount"`
	TotalQuestions  int              `json:"totalQuestions"`
	AccuracyPercent int              `json:"accuracyPercent"`
}

// Grade compares an extraction with the answer key.
func Grade(key *answerkey.Payload, extraction ExtractionResult) (*Result, error) {
	return GradeAnswers(key, extraction.Answers)
}

// GradeAnswers compares answers with the answer key. A nil answer or a nil
// key entry never counts as correct.
func GradeAnswers(key *answerkey.Payload, answers []*int) (*Result, error) {
	n := len(key.AnswerKey)
	if len(answers) != n {
		return nil, &QuestionCountMismatchError{Expected: n, Got: len(answers)}
	}

	points := pointsFor(key)
	res := &Result{
		PerQuestion:    make([]QuestionResult, n),
		TotalQuestions: n,
	}
	for i := range n {
		student, correct := answers[i], key.AnswerKey[i]
		ok := student != nil && correct != nil && *student == *correct
		qr := QuestionResult{
			QuestionNumber: i + 1,
			StudentAnswer:  student,
			CorrectAnswer:  correct,
			StudentLabel:   LabelFor(student),
			CorrectLabel:   LabelFor(correct),
			IsCorrect:      ok,
			MaxPoints:      points[i],
		}
		if ok {
			qr.PointsAwarded = points[i]
			res.CorrectCount++
		}
		if student != nil {
			res.AnsweredCount++
		}
		res.PointsAwarded += qr.PointsAwarded
		res.MaxPoints += qr.MaxPoints
		res.PerQuestion[i] = qr
	}

	if res.MaxPoints > 0 {
		res.TotalScore = round2(MaxScore * res.PointsAwarded / res.MaxPoints)
	}
	if n > 0 {
		res.AccuracyPercent = int(math.Round(100 * float64(res.CorrectCount) / float64(n)))
	}
	return res, nil
}

// pointsFor returns one weight per question, one point each when the key
// carries no usable weights.
func pointsFor(key *answerkey.Payload) []float64 {
	n := len(key.AnswerKey)
	if len(key.PointsPerQuestion) == n {
		return key.PointsPerQuestion
	}
	pts := make([]float64, n)
	for i := range pts {
		pts[i] = 1
	}
	return pts
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

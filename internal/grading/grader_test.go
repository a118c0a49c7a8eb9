package grading

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
)

func key(points []float64, answers ...*int) *answerkey.Payload {
	return &answerkey.Payload{
		Kind:              answerkey.Kind,
		ExamID:            "E",
		VariationID:       "V",
		TotalQuestions:    len(answers),
		AnswerKey:         answers,
		PointsPerQuestion: points,
	}
}

func TestGrade_AnnulledQuestionNeverMatches(t *testing.T) {
	k := key([]float64{1, 1, 1, 1, 1}, ip(1), ip(0), ip(2), nil, ip(3))
	ext := ExtractionResult{Answers: []*int{ip(1), ip(0), ip(2), ip(1), ip(3)}}

	res, err := Grade(k, ext)
	require.NoError(t, err)
	assert.Equal(t, 4, res.CorrectCount)
	assert.Equal(t, 8.0, res.TotalScore)
	assert.Equal(t, 80, res.AccuracyPercent)
	assert.Equal(t, 5, res.TotalQuestions)
	assert.Equal(t, 5, res.AnsweredCount)

	q4 := res.PerQuestion[3]
	assert.Equal(t, 4, q4.QuestionNumber)
	assert.False(t, q4.IsCorrect)
	assert.Equal(t, 0.0, q4.PointsAwarded)
	assert.Equal(t, 1.0, q4.MaxPoints)
	assert.Equal(t, "B", q4.StudentLabel)
	assert.Equal(t, "-", q4.CorrectLabel)
}

func TestGrade_Weighted(t *testing.T) {
	k := key([]float64{2, 1, 1}, ip(0), ip(1), ip(2))
	res, err := GradeAnswers(k, []*int{ip(0), nil, ip(0)})
	require.NoError(t, err)

	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 2, res.AnsweredCount)
	assert.Equal(t, 2.0, res.PointsAwarded)
	assert.Equal(t, 4.0, res.MaxPoints)
	assert.Equal(t, 5.0, res.TotalScore)
	assert.Equal(t, 33, res.AccuracyPercent)
}

func TestGrade_RoundsToTwoDecimals(t *testing.T) {
	k := key(nil, ip(0), ip(0), ip(0))
	res, err := GradeAnswers(k, []*int{ip(0), nil, nil})
	require.NoError(t, err)
	assert.Equal(t, 3.33, res.TotalScore)
	assert.Len(t, res.PerQuestion, 3)
	assert.Equal(t, 1.0, res.PerQuestion[2].MaxPoints, "missing weights default to one point")
}

func TestGrade_ZeroPoints(t *testing.T) {
	k := key([]float64{0, 0}, ip(0), ip(1))
	res, err := GradeAnswers(k, []*int{ip(0), ip(1)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.TotalScore)
	assert.Equal(t, 100, res.AccuracyPercent)
}

func TestGrade_QuestionCountMismatch(t *testing.T) {
	k := key(nil, ip(0), ip(1), ip(2))

	for _, answers := range [][]*int{{ip(0), ip(1)}, {ip(0), ip(1), ip(2), nil}, nil} {
		res, err := GradeAnswers(k, answers)
		assert.Nil(t, res)
		require.True(t, errors.Is(err, ErrQuestionCountMismatch), "err = %v", err)

		var mm *QuestionCountMismatchError
		require.ErrorAs(t, err, &mm)
		assert.Equal(t, 3, mm.Expected)
		assert.Equal(t, len(answers), mm.Got)
	}
}

func TestGrade_Pure(t *testing.T) {
	k := key(nil, ip(0), ip(1))
	answers := []*int{ip(0), ip(2)}

	a, err := GradeAnswers(k, answers)
	require.NoError(t, err)
	b, err := GradeAnswers(k, answers)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 0, *k.AnswerKey[0])
	assert.Equal(t, 2, *answers[1])
}

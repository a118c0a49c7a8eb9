package correction

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/events"
	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
	"github.com/ironsheep/gabarito-omr/internal/store"
)

// GradeRequest grades answers that were already read from a sheet, by this
// service or elsewhere.
type GradeRequest struct {
	AnswerKeyPayload *answerkey.Payload `json:"answerKeyPayload" validate:"required"`
	StudentAnswers   []*int             `json:"studentAnswers" validate:"required,dive,omitempty,min=0"`
	StudentInfo      *ocr.StudentInfo   `json:"studentInfo,omitempty"`
}

// GradeResponse is the grading result with the exam metadata echoed back.
type GradeResponse struct {
	*grading.Result

	CorrectionID    string           `json:"correctionId"`
	ExamID          string           `json:"examId"`
	VariationID     string           `json:"variationId"`
	ExamTitle       string           `json:"examTitle,omitempty"`
	SubjectName     string           `json:"subjectName,omitempty"`
	VariationNumber int              `json:"variationNumber,omitempty"`
	StudentInfo     *ocr.StudentInfo `json:"studentInfo,omitempty"`
	GradedAt        time.Time        `json:"gradedAt"`
}

// Grade validates req and grades its answers against the embedded key.
func (s *Service) Grade(ctx context.Context, req GradeRequest) (*GradeResponse, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	key := req.AnswerKeyPayload
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAlternatives(req.StudentAnswers); err != nil {
		return nil, err
	}

	res, err := grading.GradeAnswers(key, req.StudentAnswers)
	if err != nil {
		return nil, err
	}

	resp := &GradeResponse{
		Result:          res,
		CorrectionID:    newCorrectionID(),
		ExamID:          key.ExamID,
		VariationID:     key.VariationID,
		ExamTitle:       key.ExamTitle,
		SubjectName:     key.SubjectName,
		VariationNumber: key.VariationNumber,
		StudentInfo:     req.StudentInfo,
		GradedAt:        s.now(),
	}
	s.save(ctx, &store.Record{
		CorrectionID: resp.CorrectionID,
		ExamID:       key.ExamID,
		VariationID:  key.VariationID,
		Source:       store.SourceContract,
		Student:      req.StudentInfo,
		Answers:      req.StudentAnswers,
		Result:       res,
		GradedAt:     resp.GradedAt,
	})
	s.publish(ctx, events.NewEvent(events.EventSheetGraded, gradedEvent(resp.CorrectionID, key, req.StudentInfo, res, nil, false)))

	s.logger.WithFields(logrus.Fields{
		"correction_id": resp.CorrectionID,
		"exam_id":       key.ExamID,
		"score":         res.TotalScore,
	}).Info("Answers graded")
	return resp, nil
}

// checkAlternatives rejects answers outside the configured alphabet.
func (s *Service) checkAlternatives(answers []*int) error {
	alts := s.pipeline.Options().Alternatives
	var fields []FieldError
	for i, a := range answers {
		if a != nil && *a >= alts {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("studentAnswers[%d]", i),
				Rule:    "max",
				Message: fmt.Sprintf("studentAnswers[%d] must be below %d", i, alts),
			})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func gradedEvent(id string, key *answerkey.Payload, student *ocr.StudentInfo, res *grading.Result, confidence *int, low bool) events.SheetGraded {
	e := events.SheetGraded{
		CorrectionID:    id,
		ExamID:          key.ExamID,
		VariationID:     key.VariationID,
		TotalScore:      res.TotalScore,
		CorrectCount:    res.CorrectCount,
		TotalQuestions:  res.TotalQuestions,
		Confidence:      confidence,
		LowConfidence:   low,
		AccuracyPercent: res.AccuracyPercent,
	}
	if student != nil {
		e.StudentID = student.StudentID
	}
	return e
}

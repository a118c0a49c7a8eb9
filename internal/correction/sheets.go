package correction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/events"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/store"
)

// SheetRequest corrects one photo. The key is Key when set, else the
// registered key of ExamID/VariationID, else the QR code on the photo. A QR
// code stands in for an unregistered ExamID/VariationID only when it names
// the same exam variation.
type SheetRequest struct {
	Image       image.Image
	Key         *answerkey.Payload
	ExamID      string
	VariationID string
}

// SheetResponse is one corrected photo.
type SheetResponse struct {
	CorrectionID string          `json:"correctionId"`
	ExamID       string          `json:"examId"`
	VariationID  string          `json:"variationId"`
	Sheet        *pipeline.Sheet `json:"sheet"`
	GradedAt     time.Time       `json:"gradedAt"`
}

// CorrectSheet reads and grades one photo and stores the result.
func (s *Service) CorrectSheet(ctx context.Context, req SheetRequest) (*SheetResponse, error) {
	if req.Image == nil {
		return nil, pipeline.ErrInvalidImage
	}
	key, err := s.resolveKey(ctx, req.Key, req.ExamID, req.VariationID)
	notRegistered := errors.Is(err, store.ErrKeyNotFound)
	if err != nil && !notRegistered {
		return nil, err
	}
	if key == nil {
		if key, err = s.sheetKey(req, err); err != nil {
			return nil, err
		}
	}

	sheet, err := s.pipeline.Correct(ctx, req.Image, key)
	if err != nil {
		s.publish(ctx, events.NewEvent(events.EventSheetFailed, events.SheetFailed{
			ItemID:    key.ExamID + "/" + key.VariationID,
			ErrorKind: pipeline.ErrorKind(err),
			Error:     err.Error(),
		}))
		return nil, err
	}

	resp := &SheetResponse{
		CorrectionID: newCorrectionID(),
		ExamID:       key.ExamID,
		VariationID:  key.VariationID,
		Sheet:        sheet,
		GradedAt:     s.now(),
	}
	s.recordSheet(ctx, resp.CorrectionID, "", sheet, resp.GradedAt)

	s.logger.WithFields(logrus.Fields{
		"correction_id": resp.CorrectionID,
		"exam_id":       key.ExamID,
		"confidence":    sheet.Extraction.Confidence,
		"score":         sheet.Grading.TotalScore,
	}).Info("Sheet corrected")
	return resp, nil
}

// sheetKey reads the key printed on the photo. lookupErr is the registry
// miss that led here, if any; it stays in the chain so callers still see
// store.ErrKeyNotFound when the photo cannot stand in.
func (s *Service) sheetKey(req SheetRequest, lookupErr error) (*answerkey.Payload, error) {
	key, err := s.pipeline.ReadKey(req.Image)
	switch {
	case err == nil && lookupErr == nil:
		return key, nil
	case err == nil && key.ExamID == req.ExamID && key.VariationID == req.VariationID:
		s.logger.WithFields(logrus.Fields{
			"exam_id":      key.ExamID,
			"variation_id": key.VariationID,
		}).Info("Unregistered key read from the sheet")
		return key, nil
	case err == nil:
		return nil, fmt.Errorf("%w: sheet carries the key of %s/%s", lookupErr, key.ExamID, key.VariationID)
	case lookupErr != nil:
		return nil, errors.Join(lookupErr, err)
	case errors.Is(err, answerkey.ErrNoCodeFound):
		return nil, errors.Join(pipeline.ErrNoAnswerKey, err)
	default:
		return nil, err
	}
}

// BatchRequest corrects many photos of one exam. Key resolution follows
// SheetRequest, except that a batch with no key reads each photo's own QR
// code when ReadKeyFromSheet is set and is only extracted otherwise. With
// ReadKeyFromSheet set an unregistered ExamID/VariationID is not an error.
type BatchRequest struct {
	Images           []pipeline.ImageRef
	Key              *answerkey.Payload
	ExamID           string
	VariationID      string
	ReadKeyFromSheet bool
	TotalQuestions   int
}

// BatchResponse is the batch result with the correction id of every graded
// item, keyed by item index.
type BatchResponse struct {
	BatchID       string         `json:"batchId"`
	CorrectionIDs map[int]string `json:"correctionIds"`
	*pipeline.BatchResult
}

// CorrectBatch runs the batch orchestrator, then stores and announces every
// graded item.
func (s *Service) CorrectBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	key, err := s.resolveKey(ctx, req.Key, req.ExamID, req.VariationID)
	if err != nil && !(req.ReadKeyFromSheet && errors.Is(err, store.ErrKeyNotFound)) {
		return nil, err
	}
	if key == nil && !req.ReadKeyFromSheet && req.TotalQuestions <= 0 {
		return nil, pipeline.ErrNoAnswerKey
	}

	batchID := uuid.NewString()
	res := s.pipeline.ProcessBatch(ctx, pipeline.BatchRequest{
		Images:           req.Images,
		Key:              key,
		ReadKeyFromSheet: req.ReadKeyFromSheet,
		TotalQuestions:   req.TotalQuestions,
	})

	resp := &BatchResponse{BatchID: batchID, CorrectionIDs: make(map[int]string), BatchResult: res}
	gradedAt := s.now()
	for _, item := range res.Results {
		if !item.Success {
			s.publish(ctx, events.NewEvent(events.EventSheetFailed, events.SheetFailed{
				BatchID:   batchID,
				ItemID:    item.ID,
				ErrorKind: item.ErrorKind,
				Error:     item.Error,
			}))
			continue
		}
		if item.Sheet == nil || item.Sheet.Grading == nil {
			continue
		}
		id := newCorrectionID()
		resp.CorrectionIDs[item.Index] = id
		s.recordSheet(ctx, id, batchID, item.Sheet, gradedAt)
	}

	completed := events.BatchCompleted{
		BatchID:           batchID,
		Total:             res.Summary.Total,
		Successful:        res.Summary.Successful,
		Failed:            res.Summary.Failed,
		AverageConfidence: res.Summary.AverageConfidence,
		ElapsedMillis:     res.Elapsed.Milliseconds(),
	}
	if key != nil {
		completed.ExamID = key.ExamID
	}
	s.publish(ctx, events.NewEvent(events.EventBatchCompleted, completed))
	return resp, nil
}

func (s *Service) recordSheet(ctx context.Context, id, batchID string, sheet *pipeline.Sheet, at time.Time) {
	source := store.SourceSheet
	if batchID != "" {
		source = store.SourceBatch
	}
	confidence := sheet.Extraction.Confidence
	s.save(ctx, &store.Record{
		CorrectionID:  id,
		ExamID:        sheet.Key.ExamID,
		VariationID:   sheet.Key.VariationID,
		BatchID:       batchID,
		Source:        source,
		Student:       sheet.Student,
		Answers:       sheet.Extraction.Answers,
		Confidence:    &confidence,
		LowConfidence: sheet.Extraction.LowConfidence,
		Result:        sheet.Grading,
		GradedAt:      at,
	})
	s.publish(ctx, events.NewEvent(events.EventSheetGraded,
		gradedEvent(id, sheet.Key, sheet.Student, sheet.Grading, &confidence, sheet.Extraction.LowConfidence)))
}

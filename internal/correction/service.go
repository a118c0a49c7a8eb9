// Package correction is the application service behind every transport: it
// registers answer keys, grades answers and photos, stores the results and
// publishes correction events.
package correction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/events"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/store"
)

// Deps are the collaborators of a Service. Only Pipeline is required; the
// others default to in-memory stores and a publisher that drops events.
type Deps struct {
	Pipeline  *pipeline.Pipeline
	Keys      store.KeyStore
	Results   store.ResultRepository
	Publisher events.Publisher
	Logger    logrus.FieldLogger

	// ScanTimeout bounds ScanKey when the caller sets no timeout.
	ScanTimeout time.Duration
}

// Service corrects answer sheets. It is safe for concurrent use.
type Service struct {
	pipeline  *pipeline.Pipeline
	keys      store.KeyStore
	results   store.ResultRepository
	publisher events.Publisher
	validate  *validator.Validate
	logger    logrus.FieldLogger
	now       func() time.Time

	scanTimeout time.Duration
}

// NewService wires a service from its collaborators.
func NewService(d Deps) *Service {
	if d.Keys == nil {
		d.Keys = store.NewMemoryKeyStore()
	}
	if d.Results == nil {
		d.Results = store.NewMemoryResultRepository()
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	return &Service{
		pipeline:  d.Pipeline,
		keys:      d.Keys,
		results:   d.Results,
		publisher: d.Publisher,
		validate:  newValidator(),
		logger:    d.Logger.WithField("component", "correction"),
		now:       func() time.Time { return time.Now().UTC() },

		scanTimeout: d.ScanTimeout,
	}
}

// Pipeline returns the sheet pipeline the service runs.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipeline }

// RegisterKey validates key and remembers it for its exam variation.
func (s *Service) RegisterKey(ctx context.Context, key *answerkey.Payload) error {
	if key == nil {
		return pipeline.ErrNoAnswerKey
	}
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.keys.Save(ctx, key); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"exam_id":      key.ExamID,
		"variation_id": key.VariationID,
		"questions":    key.TotalQuestions,
	}).Info("Answer key registered")
	s.publish(ctx, events.NewEvent(events.EventAnswerKeyRegistered, events.AnswerKeyRegistered{
		ExamID:         key.ExamID,
		VariationID:    key.VariationID,
		TotalQuestions: key.TotalQuestions,
	}))
	return nil
}

// DecodeKey reads the answer-key QR code in img and registers it.
func (s *Service) DecodeKey(ctx context.Context, img image.Image) (*answerkey.Payload, error) {
	key, err := s.pipeline.ReadKey(img)
	if err != nil {
		return nil, err
	}
	if err := s.RegisterKey(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

// ScanKey polls src until an answer key is decoded, then registers it.
func (s *Service) ScanKey(ctx context.Context, src answerkey.FrameSource, opts answerkey.ScannerOptions) (*answerkey.Payload, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = s.scanTimeout
	}
	scanner := answerkey.NewScanner(nil, opts, s.logger)
	key, err := scanner.Scan(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := s.RegisterKey(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Key returns the registered key of an exam variation.
func (s *Service) Key(ctx context.Context, examID, variationID string) (*answerkey.Payload, error) {
	return s.keys.Get(ctx, examID, variationID)
}

// Results lists the stored corrections of an exam.
func (s *Service) Results(ctx context.Context, examID string) ([]store.Record, error) {
	return s.results.ListByExam(ctx, examID)
}

// resolveKey picks the explicit key, else the registered key of
// examID/variationID. It returns nil, nil when neither is available.
func (s *Service) resolveKey(ctx context.Context, key *answerkey.Payload, examID, variationID string) (*answerkey.Payload, error) {
	if key != nil {
		if err := key.Validate(); err != nil {
			return nil, err
		}
		return key, nil
	}
	if examID == "" || variationID == "" {
		return nil, nil
	}
	return s.keys.Get(ctx, examID, variationID)
}

// save stores a record. A storage failure is logged; the grade stands.
func (s *Service) save(ctx context.Context, rec *store.Record) {
	if err := s.results.Save(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("correction_id", rec.CorrectionID).Error("Failed to store correction")
	}
}

func (s *Service) publish(ctx context.Context, e *events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WithError(err).WithField("event_type", e.Type).Warn("Failed to publish event")
	}
}

func newCorrectionID() string { return uuid.NewString() }

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and converts the outcome.
func (s *Service) validateStruct(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return fromValidator(err)
	}
	return nil
}

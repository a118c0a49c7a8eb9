// Package app wires the configuration into a ready correction service. Every
// binary (MCP server, HTTP API, Lambda) starts from Build.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/config"
	"github.com/ironsheep/gabarito-omr/internal/correction"
	"github.com/ironsheep/gabarito-omr/internal/events"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/store"
)

// App holds the service and the resources that must be released on exit.
type App struct {
	Service *correction.Service
	Engine  imaging.Engine

	closers []func() error
}

// Build initialises the vision engine, the stores, the event publisher and
// the optional OCR reader named by cfg. On error every resource opened so
// far is released.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Engine, err = imaging.NewReadyEngine(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}
	logger.WithField("engine", a.Engine.Name()).Info("Vision engine ready")

	options := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.OCREnabled {
		rec, err := ocr.NewTesseractRecognizer(cfg.OCRLanguage, cfg.OCRTessdataPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to enable OCR: %w", err)
		}
		options = append(options, pipeline.WithStudentInfoReader(ocr.NewHeaderReader(rec)))
		logger.WithField("language", cfg.OCRLanguage).Info("Student header OCR enabled")
	}
	p := pipeline.New(a.Engine, PipelineOptions(cfg), options...)

	deps := correction.Deps{
		Pipeline:    p,
		Logger:      logger,
		ScanTimeout: cfg.ScanTimeout,
	}

	if cfg.RedisURL != "" {
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		keys := store.NewRedisKeyStore(client, cfg.AnswerKeyTTL)
		a.closers = append(a.closers, keys.Close)
		deps.Keys = keys
		logger.Info("Answer keys stored in Redis")
	}

	if cfg.DatabaseURL != "" {
		db, err := store.OpenPostgres(cfg.DatabaseURL, cfg.IsProduction())
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		repo := store.NewGormResultRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		deps.Results = repo
		logger.Info("Correction results stored in PostgreSQL")
	}

	pub, err := events.New(events.Config{
		Backend: cfg.EventsPublisher,
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.EventsTopic,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	a.closers = append(a.closers, pub.Close)
	deps.Publisher = pub

	a.Service = correction.NewService(deps)
	return a, nil
}

// PipelineOptions maps the configuration onto the pipeline's tunables.
func PipelineOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Rectifier.Width = cfg.CanonicalWidth
	opts.Rectifier.Height = cfg.CanonicalHeight
	opts.Rectifier.MaxInputDimension = cfg.MaxInputDimension
	opts.Alternatives = cfg.Alternatives
	opts.LowConfidenceThreshold = cfg.LowConfidence
	opts.GroupSize = cfg.BatchGroupSize
	opts.GroupDelay = cfg.BatchGroupDelay
	return opts
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

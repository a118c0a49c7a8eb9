package app

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/gabarito-omr/internal/config"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
)

func baseConfig() *config.Config {
	cfg := config.FromEnv()
	cfg.Engine = imaging.EngineNative
	cfg.RedisURL = ""
	cfg.DatabaseURL = ""
	cfg.EventsPublisher = config.PublisherGoChannel
	cfg.OCREnabled = false
	return &cfg
}

func TestBuild_InMemory(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a, err := Build(context.Background(), baseConfig(), logger)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Service)
	assert.True(t, a.Engine.Ready())
	assert.Same(t, a.Engine, a.Service.Pipeline().Engine())
}

func TestBuild_UnknownEngine(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := baseConfig()
	cfg.Engine = "tpu"

	_, err := Build(context.Background(), cfg, logger)
	assert.ErrorIs(t, err, imaging.ErrUnknownEngine)
}

func TestBuild_OCRUnavailable(t *testing.T) {
	if _, err := ocr.NewTesseractRecognizer("eng", ""); err == nil {
		t.Skip("built with tesseract")
	}
	logger, _ := test.NewNullLogger()
	cfg := baseConfig()
	cfg.OCREnabled = true

	_, err := Build(context.Background(), cfg, logger)
	assert.ErrorIs(t, err, ocr.ErrOCRUnavailable)
}

func TestBuild_BadRedisURL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := baseConfig()
	cfg.RedisURL = "not-a-url"

	_, err := Build(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestPipelineOptions(t *testing.T) {
	cfg := baseConfig()
	cfg.CanonicalWidth = 900
	cfg.CanonicalHeight = 1100
	cfg.MaxInputDimension = 2000
	cfg.Alternatives = 4
	cfg.LowConfidence = 60
	cfg.BatchGroupSize = 5
	cfg.BatchGroupDelay = 250 * time.Millisecond

	opts := PipelineOptions(cfg)
	assert.Equal(t, 900, opts.Rectifier.Width)
	assert.Equal(t, 1100, opts.Rectifier.Height)
	assert.Equal(t, 2000, opts.Rectifier.MaxInputDimension)
	assert.Equal(t, 4, opts.Alternatives)
	assert.Equal(t, 60, opts.LowConfidenceThreshold)
	assert.Equal(t, 5, opts.GroupSize)
	assert.Equal(t, 250*time.Millisecond, opts.GroupDelay)
}

func TestClose_Idempotent(t *testing.T) {
	calls := 0
	a := &App{closers: []func() error{func() error { calls++; return nil }}}
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, calls)
}

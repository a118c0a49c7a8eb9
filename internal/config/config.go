// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// Event publisher backends.
const (
	PublisherNone      = "none"
	PublisherGoChannel = "gochannel"
	PublisherKafka     = "kafka"
)

// Config holds every tunable of the binaries.
type Config struct {
	Environment string
	LogLevel    string
	HTTPAddr    string

	Engine            string
	CanonicalWidth    int
	CanonicalHeight   int
	Alternatives      int
	MaxInputDimension int
	LowConfidence     int

	BatchGroupSize  int
	BatchGroupDelay time.Duration
	ScanTimeout     time.Duration

	RedisURL    string
	DatabaseURL string

	// AnswerKeyTTL expires registered keys in Redis; zero keeps them.
	AnswerKeyTTL time.Duration

	EventsPublisher string
	KafkaBrokers    []string
	EventsTopic     string

	OCREnabled        bool
	OCRLanguage       string
	OCRTessdataPrefix string
}

// Load reads .env files when present, then the environment. A missing .env
// file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv reads the configuration from environment variables only.
func FromEnv() Config {
	return Config{
		Environment: envOr("GABARITO_ENV", "development"),
		LogLevel:    envOr("GABARITO_LOG_LEVEL", "info"),
		HTTPAddr:    envOr("GABARITO_HTTP_ADDR", ":8080"),

		Engine:            envOr("GABARITO_ENGINE", imaging.EngineNative),
		CanonicalWidth:    envInt("GABARITO_CANONICAL_WIDTH", 800),
		CanonicalHeight:   envInt("GABARITO_CANONICAL_HEIGHT", 1000),
		Alternatives:      envInt("GABARITO_ALTERNATIVES", grading.DefaultAlternativesPerQuestion),
		MaxInputDimension: envInt("GABARITO_MAX_INPUT_DIMENSION", 1600),
		LowConfidence:     envInt("GABARITO_LOW_CONFIDENCE", grading.DefaultLowConfidenceThreshold),

		BatchGroupSize:  envInt("GABARITO_BATCH_GROUP_SIZE", 3),
		BatchGroupDelay: envDuration("GABARITO_BATCH_GROUP_DELAY", 100*time.Millisecond),
		ScanTimeout:     envDuration("GABARITO_SCAN_TIMEOUT", 30*time.Second),

		RedisURL:    os.Getenv("GABARITO_REDIS_URL"),
		DatabaseURL: os.Getenv("GABARITO_DATABASE_URL"),

		AnswerKeyTTL: envDuration("GABARITO_ANSWER_KEY_TTL", 0),

		EventsPublisher: envOr("GABARITO_EVENTS_PUBLISHER", PublisherGoChannel),
		KafkaBrokers:    csvOr("GABARITO_KAFKA_BROKERS", "localhost:9092"),
		EventsTopic:     envOr("GABARITO_EVENTS_TOPIC", "gabarito.corrections"),

		OCREnabled:        envBool("GABARITO_OCR_ENABLED", false),
		OCRLanguage:       envOr("GABARITO_OCR_LANGUAGE", "por+eng"),
		OCRTessdataPrefix: os.Getenv("GABARITO_TESSDATA_PREFIX"),
	}
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects settings the pipeline cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.CanonicalWidth < 100 || c.CanonicalHeight < 100 {
		errs = append(errs, fmt.Errorf("canonical size %dx%d is too small", c.CanonicalWidth, c.CanonicalHeight))
	}
	if !grading.ValidAlternatives(c.Alternatives) {
		errs = append(errs, fmt.Errorf("alternatives must be between 2 and %d, got %d", len(grading.Alphabet), c.Alternatives))
	}
	if c.LowConfidence < 0 || c.LowConfidence > 100 {
		errs = append(errs, fmt.Errorf("low confidence threshold must be within 0-100, got %d", c.LowConfidence))
	}
	if c.BatchGroupSize < 1 {
		errs = append(errs, fmt.Errorf("batch group size must be positive, got %d", c.BatchGroupSize))
	}
	if c.BatchGroupDelay < 0 || c.ScanTimeout <= 0 {
		errs = append(errs, errors.New("batch delay must not be negative and scan timeout must be positive"))
	}
	switch c.Engine {
	case imaging.EngineNative, imaging.EngineOpenCV:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}
	switch c.EventsPublisher {
	case PublisherNone, PublisherGoChannel:
	case PublisherKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka publisher needs GABARITO_KAFKA_BROKERS"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events publisher %q", c.EventsPublisher))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	raw := envOr(k, def)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

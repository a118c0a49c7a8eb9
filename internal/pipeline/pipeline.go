package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/detection"
	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
)

// Options tune every stage of sheet processing.
type Options struct {
	Rectifier detection.RectifierOptions
	Detector  detection.DetectorOptions

	// Alternatives is the number of bubbles per question.
	Alternatives int
	// RowTolerance groups marks into rows, in canonical pixels.
	RowTolerance float64
	// LowConfidenceThreshold flags results that need manual review.
	LowConfidenceThreshold int

	// GroupSize bounds how many sheets of a batch are processed at once.
	GroupSize int
	// GroupDelay is the pause between batch groups.
	GroupDelay time.Duration
}

// DefaultOptions returns the standard sheet layout and batch settings.
func DefaultOptions() Options {
	return Options{
		Rectifier:              detection.DefaultRectifierOptions(),
		Detector:               detection.DefaultDetectorOptions(),
		Alternatives:           grading.DefaultAlternativesPerQuestion,
		RowTolerance:           grading.DefaultRowTolerance,
		LowConfidenceThreshold: grading.DefaultLowConfidenceThreshold,
		GroupSize:              3,
		GroupDelay:             100 * time.Millisecond,
	}
}

// Option configures optional collaborators of a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; the logrus standard logger is used otherwise.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithStudentInfoReader enables reading the student header of each sheet.
func WithStudentInfoReader(r ocr.StudentInfoReader) Option {
	return func(p *Pipeline) { p.students = r }
}

// WithImageCache shares a decoded image cache with the caller.
func WithImageCache(c *imaging.ImageCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithDecoder replaces the answer-key QR decoder.
func WithDecoder(d *answerkey.Decoder) Option {
	return func(p *Pipeline) { p.decoder = d }
}

// Pipeline runs the image stages and grading for answer sheets. It keeps no
// per-sheet state and is safe for concurrent use.
type Pipeline struct {
	engine    imaging.Engine
	rectifier *detection.Rectifier
	detector  *detection.Detector
	assembler *grading.Assembler
	decoder   *answerkey.Decoder
	students  ocr.StudentInfoReader
	cache     *imaging.ImageCache
	logger    logrus.FieldLogger
	opts      Options
}

// New builds a pipeline on engine. The engine must be initialised before
// any sheet is processed.
func New(engine imaging.Engine, opts Options, options ...Option) *Pipeline {
	def := DefaultOptions()
	if opts.GroupSize <= 0 {
		opts.GroupSize = def.GroupSize
	}
	if opts.GroupDelay < 0 {
		opts.GroupDelay = 0
	}
	if !grading.ValidAlternatives(opts.Alternatives) {
		opts.Alternatives = def.Alternatives
	}
	if opts.LowConfidenceThreshold <= 0 {
		opts.LowConfidenceThreshold = def.LowConfidenceThreshold
	}

	p := &Pipeline{
		engine:    engine,
		rectifier: detection.NewRectifier(engine, opts.Rectifier),
		detector:  detection.NewDetector(engine, opts.Detector),
		assembler: grading.NewAssembler(grading.WithAlternatives(opts.Alternatives), grading.WithRowTolerance(opts.RowTolerance)),
		opts:      opts,
	}
	for _, o := range options {
		o(p)
	}
	if p.decoder == nil {
		p.decoder = answerkey.NewDecoder()
	}
	if p.students == nil {
		p.students = ocr.NopReader{}
	}
	if p.cache == nil {
		p.cache = imaging.NewImageCache()
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	return p
}

// Engine returns the vision engine the stages run on.
func (p *Pipeline) Engine() imaging.Engine { return p.engine }

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Sheet is everything read from one photo.
type Sheet struct {
	Rectified  *detection.RectifiedImage `json:"-"`
	Corners    detection.Corners         `json:"corners"`
	Marks      []detection.Mark          `json:"marks"`
	Extraction grading.ExtractionResult  `json:"extraction"`
	Student    *ocr.StudentInfo          `json:"studentInfo,omitempty"`

	// Key is the answer key the sheet was graded with, if any.
	Key     *answerkey.Payload `json:"-"`
	Grading *grading.Result    `json:"grading,omitempty"`
}

// Extract runs rectification, mark detection, assembly and confidence
// scoring on one photo.
func (p *Pipeline) Extract(ctx context.Context, img image.Image, totalQuestions int) (*Sheet, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no pixels", ErrInvalidImage)
	}
	rect, err := p.rectifier.Rectify(ctx, img)
	if err != nil {
		return nil, err
	}
	marks, err := p.detector.Detect(ctx, rect.Image)
	if err != nil {
		return nil, err
	}
	sheet := &Sheet{
		Rectified:  rect,
		Corners:    rect.Corners,
		Marks:      marks,
		Extraction: p.assembler.Extract(marks, totalQuestions, p.opts.LowConfidenceThreshold),
	}

	info, err := p.students.ReadStudentInfo(ctx, rect.Image)
	if err != nil {
		// The header is informational; a failed read never fails the sheet.
		p.logger.WithError(err).Warn("Could not read student header")
	} else if info != nil && !info.IsEmpty() {
		sheet.Student = info
	}

	p.logger.WithFields(logrus.Fields{
		"marks":      len(marks),
		"confidence": sheet.Extraction.Confidence,
		"ambiguous":  len(sheet.Extraction.AmbiguousQuestions()),
	}).Debug("Sheet extracted")
	return sheet, nil
}

// Correct extracts a sheet with as many questions as key and grades it.
func (p *Pipeline) Correct(ctx context.Context, img image.Image, key *answerkey.Payload) (*Sheet, error) {
	if key == nil {
		return nil, ErrNoAnswerKey
	}
	sheet, err := p.Extract(ctx, img, len(key.AnswerKey))
	if err != nil {
		return nil, err
	}
	res, err := grading.Grade(key, sheet.Extraction)
	if err != nil {
		return nil, err
	}
	sheet.Key = key
	sheet.Grading = res
	return sheet, nil
}

// ReadKey decodes the answer-key QR code printed on a photo.
func (p *Pipeline) ReadKey(img image.Image) (*answerkey.Payload, error) {
	return p.decoder.DecodeImage(img)
}

// Rectify exposes the rectification stage alone.
func (p *Pipeline) Rectify(ctx context.Context, img image.Image) (*detection.RectifiedImage, error) {
	return p.rectifier.Rectify(ctx, img)
}

// DetectMarks rectifies img and returns the raw marks.
func (p *Pipeline) DetectMarks(ctx context.Context, img image.Image) (*detection.RectifiedImage, []detection.Mark, error) {
	rect, err := p.rectifier.Rectify(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	marks, err := p.detector.Detect(ctx, rect.Image)
	if err != nil {
		return nil, nil, err
	}
	return rect, marks, nil
}

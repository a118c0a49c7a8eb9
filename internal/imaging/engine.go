package imaging

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Engine names accepted by NewEngine.
const (
	EngineNative = "native"
	EngineOpenCV = "opencv"
)

var (
	// ErrEngineNotReady is returned when a vision primitive is requested
	// before the engine finished initialising.
	ErrEngineNotReady = errors.New("vision engine not ready")

	// ErrUnknownEngine is returned by NewEngine for unsupported names.
	ErrUnknownEngine = errors.New("unknown vision engine")

	// ErrEngineUnavailable is returned when the engine exists but was not
	// compiled into this binary.
	ErrEngineUnavailable = errors.New("vision engine not compiled in")
)

// Engine is the set of computer-vision primitives the correction pipeline
// needs. Implementations must be safe for concurrent use once Init has
// returned.
//
// # Lifecycle
//
// An engine is created unready. Init loads whatever the backend needs and
// flips Ready to true. Callers check Ready before use and surface
// ErrEngineNotReady instead of blocking.
//
// # Conventions
//
// Binary images use 255 for foreground and 0 for background. All returned
// images have their bounds origin at (0,0).
type Engine interface {
	// Name identifies the backend ("native" or "opencv").
	Name() string

	// Init prepares the backend. It is idempotent.
	Init(ctx context.Context) error

	// Ready reports whether Init completed successfully.
	Ready() bool

	// Grayscale converts any image to 8-bit luminance.
	Grayscale(img image.Image) *image.Gray

	// GaussianBlur smooths src with a ksize×ksize Gaussian kernel.
	GaussianBlur(src *image.Gray, ksize int) *image.Gray

	// AdaptiveThreshold is a mean adaptive threshold, inverted so dark ink
	// becomes foreground.
	AdaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray

	// Threshold marks pixels darker than cutoff as foreground.
	Threshold(src *image.Gray, cutoff uint8) *image.Gray

	// ExternalContours returns the outer boundaries of foreground regions
	// not enclosed by other regions.
	ExternalContours(bin *image.Gray) []Contour

	// WarpPerspective maps the quadrilateral quad (TL, TR, BR, BL) of src
	// onto a width×height raster.
	WarpPerspective(src *image.Gray, quad [4]PointF, width, height int) (*image.Gray, error)
}

// NewEngine builds the engine registered under name. An empty name selects
// the native engine. The returned engine still needs Init.
func NewEngine(name string) (Engine, error) {
	switch name {
	case "", EngineNative:
		return NewNativeEngine(), nil
	case EngineOpenCV:
		return newOpenCVEngine()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// NewReadyEngine builds and initialises an engine in one step.
func NewReadyEngine(ctx context.Context, name string) (Engine, error) {
	e, err := NewEngine(name)
	if err != nil {
		return nil, err
	}
	if err := e.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s engine: %w", e.Name(), err)
	}
	return e, nil
}

package detection

import (
	"context"
	"image"
	"math"

	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// Mark is a bubble-like blob found on a rectified sheet.
type Mark struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Area           float64 `json:"area"`
	Circularity    float64 `json:"circularity"`
	MeanBrightness float64 `json:"meanBrightness"`
	Filled         bool    `json:"filled"`
}

// Center returns the mark position as a point.
func (m Mark) Center() imaging.PointF {
	return imaging.PointF{X: m.X, Y: m.Y}
}

// DetectorOptions tune mark detection.
type DetectorOptions struct {
	// InkThreshold: pixels darker than this are ink.
	InkThreshold uint8

	// EdgeMargin is cleared from the binary image before contour search;
	// the printed frame survives rectification along the edges.
	EdgeMargin int

	// Contour area bounds, in square pixels.
	MinArea float64
	MaxArea float64

	// MinCircularity rejects elongated blobs (text, lines).
	MinCircularity float64

	// SampleRadius is the radius of the disk averaged around each centroid.
	SampleRadius int

	// FilledBelow: a mark whose mean brightness is below this is filled.
	FilledBelow float64
}

// DefaultDetectorOptions returns the standard bubble tuning.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		InkThreshold:   120,
		EdgeMargin:     12,
		MinArea:        50,
		MaxArea:        2000,
		MinCircularity: 0.5,
		SampleRadius:   10,
		FilledBelow:    100,
	}
}

// Detector finds candidate bubbles and classifies them as filled or empty.
type Detector struct {
	engine imaging.Engine
	opts   DetectorOptions
}

// NewDetector creates a detector backed by engine.
func NewDetector(engine imaging.Engine, opts DetectorOptions) *Detector {
	def := DefaultDetectorOptions()
	if opts.InkThreshold == 0 {
		opts.InkThreshold = def.InkThreshold
	}
	if opts.EdgeMargin < 0 {
		opts.EdgeMargin = 0
	}
	if opts.MinArea <= 0 {
		opts.MinArea = def.MinArea
	}
	if opts.MaxArea <= 0 {
		opts.MaxArea = def.MaxArea
	}
	if opts.MinCircularity <= 0 {
		opts.MinCircularity = def.MinCircularity
	}
	if opts.SampleRadius <= 0 {
		opts.SampleRadius = def.SampleRadius
	}
	if opts.FilledBelow <= 0 {
		opts.FilledBelow = def.FilledBelow
	}
	return &Detector{engine: engine, opts: opts}
}

// Detect returns every mark on a rectified sheet. An empty slice is a valid
// result: downstream stages treat it as a sheet with nothing answered.
func (d *Detector) Detect(ctx context.Context, sheet *image.Gray) ([]Mark, error) {
	if !d.engine.Ready() {
		return nil, imaging.ErrEngineNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bin := d.engine.Threshold(sheet, d.opts.InkThreshold)
	imaging.ClearBorder(bin, d.opts.EdgeMargin)

	marks := make([]Mark, 0, 64)
	for _, c := range d.engine.ExternalContours(bin) {
		area := c.Area()
		if area < d.opts.MinArea || area > d.opts.MaxArea {
			continue
		}
		circ := c.Circularity()
		if circ <= d.opts.MinCircularity {
			continue
		}
		centre := c.Centroid()
		mean := meanInDisk(sheet, centre, d.opts.SampleRadius)
		marks = append(marks, Mark{
			X:              centre.X,
			Y:              centre.Y,
			Area:           area,
			Circularity:    circ,
			MeanBrightness: mean,
			Filled:         mean < d.opts.FilledBelow,
		})
	}
	return marks, nil
}

// meanInDisk averages the pixels within radius of c, clipped to the image.
func meanInDisk(img *image.Gray, c imaging.PointF, radius int) float64 {
	b := img.Bounds()
	cx, cy := int(math.Round(c.X)), int(math.Round(c.Y))
	r2 := radius * radius
	var sum, n int
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			p := image.Pt(b.Min.X+cx+dx, b.Min.Y+cy+dy)
			if !p.In(b) {
				continue
			}
			sum += int(img.Pix[img.PixOffset(p.X, p.Y)])
			n++
		}
	}
	if n == 0 {
		return 255
	}
	return float64(sum) / float64(n)
}

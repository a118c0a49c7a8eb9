package detection

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// Corners are the sheet corners in top-left, top-right, bottom-right,
// bottom-left order, in source image coordinates.
type Corners [4]imaging.PointF

// RectifiedImage is a grayscale, fronto-parallel view of the answer sheet.
type RectifiedImage struct {
	// Image has exactly the canonical size the rectifier was built with.
	Image *image.Gray `json:"-"`

	// Corners locate the sheet in the original photo.
	Corners Corners `json:"corners"`

	// Scale is the factor applied to the photo before detection (1 when it
	// was small enough to use as is).
	Scale float64 `json:"scale"`
}

// RectifierOptions tune sheet localisation.
type RectifierOptions struct {
	// Canonical output size.
	Width  int
	Height int

	// BlurKernel is the Gaussian kernel size applied before thresholding.
	BlurKernel int

	// BlockSize and C parameterise the adaptive threshold.
	BlockSize int
	C         float64

	// MinArea rejects quadrilaterals smaller than this many square pixels.
	MinArea float64

	// ApproxEpsilon is the polygon simplification tolerance as a fraction
	// of the contour perimeter.
	ApproxEpsilon float64

	// MaxInputDimension bounds the longest side of the photo; larger photos
	// are downscaled first. Zero disables downscaling.
	MaxInputDimension int
}

// DefaultRectifierOptions returns the standard tuning: 800×1000 output,
// 5×5 blur, 11-pixel threshold blocks with C=2, 2% simplification and a
// 10 000 px² minimum sheet area.
func DefaultRectifierOptions() RectifierOptions {
	return RectifierOptions{
		Width:             800,
		Height:            1000,
		BlurKernel:        5,
		BlockSize:         11,
		C:                 2,
		MinArea:           10000,
		ApproxEpsilon:     0.02,
		MaxInputDimension: 1600,
	}
}

// Rectifier locates the sheet frame in a photo and warps it into the
// canonical size. It holds no per-call state and is safe for concurrent use.
type Rectifier struct {
	engine imaging.Engine
	opts   RectifierOptions
}

// NewRectifier creates a rectifier backed by engine. Zero-valued option
// fields fall back to their defaults.
func NewRectifier(engine imaging.Engine, opts RectifierOptions) *Rectifier {
	def := DefaultRectifierOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.BlurKernel <= 0 {
		opts.BlurKernel = def.BlurKernel
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.C == 0 {
		opts.C = def.C
	}
	if opts.MinArea <= 0 {
		opts.MinArea = def.MinArea
	}
	if opts.ApproxEpsilon <= 0 {
		opts.ApproxEpsilon = def.ApproxEpsilon
	}
	return &Rectifier{engine: engine, opts: opts}
}

// Options returns the effective options.
func (r *Rectifier) Options() RectifierOptions { return r.opts }

// Rectify finds the sheet in img and returns its canonical view.
//
// The photo is converted to grayscale, blurred, adaptively thresholded and
// searched for external contours. Each contour is simplified; the largest
// convex four-sided polygon above MinArea is taken as the sheet. Its corners
// are ordered by angle around their centroid and the quadrilateral is warped
// onto the canonical raster. When that polygon is the paper edge rather than
// the printed frame, the frame is located inside the warped view and the
// photo is warped again onto it.
//
// # Errors
//
//   - imaging.ErrEngineNotReady if the engine has not been initialised
//   - *SheetNotFoundError when no candidate polygon exists
//   - imaging.ErrDegenerateQuad if the chosen corners admit no transform
func (r *Rectifier) Rectify(ctx context.Context, img image.Image) (*RectifiedImage, error) {
	if !r.engine.Ready() {
		return nil, imaging.ErrEngineNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := img
	scale := 1.0
	if b := img.Bounds(); r.opts.MaxInputDimension > 0 && max(b.Dx(), b.Dy()) > r.opts.MaxInputDimension {
		src = imaging.FitWithin(img, r.opts.MaxInputDimension)
		scale = float64(src.Bounds().Dx()) / float64(b.Dx())
	}

	gray := r.engine.Grayscale(src)
	quad, err := r.FindSheet(gray)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	warped, err := r.engine.WarpPerspective(gray, quad, r.opts.Width, r.opts.Height)
	if err != nil {
		return nil, fmt.Errorf("warp sheet: %w", err)
	}

	// On a dark background the paper edge wins over the printed frame. The
	// frame then sits inside the warped view and is warped to instead.
	if inner, ok := r.innerFrame(warped, quad); ok {
		if refined, err := r.engine.WarpPerspective(gray, inner, r.opts.Width, r.opts.Height); err == nil {
			quad, warped = inner, refined
		}
	}

	// Report corners in the coordinates of the photo the caller passed in.
	corners := quad
	for i := range corners {
		corners[i].X /= scale
		corners[i].Y /= scale
	}
	return &RectifiedImage{Image: warped, Corners: corners, Scale: scale}, nil
}

// FindSheet returns the ordered corners of the sheet frame in gray.
func (r *Rectifier) FindSheet(gray *image.Gray) (Corners, error) {
	bin := r.binarize(gray)
	contours := r.engine.ExternalContours(bin)
	best, _ := r.largestQuad(contours, r.opts.MinArea)
	if best == nil {
		return Corners{}, &SheetNotFoundError{Contours: len(contours)}
	}
	return cornersOf(best), nil
}

// Bounds on the area of a printed frame found inside a warped view, as a
// fraction of the canonical raster.
const (
	innerFrameMin = 0.25
	innerFrameMax = 0.9
)

// innerFrame looks for a printed frame inside warped, the canonical view of
// quad. A hit is mapped back into the coordinates of the image quad was
// found in. Frames already filling the view are not refined again.
func (r *Rectifier) innerFrame(warped *image.Gray, quad Corners) (Corners, bool) {
	bin := r.binarize(warped)
	// The warp keeps a sliver of background along the edges; its ring would
	// enclose everything else.
	imaging.ClearBorder(bin, min(r.opts.Width, r.opts.Height)/50)

	canvas := float64(r.opts.Width * r.opts.Height)
	best, area := r.largestQuad(r.engine.ExternalContours(bin), canvas*innerFrameMin)
	if best == nil || area >= canvas*innerFrameMax {
		return Corners{}, false
	}

	h, err := imaging.SolveHomography(imaging.CanonicalCorners(r.opts.Width, r.opts.Height), quad)
	if err != nil {
		return Corners{}, false
	}
	inner := cornersOf(best)
	for i, p := range inner {
		inner[i].X, inner[i].Y = h.Apply(p.X, p.Y)
	}
	return inner, true
}

func (r *Rectifier) binarize(gray *image.Gray) *image.Gray {
	blurred := r.engine.GaussianBlur(gray, r.opts.BlurKernel)
	return r.engine.AdaptiveThreshold(blurred, r.opts.BlockSize, r.opts.C)
}

// largestQuad simplifies each contour and returns the largest convex
// four-sided polygon whose area exceeds minArea, with that area.
func (r *Rectifier) largestQuad(contours []imaging.Contour, minArea float64) (imaging.Contour, float64) {
	var best imaging.Contour
	bestArea := 0.0
	for _, c := range contours {
		poly := c.Approx(r.opts.ApproxEpsilon * c.Perimeter())
		if len(poly) != 4 || !poly.IsConvex() {
			continue
		}
		area := poly.Area()
		if area <= minArea || area <= bestArea {
			continue
		}
		best, bestArea = poly, area
	}
	return best, bestArea
}

func cornersOf(poly imaging.Contour) Corners {
	pts := make([]imaging.PointF, len(poly))
	for i, p := range poly {
		pts[i] = imaging.PointF{X: float64(p.X), Y: float64(p.Y)}
	}
	return OrderCorners(pts)
}

// OrderCorners sorts four points by their angle around the centroid, which
// in image coordinates (y down) yields top-left, top-right, bottom-right,
// bottom-left for any convex quadrilateral rotated less than 45°.
func OrderCorners(pts []imaging.PointF) Corners {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	sorted := append([]imaging.PointF(nil), pts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Atan2(sorted[i].Y-cy, sorted[i].X-cx) < math.Atan2(sorted[j].Y-cy, sorted[j].X-cx)
	})

	var out Corners
	copy(out[:], sorted)
	return out
}

package imaging

import (
	"errors"
	"image"
	"math"
)

// ErrDegenerateQuad is returned when four points do not define a usable
// perspective transform (three or more are collinear).
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// Homography is a 3×3 projective transform stored row-major with h[8] = 1.
type Homography [9]float64

// Apply maps (x, y) through the transform.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return math.Inf(1), math.Inf(1)
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

// SolveHomography returns the transform that maps each src point onto the
// dst point with the same index.
func SolveHomography(src, dst [4]PointF) (Homography, error) {
	// Eight unknowns, two equations per correspondence.
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return Homography{}, ErrDegenerateQuad
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			f := a[r][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[r][k] -= f * a[col][k]
			}
		}
	}

	var h Homography
	for i := 0; i < 8; i++ {
		h[i] = a[i][8] / a[i][i]
	}
	h[8] = 1
	return h, nil
}

// CanonicalCorners returns the corners of a width×height raster in
// top-left, top-right, bottom-right, bottom-left order.
func CanonicalCorners(width, height int) [4]PointF {
	w, h := float64(width-1), float64(height-1)
	return [4]PointF{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// WarpPerspective resamples the quadrilateral quad of src (ordered TL, TR,
// BR, BL) into a width×height image. Samples falling outside src are
// clamped to the nearest edge pixel.
func WarpPerspective(src *image.Gray, quad [4]PointF, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("warp target must have positive size")
	}
	// Map destination pixels back into the source so every output pixel is
	// written exactly once.
	h, err := SolveHomography(CanonicalCorners(width, height), quad)
	if err != nil {
		return nil, err
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy := h.Apply(float64(x), float64(y))
			out.Pix[y*out.Stride+x] = bilinear(src, sx, sy)
		}
	}
	return out, nil
}

func bilinear(src *image.Gray, x, y float64) uint8 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if math.IsInf(x, 0) || math.IsNaN(x) || math.IsInf(y, 0) || math.IsNaN(y) {
		return 255
	}
	x = math.Max(0, math.Min(float64(w-1), x))
	y = math.Max(0, math.Min(float64(h-1), y))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	at := func(px, py int) float64 {
		return float64(src.Pix[src.PixOffset(b.Min.X+px, b.Min.Y+py)])
	}
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bottom := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	return uint8(math.Round(top*(1-fy) + bottom*fy))
}

package imaging

import (
	"context"
	"image"
	"image/draw"
	"sync/atomic"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// NativeEngine implements Engine in pure Go on top of bild.
type NativeEngine struct {
	ready atomic.Bool
}

// NewNativeEngine returns an uninitialised native engine.
func NewNativeEngine() *NativeEngine {
	return &NativeEngine{}
}

func (e *NativeEngine) Name() string { return EngineNative }

// Init has nothing to load; it only honours cancellation.
func (e *NativeEngine) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.ready.Store(true)
	return nil
}

func (e *NativeEngine) Ready() bool { return e.ready.Load() }

// Grayscale uses bild's luminance weights. bild returns RGBA with equal
// channels, so one channel is kept.
func (e *NativeEngine) Grayscale(img image.Image) *image.Gray {
	return redChannel(effect.Grayscale(img))
}

// GaussianBlur maps the kernel size onto bild's radius, whose kernel spans
// ceil(2r+1) taps.
func (e *NativeEngine) GaussianBlur(src *image.Gray, ksize int) *image.Gray {
	if ksize < 3 {
		return normalizeGray(src)
	}
	radius := float64(ksize-1) / 2
	// Gray input keeps R, G and B equal.
	return redChannel(blur.Gaussian(src, radius))
}

func (e *NativeEngine) AdaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	return AdaptiveThresholdInv(src, blockSize, c)
}

func (e *NativeEngine) Threshold(src *image.Gray, cutoff uint8) *image.Gray {
	return ThresholdInv(src, cutoff)
}

func (e *NativeEngine) ExternalContours(bin *image.Gray) []Contour {
	return FindExternalContours(bin)
}

func (e *NativeEngine) WarpPerspective(src *image.Gray, quad [4]PointF, width, height int) (*image.Gray, error) {
	return WarpPerspective(src, quad, width, height)
}

// redChannel copies the R channel of img into an origin-based Gray.
func redChannel(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = img.Pix[row+4*x]
		}
	}
	return out
}

// normalizeGray copies img so its bounds start at the origin.
func normalizeGray(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

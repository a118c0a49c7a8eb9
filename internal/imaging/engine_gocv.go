//go:build gocv

package imaging

import (
	"context"
	"image"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// OpenCVEngine implements Engine with OpenCV through gocv. It is only built
// with the gocv tag since it needs the OpenCV shared libraries.
type OpenCVEngine struct {
	ready atomic.Bool
}

func newOpenCVEngine() (Engine, error) {
	return &OpenCVEngine{}, nil
}

func (e *OpenCVEngine) Name() string { return EngineOpenCV }

// Init touches the library once so a missing or broken OpenCV install fails
// here rather than on the first sheet.
func (e *OpenCVEngine) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gocv.NewMatWithSize(1, 1, gocv.MatTypeCV8U)
	defer m.Close()
	if m.Empty() {
		return ErrEngineNotReady
	}
	e.ready.Store(true)
	return nil
}

func (e *OpenCVEngine) Ready() bool { return e.ready.Load() }

func (e *OpenCVEngine) Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return normalizeGray(g)
	}
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return image.NewGray(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return matToGray(dst)
}

func (e *OpenCVEngine) GaussianBlur(src *image.Gray, ksize int) *image.Gray {
	if ksize%2 == 0 {
		ksize++
	}
	return e.apply(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.GaussianBlur(in, out, image.Pt(ksize, ksize), 0, 0, gocv.BorderReplicate)
	})
}

func (e *OpenCVEngine) AdaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	if blockSize%2 == 0 {
		blockSize++
	}
	return e.apply(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.AdaptiveThreshold(in, out, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv, blockSize, float32(c))
	})
}

func (e *OpenCVEngine) Threshold(src *image.Gray, cutoff uint8) *image.Gray {
	// OpenCV keeps pixels strictly above the threshold as background.
	return e.apply(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Threshold(in, out, float32(cutoff)-1, 255, gocv.ThresholdBinaryInv)
	})
}

func (e *OpenCVEngine) ExternalContours(bin *image.Gray) []Contour {
	m, err := gocv.ImageGrayToMatGray(normalizeGray(bin))
	if err != nil {
		return nil
	}
	defer m.Close()

	found := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer found.Close()

	contours := make([]Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		contours = append(contours, Contour(found.At(i).ToPoints()))
	}
	return contours
}

func (e *OpenCVEngine) WarpPerspective(src *image.Gray, quad [4]PointF, width, height int) (*image.Gray, error) {
	in, err := gocv.ImageGrayToMatGray(normalizeGray(src))
	if err != nil {
		return nil, err
	}
	defer in.Close()

	srcPts := gocv.NewPoint2fVectorFromPoints(toPoint2f(quad))
	defer srcPts.Close()
	dstPts := gocv.NewPoint2fVectorFromPoints(toPoint2f(CanonicalCorners(width, height)))
	defer dstPts.Close()

	m := gocv.GetPerspectiveTransform2f(srcPts, dstPts)
	defer m.Close()
	if m.Empty() {
		return nil, ErrDegenerateQuad
	}

	out := gocv.NewMat()
	defer out.Close()
	gocv.WarpPerspective(in, &out, m, image.Pt(width, height))
	return matToGray(out), nil
}

func (e *OpenCVEngine) apply(src *image.Gray, fn func(in gocv.Mat, out *gocv.Mat)) *image.Gray {
	in, err := gocv.ImageGrayToMatGray(normalizeGray(src))
	if err != nil {
		return image.NewGray(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	}
	defer in.Close()
	out := gocv.NewMat()
	defer out.Close()
	fn(in, &out)
	return matToGray(out)
}

func matToGray(m gocv.Mat) *image.Gray {
	img, err := m.ToImage()
	if err != nil {
		return image.NewGray(image.Rect(0, 0, m.Cols(), m.Rows()))
	}
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return normalizeGray(toGray(img))
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.Set(x, y, img.At(x, y))
		}
	}
	return g
}

func toPoint2f(q [4]PointF) []gocv.Point2f {
	pts := make([]gocv.Point2f, len(q))
	for i, p := range q {
		pts[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return pts
}

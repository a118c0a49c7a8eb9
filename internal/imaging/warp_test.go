package imaging

import (
	"errors"
	"image"
	"math"
	"testing"
)

func TestSolveHomography_Identity(t *testing.T) {
	q := CanonicalCorners(100, 50)
	h, err := SolveHomography(q, q)
	if err != nil {
		t.Fatalf("SolveHomography failed: %v", err)
	}
	x, y := h.Apply(37, 12)
	if math.Abs(x-37) > 1e-6 || math.Abs(y-12) > 1e-6 {
		t.Errorf("identity mapped (37,12) to (%v,%v)", x, y)
	}
}

func TestSolveHomography_MapsCorners(t *testing.T) {
	src := CanonicalCorners(800, 1000)
	dst := [4]PointF{{112, 95}, {905, 130}, {880, 1110}, {90, 1080}}
	h, err := SolveHomography(src, dst)
	if err != nil {
		t.Fatalf("SolveHomography failed: %v", err)
	}
	for i := range src {
		x, y := h.Apply(src[i].X, src[i].Y)
		if math.Abs(x-dst[i].X) > 1e-6 || math.Abs(y-dst[i].Y) > 1e-6 {
			t.Errorf("corner %d mapped to (%v,%v), want %+v", i, x, y, dst[i])
		}
	}
}

func TestSolveHomography_Degenerate(t *testing.T) {
	collapsed := [4]PointF{{5, 5}, {5, 5}, {5, 5}, {5, 5}}
	if _, err := SolveHomography(CanonicalCorners(10, 10), collapsed); !errors.Is(err, ErrDegenerateQuad) {
		t.Errorf("err = %v, want ErrDegenerateQuad", err)
	}
}

func TestWarpPerspective_Identity(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 50, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			src.Pix[src.PixOffset(x, y)] = uint8(x*4 + y)
		}
	}

	out, err := WarpPerspective(src, CanonicalCorners(50, 40), 50, 40)
	if err != nil {
		t.Fatalf("WarpPerspective failed: %v", err)
	}
	for i := range src.Pix {
		if d := int(out.Pix[i]) - int(src.Pix[i]); d < -1 || d > 1 {
			t.Fatalf("pixel %d = %d, want %d", i, out.Pix[i], src.Pix[i])
		}
	}
}

func TestWarpPerspective_CropsQuad(t *testing.T) {
	src := uniformGray(200, 200, 255)
	// Dark block that sits in the middle of the quad.
	fillRect(src, image.Rect(90, 90, 110, 110), 0)

	quad := [4]PointF{{50, 50}, {149, 50}, {149, 149}, {50, 149}}
	out, err := WarpPerspective(src, quad, 100, 100)
	if err != nil {
		t.Fatalf("WarpPerspective failed: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if v := out.Pix[out.PixOffset(50, 50)]; v != 0 {
		t.Errorf("centre = %d, want 0", v)
	}
	if v := out.Pix[out.PixOffset(5, 5)]; v != 255 {
		t.Errorf("corner = %d, want 255", v)
	}
}

func TestWarpPerspective_InvalidSize(t *testing.T) {
	if _, err := WarpPerspective(uniformGray(10, 10, 0), CanonicalCorners(10, 10), 0, 10); err == nil {
		t.Error("zero width should fail")
	}
}

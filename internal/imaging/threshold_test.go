package imaging

import (
	"image"
	"testing"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestThresholdInv(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(src.Pix, []uint8{20, 110, 130, 240})

	bin := ThresholdInv(src, 120)
	want := []uint8{255, 255, 0, 0}
	for i, w := range want {
		if bin.Pix[i] != w {
			t.Errorf("pixel %d (value %d) = %d, want %d", i, src.Pix[i], bin.Pix[i], w)
		}
	}

	if none := ThresholdInv(src, 0); none.Pix[0] != 0 {
		t.Error("cutoff 0 should produce no foreground")
	}
}

func TestAdaptiveThresholdInv_Uniform(t *testing.T) {
	for _, v := range []uint8{0, 128, 255} {
		bin := AdaptiveThresholdInv(uniformGray(20, 20, v), 11, 2)
		for i, p := range bin.Pix {
			if p != 0 {
				t.Fatalf("uniform %d: pixel %d is foreground", v, i)
			}
		}
	}
}

func TestAdaptiveThresholdInv_Line(t *testing.T) {
	src := uniformGray(40, 40, 255)
	fillRect(src, image.Rect(18, 0, 21, 40), 0)

	bin := AdaptiveThresholdInv(src, 11, 2)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			onLine := x >= 18 && x < 21
			fg := bin.Pix[bin.PixOffset(x, y)] == 255
			if onLine != fg {
				t.Fatalf("pixel (%d,%d): foreground=%v, want %v", x, y, fg, onLine)
			}
		}
	}
}

func TestAdaptiveThresholdInv_EvenBlock(t *testing.T) {
	src := uniformGray(10, 10, 255)
	src.Pix[src.PixOffset(5, 5)] = 0
	// An even block size is rounded up rather than rejected.
	bin := AdaptiveThresholdInv(src, 4, 2)
	if bin.Pix[bin.PixOffset(5, 5)] != 255 {
		t.Error("dark pixel should be foreground")
	}
}

func TestClearBorder(t *testing.T) {
	bin := uniformGray(20, 20, 255)
	ClearBorder(bin, 3)

	if bin.Pix[bin.PixOffset(2, 10)] != 0 || bin.Pix[bin.PixOffset(17, 10)] != 0 {
		t.Error("left/right margin not cleared")
	}
	if bin.Pix[bin.PixOffset(10, 2)] != 0 || bin.Pix[bin.PixOffset(10, 17)] != 0 {
		t.Error("top/bottom margin not cleared")
	}
	if bin.Pix[bin.PixOffset(3, 3)] != 255 {
		t.Error("interior pixel was cleared")
	}
}

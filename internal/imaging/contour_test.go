package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

var colorOn = color.Gray{Y: 255}

func abs(f float64) float64 { return math.Abs(f) }

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Pix[img.PixOffset(x, y)] = v
		}
	}
}

func TestFindExternalContours_FilledRect(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 30, 20))
	fillRect(bin, image.Rect(5, 5, 15, 11), 255)

	contours := FindExternalContours(bin)
	if len(contours) != 1 {
		t.Fatalf("got %d contours, want 1", len(contours))
	}
	c := contours[0]
	if c[0] != image.Pt(5, 5) {
		t.Errorf("contour starts at %v, want topmost-leftmost (5,5)", c[0])
	}
	if got := c.Bounds(); got != image.Rect(5, 5, 15, 11) {
		t.Errorf("Bounds = %v, want (5,5)-(15,11)", got)
	}
	// Polygon through the boundary pixel centres: 9 × 5.
	if a := c.Area(); a != 45 {
		t.Errorf("Area = %v, want 45", a)
	}
	// Every boundary pixel is visited once: 2×(10+6) - 4.
	if len(c) != 28 {
		t.Errorf("contour length = %d, want 28", len(c))
	}
}

func TestFindExternalContours_SkipsEnclosed(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 60, 60))
	// Hollow frame with a blob in its hole.
	fillRect(bin, image.Rect(5, 5, 45, 45), 255)
	fillRect(bin, image.Rect(8, 8, 42, 42), 0)
	fillRect(bin, image.Rect(20, 20, 25, 25), 255)
	// Separate blob outside the frame.
	fillRect(bin, image.Rect(50, 50, 55, 55), 255)

	contours := FindExternalContours(bin)
	if len(contours) != 2 {
		t.Fatalf("got %d contours, want 2 (frame and outer blob)", len(contours))
	}
	if got := contours[0].Bounds(); got != image.Rect(5, 5, 45, 45) {
		t.Errorf("first contour bounds = %v, want the frame", got)
	}
	if got := contours[1].Bounds(); got != image.Rect(50, 50, 55, 55) {
		t.Errorf("second contour bounds = %v, want the outer blob", got)
	}
}

func TestFindExternalContours_TouchingBorder(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 10, 10))
	fillRect(bin, image.Rect(0, 0, 10, 3), 255)

	contours := FindExternalContours(bin)
	if len(contours) != 1 {
		t.Fatalf("got %d contours, want 1", len(contours))
	}
	if a := contours[0].Area(); a != 18 {
		t.Errorf("Area = %v, want 18", a)
	}
}

func TestFindExternalContours_SinglePixelsAndDiagonals(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 10, 10))
	bin.SetGray(2, 2, colorOn)
	// Diagonal neighbours form one 8-connected component.
	bin.SetGray(6, 6, colorOn)
	bin.SetGray(7, 7, colorOn)

	contours := FindExternalContours(bin)
	if len(contours) != 2 {
		t.Fatalf("got %d contours, want 2", len(contours))
	}
	if len(contours[0]) != 1 {
		t.Errorf("isolated pixel contour = %v", contours[0])
	}
	if len(contours[1]) != 2 {
		t.Errorf("diagonal pair contour = %v, want 2 points", contours[1])
	}
}

func TestFindExternalContours_Empty(t *testing.T) {
	if got := FindExternalContours(image.NewGray(image.Rect(0, 0, 20, 20))); len(got) != 0 {
		t.Errorf("blank image produced %d contours", len(got))
	}
	if got := FindExternalContours(image.NewGray(image.Rectangle{})); got != nil {
		t.Error("empty image should produce nil")
	}
}

func TestFindExternalContours_Disk(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			dx, dy := x-20, y-20
			if dx*dx+dy*dy <= 100 {
				bin.Pix[bin.PixOffset(x, y)] = 255
			}
		}
	}

	contours := FindExternalContours(bin)
	if len(contours) != 1 {
		t.Fatalf("got %d contours, want 1", len(contours))
	}
	c := contours[0]
	if circ := c.Circularity(); circ < 0.7 {
		t.Errorf("disk circularity = %v, want > 0.7", circ)
	}
	centre := c.Centroid()
	if abs(centre.X-20) > 0.5 || abs(centre.Y-20) > 0.5 {
		t.Errorf("disk centroid = %+v, want (20,20)", centre)
	}
}

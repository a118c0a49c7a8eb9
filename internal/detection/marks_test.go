package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/sheettest"
)

// canonicalSheet cuts the frame out of a rendered photo, which is what a
// perfect rectification produces.
func canonicalSheet(filled map[int][]int, questions, alternatives int) *image.Gray {
	rgba := sheettest.Sheet{
		Questions:    questions,
		Alternatives: alternatives,
		Filled:       filled,
	}.Render()
	gray := image.NewGray(image.Rect(0, 0, sheettest.FrameWidth, sheettest.FrameHeight))
	for y := 0; y < sheettest.FrameHeight; y++ {
		for x := 0; x < sheettest.FrameWidth; x++ {
			gray.Set(x, y, color.GrayModel.Convert(rgba.At(x+100, y+100)))
		}
	}
	return gray
}

func TestDetect_FilledAndEmpty(t *testing.T) {
	sheet := canonicalSheet(map[int][]int{0: {1}, 2: {4}}, 3, 5)

	d := NewDetector(readyEngine(t), DefaultDetectorOptions())
	marks, err := d.Detect(context.Background(), sheet)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(marks) != 15 {
		t.Fatalf("got %d marks, want 15", len(marks))
	}

	filled := 0
	for _, m := range marks {
		if m.Filled {
			filled++
		}
		if m.Circularity <= 0.5 {
			t.Errorf("mark at (%.0f,%.0f) has circularity %.2f", m.X, m.Y, m.Circularity)
		}
	}
	if filled != 2 {
		t.Errorf("got %d filled marks, want 2", filled)
	}

	want := sheettest.BubbleCenter(0, 1)
	found := false
	for _, m := range marks {
		if m.Filled && near(m.X, float64(want.X), 1.5) && near(m.Y, float64(want.Y), 1.5) {
			found = true
		}
	}
	if !found {
		t.Errorf("no filled mark near %v: %+v", want, marks)
	}
}

func TestDetect_IgnoresFrameAndNoise(t *testing.T) {
	sheet := canonicalSheet(nil, 0, 0)
	// A long printed line and a speck of dust.
	for x := 100; x < 700; x++ {
		for y := 500; y < 504; y++ {
			sheet.SetGray(x, y, color.Gray{})
		}
	}
	sheet.SetGray(300, 300, color.Gray{})

	marks, err := NewDetector(readyEngine(t), DefaultDetectorOptions()).Detect(context.Background(), sheet)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(marks) != 0 {
		t.Errorf("got %d marks on a sheet without bubbles: %+v", len(marks), marks)
	}
}

func TestDetect_Empty(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 800, 1000))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	marks, err := NewDetector(readyEngine(t), DetectorOptions{}).Detect(context.Background(), blank)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if marks == nil || len(marks) != 0 {
		t.Errorf("marks = %v, want empty non-nil slice", marks)
	}
}

func TestDetect_EngineNotReady(t *testing.T) {
	d := NewDetector(imaging.NewNativeEngine(), DefaultDetectorOptions())
	if _, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 5, 5))); !errors.Is(err, imaging.ErrEngineNotReady) {
		t.Errorf("err = %v, want ErrEngineNotReady", err)
	}
}

func TestDetect_AfterRectify(t *testing.T) {
	photo := sheettest.FromAnswers(5, []*int{sheettest.Ptr(0), sheettest.Ptr(2), nil, sheettest.Ptr(4)}).Render()
	e := readyEngine(t)

	rect, err := NewRectifier(e, DefaultRectifierOptions()).Rectify(context.Background(), photo)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	marks, err := NewDetector(e, DefaultDetectorOptions()).Detect(context.Background(), rect.Image)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(marks) != 20 {
		t.Fatalf("got %d marks, want 20", len(marks))
	}
	filled := 0
	for _, m := range marks {
		if m.Filled {
			filled++
		}
	}
	if filled != 3 {
		t.Errorf("got %d filled marks, want 3", filled)
	}
}

func TestDetect_SheetOnDarkBackground(t *testing.T) {
	paper := sheettest.FromAnswers(5, []*int{sheettest.Ptr(1), nil, sheettest.Ptr(4), sheettest.Ptr(0)}).Render()
	photo := sheettest.OnBackground(paper, 90, 120)
	e := readyEngine(t)

	rect, err := NewRectifier(e, DefaultRectifierOptions()).Rectify(context.Background(), photo)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	marks, err := NewDetector(e, DefaultDetectorOptions()).Detect(context.Background(), rect.Image)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(marks) != 20 {
		t.Fatalf("got %d marks, want 20", len(marks))
	}
	for _, want := range []image.Point{sheettest.BubbleCenter(0, 1), sheettest.BubbleCenter(2, 4), sheettest.BubbleCenter(3, 0)} {
		found := false
		for _, m := range marks {
			if m.Filled && near(m.X, float64(want.X), 3) && near(m.Y, float64(want.Y), 3) {
				found = true
			}
		}
		if !found {
			t.Errorf("no filled mark near %v", want)
		}
	}
}

func TestMeanInDisk(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	if m := meanInDisk(img, imaging.PointF{X: 5, Y: 5}, 3); m != 200 {
		t.Errorf("mean = %v, want 200", m)
	}
	// Clipped at the border but still averaged over what is inside.
	if m := meanInDisk(img, imaging.PointF{X: 0, Y: 0}, 3); m != 200 {
		t.Errorf("corner mean = %v, want 200", m)
	}
	if m := meanInDisk(img, imaging.PointF{X: -50, Y: -50}, 3); m != 255 {
		t.Errorf("outside mean = %v, want 255", m)
	}
}

// Package sheettest renders synthetic answer sheets for tests.
//
// A rendered sheet is a white canvas with a thick black frame whose outer
// edge measures exactly FrameWidth×FrameHeight, so rectifying it into the
// default canonical size is close to a pure translation. Bubbles sit on a
// regular grid inside the frame: filled bubbles are solid disks, empty ones
// are rings.
package sheettest

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// Layout constants, in canonical (rectified) coordinates.
const (
	FrameWidth     = 800
	FrameHeight    = 1000
	FrameThickness = 6
	BubbleRadius   = 10
	FirstBubbleX   = 200
	FirstBubbleY   = 200
	Pitch          = 60
)

// Sheet describes what to draw.
type Sheet struct {
	Questions    int
	Alternatives int

	// Filled maps a 0-based question index to the alternatives marked on it.
	Filled map[int][]int

	// Offset is the position of the frame's top-left corner on the canvas.
	// The zero value means (100, 100).
	Offset image.Point

	// Canvas size; zero values mean 1000×1200.
	CanvasWidth  int
	CanvasHeight int
}

// FromAnswers builds a sheet with one filled bubble per non-nil answer.
func FromAnswers(alternatives int, answers []*int) Sheet {
	s := Sheet{Questions: len(answers), Alternatives: alternatives, Filled: map[int][]int{}}
	for q, a := range answers {
		if a != nil {
			s.Filled[q] = []int{*a}
		}
	}
	return s
}

// BubbleCenter returns the canonical centre of a bubble.
func BubbleCenter(question, alternative int) image.Point {
	return image.Pt(FirstBubbleX+Pitch*alternative, FirstBubbleY+Pitch*question)
}

// Render draws the sheet.
func (s Sheet) Render() *image.RGBA {
	w, h := s.CanvasWidth, s.CanvasHeight
	if w == 0 {
		w = 1000
	}
	if h == 0 {
		h = 1200
	}
	off := s.Offset
	if off == (image.Point{}) {
		off = image.Pt(100, 100)
	}

	img := Blank(w, h)
	frame := image.Rect(off.X, off.Y, off.X+FrameWidth, off.Y+FrameHeight)
	inner := frame.Inset(FrameThickness)
	for y := frame.Min.Y; y < frame.Max.Y; y++ {
		for x := frame.Min.X; x < frame.Max.X; x++ {
			if !image.Pt(x, y).In(inner) {
				img.Set(x, y, color.Black)
			}
		}
	}

	for q := 0; q < s.Questions; q++ {
		filled := map[int]bool{}
		for _, a := range s.Filled[q] {
			filled[a] = true
		}
		for a := 0; a < s.Alternatives; a++ {
			c := BubbleCenter(q, a).Add(off)
			drawBubble(img, c, filled[a])
		}
	}
	return img
}

// Blank returns a white canvas with nothing on it.
func Blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// OnBackground places img on a uniform gray canvas, margin pixels in from
// every side, the way a sheet photographed on a desk looks.
func OnBackground(img image.Image, level uint8, margin int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*margin, b.Dy()+2*margin))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Gray{Y: level}), image.Point{}, draw.Src)
	draw.Draw(out, b.Sub(b.Min).Add(image.Pt(margin, margin)), img, b.Min, draw.Src)
	return out
}

// PNG encodes img.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Ptr returns a pointer to v, for building answer lists.
func Ptr(v int) *int { return &v }

func drawBubble(img *image.RGBA, c image.Point, filled bool) {
	r := BubbleRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > r*r {
				continue
			}
			// Rings are three pixels thick so resampling never breaks them.
			if !filled && d2 <= (r-3)*(r-3) {
				continue
			}
			img.Set(c.X+dx, c.Y+dy, color.Black)
		}
	}
}

package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MarkStyle selects the colour used to outline a bubble.
type MarkStyle int

const (
	StyleEmpty     MarkStyle = iota // detected, not filled
	StyleFilled                     // filled and counted as the answer
	StyleAmbiguous                  // filled, but its question had several
	StyleExpected                   // the answer-key alternative
)

// Annotation is one circle drawn over a sheet, with an optional label to
// its left.
type Annotation struct {
	Center PointF
	Radius float64
	Style  MarkStyle
	Label  string
}

var stylePalette = map[MarkStyle]colorful.Color{
	StyleEmpty:     mustHex("#9e9e9e"),
	StyleFilled:    mustHex("#2e7d32"),
	StyleAmbiguous: mustHex("#ef6c00"),
	StyleExpected:  mustHex("#1565c0"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Annotate copies base into an RGBA canvas and draws every annotation on it.
// Outlines are blended with the underlying pixels in Lab space so they stay
// readable on both paper and ink.
func Annotate(base image.Image, anns []Annotation) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	for _, a := range anns {
		c, ok := stylePalette[a.Style]
		if !ok {
			c = stylePalette[StyleEmpty]
		}
		strokeCircle(out, a.Center, a.Radius+2, 2, c)
		if a.Label != "" {
			drawText(out, int(a.Center.X-a.Radius)-8*len(a.Label)-4, int(a.Center.Y)+4, a.Label, c)
		}
	}

	return out
}

// DrawBanner writes text on a dark strip across the top of img, preceded by
// a square swatch in the accent colour.
func DrawBanner(img *image.RGBA, text string, accent color.RGBA) {
	w := img.Bounds().Dx()
	draw.Draw(img, image.Rect(0, 0, w, 18), image.NewUniform(color.RGBA{0, 0, 0, 200}), image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(4, 3, 16, 15), image.NewUniform(accent), image.Point{}, draw.Src)
	drawText(img, 22, 13, text, colorful.Color{R: 1, G: 1, B: 1})
}

// HighlightColor shades a confidence score from red (0) to green (100).
func HighlightColor(confidence int) color.RGBA {
	t := math.Max(0, math.Min(1, float64(confidence)/100))
	low := mustHex("#c62828")
	high := stylePalette[StyleFilled]
	r, g, bl := low.BlendHcl(high, t).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: bl, A: 255}
}

func strokeCircle(img *image.RGBA, center PointF, radius, width float64, c colorful.Color) {
	bounds := img.Bounds()
	x0 := int(math.Floor(center.X - radius - width))
	x1 := int(math.Ceil(center.X + radius + width))
	y0 := int(math.Floor(center.Y - radius - width))
	y1 := int(math.Ceil(center.Y + radius + width))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !image.Pt(x, y).In(bounds) {
				continue
			}
			d := math.Hypot(float64(x)-center.X, float64(y)-center.Y)
			if math.Abs(d-radius) > width/2 {
				continue
			}
			under, _ := colorful.MakeColor(img.RGBAAt(x, y))
			r, g, bl := under.BlendLab(c, 0.8).Clamped().RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: bl, A: 255})
		}
	}
}

func drawText(img *image.RGBA, x, y int, text string, c colorful.Color) {
	if x < 0 {
		x = 0
	}
	r, g, b := c.Clamped().RGB255()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: r, G: g, B: b, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

package imaging

import (
	"image"
	"math"
)

// PointF is a sub-pixel coordinate.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contour is a closed boundary of a connected foreground region, listed in
// tracing order. The last point connects back to the first.
type Contour []image.Point

// Area returns the enclosed area using the shoelace formula.
//
// The result is the area of the polygon through the boundary pixel centers,
// so a single pixel or a one-pixel-wide line has zero area.
func (c Contour) Area() float64 {
	return math.Abs(signedArea(c))
}

// Perimeter returns the length of the closed polygon.
func (c Contour) Perimeter() float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	var p float64
	for i := 0; i < n; i++ {
		a, b := c[i], c[(i+1)%n]
		p += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return p
}

// Circularity returns 4πA/P², which is 1 for a perfect circle and tends to
// zero for elongated shapes. Degenerate contours report 0.
func (c Contour) Circularity() float64 {
	p := c.Perimeter()
	if p == 0 {
		return 0
	}
	return 4 * math.Pi * c.Area() / (p * p)
}

// Centroid returns the polygon centroid computed from the first-order
// moments. Contours with no area fall back to the mean of their points.
func (c Contour) Centroid() PointF {
	n := len(c)
	if n == 0 {
		return PointF{}
	}
	a := signedArea(c)
	if math.Abs(a) < 1e-9 {
		var sx, sy float64
		for _, p := range c {
			sx += float64(p.X)
			sy += float64(p.Y)
		}
		return PointF{X: sx / float64(n), Y: sy / float64(n)}
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		cross := float64(p.X*q.Y - q.X*p.Y)
		cx += float64(p.X+q.X) * cross
		cy += float64(p.Y+q.Y) * cross
	}
	return PointF{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Bounds returns the bounding rectangle, with Max exclusive.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(c[0].X, c[0].Y, c[0].X+1, c[0].Y+1)
	for _, p := range c[1:] {
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
	}
	return r
}

// Approx simplifies the closed contour with the Douglas-Peucker algorithm.
// Points closer than epsilon to the simplified polygon are dropped.
func (c Contour) Approx(epsilon float64) Contour {
	n := len(c)
	if n < 3 {
		return append(Contour(nil), c...)
	}

	// Split the ring at the point farthest from the start so each half is an
	// open polyline with well-defined endpoints.
	far := 0
	best := -1.0
	for i := 1; i < n; i++ {
		d := dist2(c[0], c[i])
		if d > best {
			best, far = d, i
		}
	}
	if far == 0 {
		return Contour{c[0]}
	}

	first := douglasPeucker(c[:far+1], epsilon)
	tail := make([]image.Point, 0, n-far+1)
	tail = append(tail, c[far:]...)
	tail = append(tail, c[0])
	second := douglasPeucker(tail, epsilon)

	out := make(Contour, 0, len(first)+len(second))
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return dropCollinear(out, epsilon)
}

// IsConvex reports whether the polygon turns in one direction only.
func (c Contour) IsConvex() bool {
	n := len(c)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a, b, d := c[i], c[(i+1)%n], c[(i+2)%n]
		cross := (b.X-a.X)*(d.Y-b.Y) - (b.Y-a.Y)*(d.X-b.X)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}

func signedArea(c Contour) float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var s int
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		s += p.X*q.Y - q.X*p.Y
	}
	return float64(s) / 2
}

func dist2(a, b image.Point) float64 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return dx*dx + dy*dy
}

// segmentDistance is the distance from p to the segment ab.
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Sqrt(dist2(p, a))
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	px, py := float64(a.X)+t*dx, float64(a.Y)+t*dy
	return math.Hypot(float64(p.X)-px, float64(p.Y)-py)
}

// douglasPeucker simplifies an open polyline, keeping both endpoints.
func douglasPeucker(pts []image.Point, epsilon float64) []image.Point {
	if len(pts) < 3 {
		return append([]image.Point(nil), pts...)
	}
	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, len(pts) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		idx, dmax := -1, 0.0
		for i := s.lo + 1; i < s.hi; i++ {
			if d := segmentDistance(pts[i], pts[s.lo], pts[s.hi]); d > dmax {
				idx, dmax = i, d
			}
		}
		if idx >= 0 && dmax > epsilon {
			keep[idx] = true
			stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
		}
	}

	out := make([]image.Point, 0, len(pts))
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// dropCollinear removes ring vertices lying within epsilon of the segment
// joining their neighbours. The split point chosen by Approx is not a real
// corner in general and is the usual casualty.
func dropCollinear(poly Contour, epsilon float64) Contour {
	for len(poly) > 3 {
		removed := false
		for i := 0; i < len(poly); i++ {
			prev := poly[(i+len(poly)-1)%len(poly)]
			next := poly[(i+1)%len(poly)]
			if segmentDistance(poly[i], prev, next) <= epsilon {
				poly = append(poly[:i:i], poly[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return poly
}

package imaging

import "image"

// mooreOffsets lists the 8 neighbours clockwise (y grows downward),
// starting from the west neighbour.
var mooreOffsets = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// binaryMask is a read-only view of a thresholded image where any non-zero
// pixel is foreground.
type binaryMask struct {
	pix    []uint8
	stride int
	w, h   int
}

func newBinaryMask(bin *image.Gray) binaryMask {
	b := bin.Bounds()
	return binaryMask{
		pix:    bin.Pix[bin.PixOffset(b.Min.X, b.Min.Y):],
		stride: bin.Stride,
		w:      b.Dx(),
		h:      b.Dy(),
	}
}

func (m binaryMask) fg(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.pix[y*m.stride+x] != 0
}

// FindExternalContours returns the outer boundary of every 8-connected
// foreground component that is not enclosed by another component.
//
// Components sitting inside the hole of a larger component (a bubble drawn
// inside a frame, for example) are skipped, as are the holes themselves.
// Contours are produced in raster order of their topmost-leftmost pixel,
// and coordinates are relative to the image bounds origin.
func FindExternalContours(bin *image.Gray) []Contour {
	m := newBinaryMask(bin)
	if m.w == 0 || m.h == 0 {
		return nil
	}

	outside := outsideBackground(m)
	labels := make([]int32, m.w*m.h)
	var contours []Contour
	var label int32
	queue := make([]int, 0, 256)

	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if !m.fg(x, y) || labels[y*m.w+x] != 0 {
				continue
			}
			label++
			external := false

			// Iterative flood fill keeps deep components off the goroutine stack.
			queue = append(queue[:0], y*m.w+x)
			labels[y*m.w+x] = label
			for len(queue) > 0 {
				idx := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				px, py := idx%m.w, idx/m.w

				if !external {
					external = touchesOutside(m, outside, px, py)
				}
				for _, d := range mooreOffsets {
					nx, ny := px+d.X, py+d.Y
					if !m.fg(nx, ny) {
						continue
					}
					n := ny*m.w + nx
					if labels[n] == 0 {
						labels[n] = label
						queue = append(queue, n)
					}
				}
			}

			if external {
				contours = append(contours, traceBoundary(m, image.Pt(x, y)))
			}
		}
	}
	return contours
}

// outsideBackground marks background pixels 4-connected to the image border.
func outsideBackground(m binaryMask) []bool {
	out := make([]bool, m.w*m.h)
	queue := make([]int, 0, 2*(m.w+m.h))
	push := func(x, y int) {
		idx := y*m.w + x
		if m.fg(x, y) || out[idx] {
			return
		}
		out[idx] = true
		queue = append(queue, idx)
	}
	for x := 0; x < m.w; x++ {
		push(x, 0)
		push(x, m.h-1)
	}
	for y := 0; y < m.h; y++ {
		push(0, y)
		push(m.w-1, y)
	}
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := idx%m.w, idx/m.w
		if x > 0 {
			push(x-1, y)
		}
		if x < m.w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < m.h-1 {
			push(x, y+1)
		}
	}
	return out
}

func touchesOutside(m binaryMask, outside []bool, x, y int) bool {
	for _, d := range [4]image.Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+d.X, y+d.Y
		if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
			return true
		}
		if outside[ny*m.w+nx] {
			return true
		}
	}
	return false
}

// traceBoundary follows the outer boundary clockwise with Moore-neighbour
// tracing. start must be the topmost-leftmost pixel of its component, so
// its west neighbour is background.
func traceBoundary(m binaryMask, start image.Point) Contour {
	contour := Contour{start}
	cur := start
	back := 0 // direction from cur to the last background pixel examined
	var second image.Point
	haveSecond := false
	limit := 4*m.w*m.h + 8

	for steps := 0; steps < limit; steps++ {
		next, nextBack, ok := mooreStep(m, cur, back)
		if !ok {
			// Isolated pixel.
			return contour
		}
		if cur == start && haveSecond && next == second {
			break
		}
		if !haveSecond {
			second, haveSecond = next, true
		}
		contour = append(contour, next)
		cur, back = next, nextBack
	}

	if n := len(contour); n > 1 && contour[n-1] == start {
		contour = contour[:n-1]
	}
	return contour
}

// mooreStep scans the neighbours of cur clockwise, starting just after the
// background pixel in direction back, and returns the first foreground pixel
// together with the direction from it to the background pixel examined
// immediately before it.
func mooreStep(m binaryMask, cur image.Point, back int) (image.Point, int, bool) {
	for i := 1; i <= 8; i++ {
		d := (back + i) % 8
		n := cur.Add(mooreOffsets[d])
		if !m.fg(n.X, n.Y) {
			continue
		}
		prev := cur.Add(mooreOffsets[(d+7)%8])
		return n, directionOf(prev.Sub(n)), true
	}
	return image.Point{}, 0, false
}

func directionOf(off image.Point) int {
	for i, d := range mooreOffsets {
		if d == off {
			return i
		}
	}
	return 0
}

package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
)

// ThresholdInv marks every pixel darker than cutoff as foreground (255) and
// everything else as background (0).
func ThresholdInv(src *image.Gray, cutoff uint8) *image.Gray {
	b := src.Bounds()
	if cutoff == 0 {
		return image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	// segment.Threshold whitens pixels at or above the level, so the
	// foreground is whatever it leaves black.
	bright := segment.Threshold(src, cutoff)
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i, v := range bright.Pix {
		if v == 0 {
			out.Pix[i] = 255
		}
	}
	return out
}

// AdaptiveThresholdInv applies a mean adaptive threshold: a pixel is
// foreground when it is at least c below the mean of the blockSize×blockSize
// window around it. Windows are clipped at the image border.
//
// blockSize is forced odd and to a minimum of 3.
func AdaptiveThresholdInv(src *image.Gray, blockSize int, c float64) *image.Gray {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	// Summed-area table with a zero row and column in front.
	sum := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			row += int64(src.Pix[off+x])
			sum[(y+1)*(w+1)+x+1] = sum[y*(w+1)+x+1] + row
		}
	}

	r := blockSize / 2
	for y := 0; y < h; y++ {
		y0, y1 := clamp(y-r, 0, h-1), clamp(y+r, 0, h-1)+1
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			x0, x1 := clamp(x-r, 0, w-1), clamp(x+r, 0, w-1)+1
			total := sum[y1*(w+1)+x1] - sum[y0*(w+1)+x1] - sum[y1*(w+1)+x0] + sum[y0*(w+1)+x0]
			mean := float64(total) / float64((x1-x0)*(y1-y0))
			if float64(src.Pix[off+x]) <= mean-c {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// ClearBorder zeroes a frame of the given width around the image in place.
func ClearBorder(bin *image.Gray, margin int) {
	if margin <= 0 {
		return
	}
	b := bin.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if x-b.Min.X < margin || b.Max.X-1-x < margin || y-b.Min.Y < margin || b.Max.Y-1-y < margin {
				bin.Pix[bin.PixOffset(x, y)] = 0
			}
		}
	}
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

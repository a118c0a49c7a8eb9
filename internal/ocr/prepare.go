package ocr

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/segment"
	dimaging "github.com/disintegration/imaging"
)

const (
	// minRecognitionWidth: narrower crops are upscaled; Tesseract reads
	// glyphs around 30 px tall best.
	minRecognitionWidth = 1200
	contrastBoost       = 0.4
	inkLevel            = 150
)

// Prepare turns a header crop into clean black text on white.
func Prepare(img image.Image) *image.Gray {
	if img.Bounds().Dx() < minRecognitionWidth {
		img = dimaging.Resize(img, minRecognitionWidth, 0, dimaging.Lanczos)
	}
	return segment.Threshold(adjust.Contrast(img, contrastBoost), inkLevel)
}

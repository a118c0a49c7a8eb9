//go:build !tesseract

package ocr

import (
	"context"
	"image"
)

// TesseractRecognizer is unavailable in this build.
type TesseractRecognizer struct{}

// NewTesseractRecognizer always fails with ErrOCRUnavailable.
func NewTesseractRecognizer(language, tessdataPrefix string) (*TesseractRecognizer, error) {
	return nil, ErrOCRUnavailable
}

func (*TesseractRecognizer) Recognize(context.Context, image.Image) (string, error) {
	return "", ErrOCRUnavailable
}

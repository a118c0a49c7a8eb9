//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs Tesseract on in-memory images. Each call uses its
// own client, so one recognizer can serve concurrent sheets.
type TesseractRecognizer struct {
	language       string
	tessdataPrefix string
}

// NewTesseractRecognizer creates a recognizer for language ("por", "eng",
// "por+eng"). An empty tessdataPrefix uses the system data directory.
func NewTesseractRecognizer(language, tessdataPrefix string) (*TesseractRecognizer, error) {
	if language == "" {
		language = "por+eng"
	}
	return &TesseractRecognizer{language: language, tessdataPrefix: tessdataPrefix}, nil
}

// Recognize returns the text Tesseract finds in img.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(strings.Split(t.language, "+")...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

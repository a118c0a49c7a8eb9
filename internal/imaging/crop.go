package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG ready to embed in a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts r from img and optionally rescales it.
func Crop(img image.Image, r image.Rectangle, scale float64) (image.Image, error) {
	bounds := img.Bounds()

	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped, nil
}

// Sheet regions understood by CropRegion.
const (
	RegionHeader = "header" // student identification band above the bubbles
	RegionBody   = "body"
	RegionFull   = "full"
)

// headerFraction is the share of the rectified sheet height reserved for
// the student header.
const headerFraction = 0.15

// CropRegion extracts a named band of a rectified sheet.
func CropRegion(img image.Image, region string, scale float64) (image.Image, error) {
	bounds := img.Bounds()
	header := bounds.Min.Y + int(float64(bounds.Dy())*headerFraction)

	var r image.Rectangle
	switch region {
	case RegionHeader:
		r = image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, header)
	case RegionBody:
		r = image.Rect(bounds.Min.X, header, bounds.Max.X, bounds.Max.Y)
	case RegionFull:
		r = bounds
	default:
		return nil, fmt.Errorf("unknown region: %s", region)
	}
	return Crop(img, r, scale)
}

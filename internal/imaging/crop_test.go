package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createInMemoryImage returns a solid-colour RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	cropped, err := Crop(img, image.Rect(0, 0, 50, 40), 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if d := DimensionsOf(cropped); d.Width != 50 || d.Height != 40 {
		t.Errorf("dimensions: got %dx%d, want 50x40", d.Width, d.Height)
	}
}

func TestCrop_WithScale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	cropped, err := Crop(img, image.Rect(0, 0, 50, 50), 2.0)
	if err != nil {
		t.Fatalf("Crop with scale failed: %v", err)
	}
	if d := DimensionsOf(cropped); d.Width != 100 || d.Height != 100 {
		t.Errorf("scaled dimensions: got %dx%d, want 100x100", d.Width, d.Height)
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.White)

	tests := []struct {
		name string
		r    image.Rectangle
	}{
		{"outside", image.Rect(50, 50, 150, 150)},
		{"negative", image.Rect(-10, 0, 10, 10)},
		{"empty", image.Rect(20, 20, 20, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.r, 1.0); err == nil {
				t.Errorf("Crop(%v) should fail", tt.r)
			}
		})
	}
}

func TestCropRegion(t *testing.T) {
	img := createInMemoryImage(800, 1000, color.White)

	header, err := CropRegion(img, RegionHeader, 1.0)
	if err != nil {
		t.Fatalf("CropRegion header failed: %v", err)
	}
	if d := DimensionsOf(header); d.Width != 800 || d.Height != 150 {
		t.Errorf("header dimensions = %+v, want 800x150", d)
	}

	body, err := CropRegion(img, RegionBody, 1.0)
	if err != nil {
		t.Fatalf("CropRegion body failed: %v", err)
	}
	if d := DimensionsOf(body); d.Height != 850 {
		t.Errorf("body height = %d, want 850", d.Height)
	}

	if _, err := CropRegion(img, "margin", 1.0); err == nil {
		t.Error("unknown region should fail")
	}
}

func TestEncodePNG(t *testing.T) {
	img := createInMemoryImage(12, 7, color.RGBA{0, 0, 255, 255})

	enc, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", enc.MimeType)
	}
	if enc.Width != 12 || enc.Height != 7 {
		t.Errorf("dimensions: got %dx%d, want 12x7", enc.Width, enc.Height)
	}

	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a PNG: %v", err)
	}
	r, g, b, _ := decoded.At(3, 3).RGBA()
	if r != 0 || g != 0 || b>>8 != 255 {
		t.Errorf("pixel = (%d,%d,%d), want blue", r>>8, g>>8, b>>8)
	}
}

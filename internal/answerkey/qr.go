package answerkey

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder reads answer keys from still images.
//
// A Decoder is stateless; the gozxing reader is created per call so one
// Decoder can serve concurrent requests.
type Decoder struct {
	tryHarder bool
}

// NewDecoder returns a decoder that spends extra effort locating codes in
// cluttered photos.
func NewDecoder() *Decoder {
	return &Decoder{tryHarder: true}
}

// DecodeText returns the raw text of the first QR code found in img.
func (d *Decoder) DecodeText(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrNoCodeFound
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCodeFound, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}
	if d.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		// NotFound, checksum and format failures all mean "keep looking".
		return "", fmt.Errorf("%w: %v", ErrNoCodeFound, err)
	}
	return result.GetText(), nil
}

// DecodeImage reads and validates the answer key in img.
func (d *Decoder) DecodeImage(img image.Image) (*Payload, error) {
	text, err := d.DecodeText(img)
	if err != nil {
		return nil, err
	}
	return ParsePayload([]byte(text))
}

// EncodeQR renders p as a size×size QR code, quiet zone included.
func EncodeQR(p *Payload, size int) (*image.Gray, error) {
	if size <= 0 {
		return nil, errors.New("QR size must be positive")
	}
	data, err := Encode(p)
	if err != nil {
		return nil, err
	}
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_CHARACTER_SET: "UTF-8",
	}
	matrix, err := qrcode.NewQRCodeWriter().Encode(string(data), gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		return nil, fmt.Errorf("render answer key QR: %w", err)
	}

	w, h := matrix.GetWidth(), matrix.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.Gray{Y: 255}
			if matrix.Get(x, y) {
				c.Y = 0
			}
			img.SetGray(x, y, c)
		}
	}
	return img, nil
}

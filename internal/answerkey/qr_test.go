package answerkey

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func samplePayload() *Payload {
	return &Payload{
		ExamID:      "exam-7",
		VariationID: "A",
		AnswerKey:   []*int{ptr(1), ptr(0), ptr(2), nil, ptr(3)},
	}
}

// rawQR renders arbitrary text, for codes that are not answer keys.
func rawQR(t *testing.T, text string) *image.Gray {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	if err != nil {
		t.Fatalf("encode %q: %v", text, err)
	}
	img := image.NewGray(image.Rect(0, 0, m.GetWidth(), m.GetHeight()))
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if !m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// onPage pastes img onto a larger white page, as a printed sheet would.
func onPage(img image.Image, at image.Point) *image.RGBA {
	page := image.NewRGBA(image.Rect(0, 0, 800, 600))
	draw.Draw(page, page.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(page, img.Bounds().Add(at), img, img.Bounds().Min, draw.Src)
	return page
}

func TestEncodeDecodeQR(t *testing.T) {
	qr, err := EncodeQR(samplePayload(), 300)
	if err != nil {
		t.Fatalf("EncodeQR failed: %v", err)
	}
	if qr.Bounds().Dx() < 300 {
		t.Errorf("QR width = %d, want >= 300", qr.Bounds().Dx())
	}

	p, err := NewDecoder().DecodeImage(qr)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if p.ExamID != "exam-7" || p.VariationID != "A" {
		t.Errorf("ids = %q/%q", p.ExamID, p.VariationID)
	}
	if len(p.AnswerKey) != 5 || p.AnswerKey[3] != nil || *p.AnswerKey[4] != 3 {
		t.Errorf("AnswerKey = %v", p.AnswerKey)
	}
}

func TestDecodeImage_OnPage(t *testing.T) {
	qr, err := EncodeQR(samplePayload(), 250)
	if err != nil {
		t.Fatalf("EncodeQR failed: %v", err)
	}
	p, err := NewDecoder().DecodeImage(onPage(qr, image.Pt(500, 40)))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if p.TotalQuestions != 5 {
		t.Errorf("TotalQuestions = %d, want 5", p.TotalQuestions)
	}
}

func TestDecodeImage_NoCode(t *testing.T) {
	blank := onPage(image.NewGray(image.Rect(0, 0, 0, 0)), image.Point{})
	if _, err := NewDecoder().DecodeImage(blank); !errors.Is(err, ErrNoCodeFound) {
		t.Errorf("err = %v, want ErrNoCodeFound", err)
	}
	if _, err := NewDecoder().DecodeImage(nil); !errors.Is(err, ErrNoCodeFound) {
		t.Errorf("nil image: err = %v, want ErrNoCodeFound", err)
	}
}

func TestDecodeImage_ForeignCode(t *testing.T) {
	_, err := NewDecoder().DecodeImage(rawQR(t, `{"kind":"attendance","room":"B12"}`))
	if !errors.Is(err, ErrInvalidPayloadKind) {
		t.Errorf("err = %v, want ErrInvalidPayloadKind", err)
	}

	_, err = NewDecoder().DecodeImage(rawQR(t, "https://example.com/not-json"))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestEncodeQR_InvalidSize(t *testing.T) {
	if _, err := EncodeQR(samplePayload(), 0); err == nil {
		t.Error("expected error for zero size")
	}
}

package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// ErrOCRUnavailable is returned when the binary was built without an OCR
// backend.
var ErrOCRUnavailable = errors.New("OCR support not compiled in (build with -tags tesseract)")

// StudentInfo identifies who filled a sheet. Every field is optional.
type StudentInfo struct {
	Name      string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	StudentID string `json:"studentId,omitempty" validate:"omitempty,max=64"`
}

// IsEmpty reports whether no field was read.
func (s StudentInfo) IsEmpty() bool {
	return s.Name == "" && s.Email == "" && s.StudentID == ""
}

// StudentInfoReader extracts student details from a rectified sheet.
type StudentInfoReader interface {
	ReadStudentInfo(ctx context.Context, sheet image.Image) (*StudentInfo, error)
}

// TextRecognizer turns an image of printed or handwritten text into text.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// NopReader never reads anything.
type NopReader struct{}

func (NopReader) ReadStudentInfo(context.Context, image.Image) (*StudentInfo, error) {
	return &StudentInfo{}, nil
}

// HeaderReader reads the header band of a sheet with a TextRecognizer.
type HeaderReader struct {
	recognizer TextRecognizer
	// Scale enlarges the cropped header before recognition.
	scale float64
}

// NewHeaderReader creates a reader backed by r.
func NewHeaderReader(r TextRecognizer) *HeaderReader {
	return &HeaderReader{recognizer: r, scale: 2}
}

// ReadStudentInfo crops the header band, prepares it and parses whatever
// text the recognizer returns.
func (h *HeaderReader) ReadStudentInfo(ctx context.Context, sheet image.Image) (*StudentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	header, err := imaging.CropRegion(sheet, imaging.RegionHeader, h.scale)
	if err != nil {
		return nil, fmt.Errorf("crop header: %w", err)
	}
	text, err := h.recognizer.Recognize(ctx, Prepare(header))
	if err != nil {
		return nil, fmt.Errorf("recognize header: %w", err)
	}
	info := ParseHeader(text)
	return &info, nil
}

package answerkey

import (
	"errors"
	"strings"
)

var (
	// ErrNoCodeFound means the image holds no readable QR code.
	ErrNoCodeFound = errors.New("no QR code found")

	// ErrInvalidPayloadKind means the QR code decoded but is not an answer key.
	ErrInvalidPayloadKind = errors.New("QR code is not an answer key")

	// ErrMalformedPayload covers invalid JSON and fields of the wrong shape.
	ErrMalformedPayload = errors.New("malformed answer key payload")

	// ErrMissingRequiredFields matches every *MissingFieldsError.
	ErrMissingRequiredFields = errors.New("answer key is missing required fields")

	// ErrEmptyAnswerKey means answerKey is present but has no entries.
	ErrEmptyAnswerKey = errors.New("answer key has no questions")

	// ErrScanTimeout ends a live scan that decoded nothing in time.
	ErrScanTimeout = errors.New("no answer key QR code decoded before the timeout")

	// ErrScanCancelled ends a live scan aborted by its owner.
	ErrScanCancelled = errors.New("answer key scan cancelled")

	// ErrStreamStopped is returned by a FrameSource whose camera stream has
	// ended. It terminates the scan.
	ErrStreamStopped = errors.New("frame source stopped")
)

// MissingFieldsError lists the required payload fields that were absent,
// null or empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return ErrMissingRequiredFields.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrMissingRequiredFields }

// IsPayloadError reports whether err is one of the payload validation
// failures, as opposed to a decoding or scanning failure.
func IsPayloadError(err error) bool {
	return errors.Is(err, ErrInvalidPayloadKind) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrMissingRequiredFields) ||
		errors.Is(err, ErrEmptyAnswerKey)
}

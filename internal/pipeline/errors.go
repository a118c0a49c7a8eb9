package pipeline

import (
	"context"
	"errors"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/detection"
	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// Error kinds reported in batch results and API error bodies.
const (
	KindScanTimeout           = "ScanTimeout"
	KindScanCancelled         = "ScanCancelled"
	KindStreamStopped         = "StreamStopped"
	KindNoCodeFound           = "NoCodeFound"
	KindInvalidPayloadKind    = "InvalidPayloadKind"
	KindMalformedPayload      = "MalformedPayload"
	KindMissingRequiredFields = "MissingRequiredFields"
	KindEmptyAnswerKey        = "EmptyAnswerKey"
	KindSheetNotFound         = "SheetNotFound"
	KindQuestionCountMismatch = "QuestionCountMismatch"
	KindEngineNotReady        = "EngineNotReady"
	KindInvalidImage          = "InvalidImage"
	KindNoAnswerKey           = "NoAnswerKey"
	KindCancelled             = "Cancelled"
	KindInternal              = "Internal"
)

// ErrInvalidImage means an image reference could not be turned into pixels.
var ErrInvalidImage = errors.New("invalid image")

// ErrNoAnswerKey means a sheet had to be graded but no key was supplied or
// found.
var ErrNoAnswerKey = errors.New("no answer key available")

var kinds = []struct {
	target error
	kind   string
}{
	{answerkey.ErrScanTimeout, KindScanTimeout},
	{answerkey.ErrScanCancelled, KindScanCancelled},
	{answerkey.ErrStreamStopped, KindStreamStopped},
	{answerkey.ErrNoCodeFound, KindNoCodeFound},
	{answerkey.ErrInvalidPayloadKind, KindInvalidPayloadKind},
	{answerkey.ErrMalformedPayload, KindMalformedPayload},
	{answerkey.ErrMissingRequiredFields, KindMissingRequiredFields},
	{answerkey.ErrEmptyAnswerKey, KindEmptyAnswerKey},
	{detection.ErrSheetNotFound, KindSheetNotFound},
	{grading.ErrQuestionCountMismatch, KindQuestionCountMismatch},
	{imaging.ErrEngineNotReady, KindEngineNotReady},
	{ErrInvalidImage, KindInvalidImage},
	{ErrNoAnswerKey, KindNoAnswerKey},
	{context.Canceled, KindCancelled},
	{context.DeadlineExceeded, KindCancelled},
}

// ErrorKind names the failure class of err, or "" for nil.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindInternal
}

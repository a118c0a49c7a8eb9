// Package answerkey decodes, validates and renders the answer-key QR codes
// printed on each exam variation.
//
// The QR text is a JSON object tagged with kind "answer_key". ParsePayload
// validates it in a fixed order so callers can tell a foreign QR code
// (ErrInvalidPayloadKind) from a damaged answer key (ErrMalformedPayload,
// *MissingFieldsError, ErrEmptyAnswerKey).
//
// Scanner polls a FrameSource, typically a camera, until a valid key is
// decoded, the timeout elapses, or the scan is cancelled. Each ScanTask
// resolves exactly once and stops pulling frames as soon as it does.
package answerkey

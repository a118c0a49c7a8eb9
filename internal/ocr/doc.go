// Package ocr reads the student identification block printed at the top of
// an answer sheet.
//
// Reading the header is optional and never affects grading. A HeaderReader
// crops the header band of a rectified sheet, cleans it up for recognition
// and hands it to a TextRecognizer; ParseHeader then pulls the name, email
// and student id out of the recognised text.
//
// # Tesseract
//
// The Tesseract recognizer wraps gosseract and is compiled only with the
// "tesseract" build tag, since it needs the native libraries:
//
//	go build -tags tesseract ./...
//
// Language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-por
//   - macOS: brew install tesseract tesseract-lang
//
// Without the tag NewTesseractRecognizer returns ErrOCRUnavailable and
// callers fall back to NopReader.
package ocr

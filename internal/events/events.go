// Package events publishes correction events through Watermill, to Kafka in
// production or an in-process channel otherwise.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an event on the wire.
type EventType string

const (
	EventAnswerKeyRegistered EventType = "answer_key.registered"
	EventSheetGraded         EventType = "sheet.graded"
	EventSheetFailed         EventType = "sheet.failed"
	EventBatchCompleted      EventType = "batch.completed"
)

// Source is stamped on every event.
const Source = "gabarito-omr"

// Version of the event envelope.
const Version = "1.0"

// Event is the envelope of every published message.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Version   string         `json:"version"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEvent wraps data in a fresh envelope.
func NewEvent(t EventType, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    Source,
		Version:   Version,
		Data:      data,
	}
}

// SheetGraded is the payload of EventSheetGraded.
type SheetGraded struct {
	CorrectionID    string  `json:"correctionId"`
	ExamID          string  `json:"examId"`
	VariationID     string  `json:"variationId"`
	StudentID       string  `json:"studentId,omitempty"`
	TotalScore      float64 `json:"totalScore"`
	CorrectCount    int     `json:"correctCount"`
	TotalQuestions  int     `json:"totalQuestions"`
	Confidence      *int    `json:"confidence,omitempty"`
	LowConfidence   bool    `json:"lowConfidence"`
	AccuracyPercent int     `json:"accuracyPercent"`
}

// SheetFailed is the payload of EventSheetFailed.
type SheetFailed struct {
	BatchID   string `json:"batchId,omitempty"`
	ItemID    string `json:"itemId"`
	ErrorKind string `json:"errorKind"`
	Error     string `json:"error"`
}

// BatchCompleted is the payload of EventBatchCompleted.
type BatchCompleted struct {
	BatchID           string  `json:"batchId"`
	ExamID            string  `json:"examId,omitempty"`
	Total             int     `json:"total"`
	Successful        int     `json:"successful"`
	Failed            int     `json:"failed"`
	AverageConfidence float64 `json:"averageConfidence"`
	ElapsedMillis     int64   `json:"elapsedMillis"`
}

// AnswerKeyRegistered is the payload of EventAnswerKeyRegistered.
type AnswerKeyRegistered struct {
	ExamID         string `json:"examId"`
	VariationID    string `json:"variationId"`
	TotalQuestions int    `json:"totalQuestions"`
}

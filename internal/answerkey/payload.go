package answerkey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the discriminator every answer-key QR payload carries.
const Kind = "answer_key"

// SchemaVersion is written by Encode when the payload has none.
const SchemaVersion = "1.0"

// Payload is the answer key embedded in the QR code printed on each exam
// variation.
//
// AnswerKey holds one 0-based alternative index per question; a nil entry
// is a question with no valid answer (annulled), which never scores.
type Payload struct {
	Kind              string    `json:"kind"`
	ExamID            string    `json:"examId"`
	VariationID       string    `json:"variationId"`
	TotalQuestions    int       `json:"totalQuestions"`
	AnswerKey         []*int    `json:"answerKey"`
	PointsPerQuestion []float64 `json:"pointsPerQuestion"`
	TotalPoints       float64   `json:"totalPoints"`
	ExamTitle         string    `json:"examTitle,omitempty"`
	SubjectName       string    `json:"subjectName,omitempty"`
	VariationNumber   int       `json:"variationNumber,omitempty"`
	GeneratedAt       time.Time `json:"generatedAt,omitzero"`
	SchemaVersion     string    `json:"schemaVersion,omitempty"`
}

// requiredFields are checked for presence before anything else is parsed so
// the error can name all of them at once.
var requiredFields = []string{"examId", "variationId", "answerKey"}

// ParsePayload decodes and validates the text of an answer-key QR code.
//
// Validation runs in a fixed order and stops at the first failing stage:
//
//  1. Not a JSON object: ErrMalformedPayload
//  2. kind is not the string "answer_key": ErrInvalidPayloadKind
//  3. examId, variationId or answerKey absent, null or empty: *MissingFieldsError
//  4. answerKey not an array of integers/nulls: ErrMalformedPayload
//  5. answerKey empty: ErrEmptyAnswerKey
//  6. Inconsistent counts or negative values: ErrMalformedPayload
//
// Optional fields are normalised: totalQuestions defaults to the answer key
// length, pointsPerQuestion to one point per question and totalPoints to
// their sum.
func ParsePayload(data []byte) (*Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedPayload)
	}

	var kind string
	if k, ok := raw["kind"]; ok {
		if err := json.Unmarshal(k, &kind); err != nil {
			return nil, fmt.Errorf("%w: kind must be a string, got %s", ErrInvalidPayloadKind, k)
		}
	}
	if kind != Kind {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidPayloadKind, kind)
	}

	var missing []string
	for _, f := range requiredFields {
		if isBlank(raw[f]) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	var answers []*int
	if err := json.Unmarshal(raw["answerKey"], &answers); err != nil {
		return nil, fmt.Errorf("%w: answerKey must be an array of integers or nulls", ErrMalformedPayload)
	}
	if len(answers) == 0 {
		return nil, ErrEmptyAnswerKey
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := p.normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

// normalize fills defaults and checks the numeric invariants.
func (p *Payload) normalize() error {
	n := len(p.AnswerKey)
	if p.TotalQuestions == 0 {
		p.TotalQuestions = n
	}
	if p.TotalQuestions != n {
		return fmt.Errorf("%w: totalQuestions is %d but answerKey has %d entries", ErrMalformedPayload, p.TotalQuestions, n)
	}
	for i, a := range p.AnswerKey {
		if a != nil && *a < 0 {
			return fmt.Errorf("%w: answerKey[%d] is negative", ErrMalformedPayload, i)
		}
	}

	if len(p.PointsPerQuestion) == 0 {
		p.PointsPerQuestion = make([]float64, n)
		for i := range p.PointsPerQuestion {
			p.PointsPerQuestion[i] = 1
		}
	}
	if len(p.PointsPerQuestion) != n {
		return fmt.Errorf("%w: pointsPerQuestion has %d entries for %d questions", ErrMalformedPayload, len(p.PointsPerQuestion), n)
	}
	var sum float64
	for i, pts := range p.PointsPerQuestion {
		if pts < 0 {
			return fmt.Errorf("%w: pointsPerQuestion[%d] is negative", ErrMalformedPayload, i)
		}
		sum += pts
	}
	if p.TotalPoints == 0 {
		p.TotalPoints = sum
	}
	return nil
}

// Validate runs the same checks as ParsePayload on an in-memory payload,
// normalising optional fields in place.
func (p *Payload) Validate() error {
	if p.Kind != Kind {
		return fmt.Errorf("%w: kind %q", ErrInvalidPayloadKind, p.Kind)
	}
	var missing []string
	if p.ExamID == "" {
		missing = append(missing, "examId")
	}
	if p.VariationID == "" {
		missing = append(missing, "variationId")
	}
	if p.AnswerKey == nil {
		missing = append(missing, "answerKey")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	if len(p.AnswerKey) == 0 {
		return ErrEmptyAnswerKey
	}
	return p.normalize()
}

// Encode serialises p as the JSON text stored in the QR code.
func Encode(p *Payload) ([]byte, error) {
	out := *p
	if out.Kind == "" {
		out.Kind = Kind
	}
	if out.SchemaVersion == "" {
		out.SchemaVersion = SchemaVersion
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode answer key: %w", err)
	}
	return data, nil
}

func isBlank(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

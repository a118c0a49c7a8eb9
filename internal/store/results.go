package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
)

// Correction sources.
const (
	SourceContract = "contract"
	SourceSheet    = "sheet"
	SourceBatch    = "batch"
)

// Record is one graded sheet as kept for later reporting.
type Record struct {
	CorrectionID string           `json:"correctionId"`
	ExamID       string           `json:"examId"`
	VariationID  string           `json:"variationId"`
	BatchID      string           `json:"batchId,omitempty"`
	Source       string           `json:"source"`
	Student      *ocr.StudentInfo `json:"studentInfo,omitempty"`
	Answers      []*int           `json:"answers"`
	// Confidence is nil for answers that did not come from a photo.
	Confidence    *int            `json:"confidence,omitempty"`
	LowConfidence bool            `json:"lowConfidence"`
	Result        *grading.Result `json:"result"`
	GradedAt      time.Time       `json:"gradedAt"`
}

// ResultRepository persists graded sheets.
type ResultRepository interface {
	Save(ctx context.Context, r *Record) error
	// ListByExam returns the records of an exam, oldest first.
	ListByExam(ctx context.Context, examID string) ([]Record, error)
}

// MemoryResultRepository is a process-local ResultRepository.
type MemoryResultRepository struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{}
}

func (m *MemoryResultRepository) Save(_ context.Context, r *Record) error {
	if r == nil || r.CorrectionID == "" {
		return errors.New("record needs a correction id")
	}
	m.mu.Lock()
	m.records = append(m.records, *r)
	m.mu.Unlock()
	return nil
}

func (m *MemoryResultRepository) ListByExam(_ context.Context, examID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if r.ExamID == examID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Record) int { return a.GradedAt.Compare(b.GradedAt) })
	return out, nil
}

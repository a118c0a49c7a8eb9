package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
)

// CorrectionResult is the database row of a Record.
type CorrectionResult struct {
	ID              string         `gorm:"primaryKey;size:36"`
	ExamID          string         `gorm:"size:100;not null;index:idx_results_exam"`
	VariationID     string         `gorm:"size:100;not null"`
	BatchID         string         `gorm:"size:36;index"`
	Source          string         `gorm:"size:20;not null"`
	StudentName     string         `gorm:"size:200"`
	StudentEmail    string         `gorm:"size:200"`
	StudentID       string         `gorm:"size:100"`
	Answers         datatypes.JSON `gorm:"type:jsonb"` // []*int
	PerQuestion     datatypes.JSON `gorm:"type:jsonb"` // []grading.QuestionResult
	TotalScore      float64        `gorm:"not null"`
	PointsAwarded   float64
	MaxPoints       float64
	CorrectCount    int
	AnsweredCount   int
	TotalQuestions  int
	AccuracyPercent int
	Confidence      *int
	LowConfidence   bool
	GradedAt        time.Time `gorm:"not null;index:idx_results_exam"`
	CreatedAt       time.Time
}

func (CorrectionResult) TableName() string { return "correction_results" }

// OpenPostgres connects to the database at url. Production logs every
// statement; other environments only errors.
func OpenPostgres(url string, production bool) (*gorm.DB, error) {
	logLevel := logger.Error
	if production {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// GormResultRepository stores records in SQL through gorm.
type GormResultRepository struct {
	db *gorm.DB
}

func NewGormResultRepository(db *gorm.DB) *GormResultRepository {
	return &GormResultRepository{db: db}
}

// Migrate creates or updates the results table.
func (g *GormResultRepository) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&CorrectionResult{}); err != nil {
		return fmt.Errorf("failed to migrate results: %w", err)
	}
	return nil
}

func (g *GormResultRepository) Save(ctx context.Context, r *Record) error {
	row, err := toRow(r)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

func (g *GormResultRepository) ListByExam(ctx context.Context, examID string) ([]Record, error) {
	var rows []CorrectionResult
	err := g.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("graded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for i := range rows {
		rec, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func toRow(r *Record) (*CorrectionResult, error) {
	if r.Result == nil {
		return nil, fmt.Errorf("correction %s has no grading result", r.CorrectionID)
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	perQuestion, err := json.Marshal(r.Result.PerQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to encode question results: %w", err)
	}

	row := &CorrectionResult{
		ID:              r.CorrectionID,
		ExamID:          r.ExamID,
		VariationID:     r.VariationID,
		BatchID:         r.BatchID,
		Source:          r.Source,
		Answers:         datatypes.JSON(answers),
		PerQuestion:     datatypes.JSON(perQuestion),
		TotalScore:      r.Result.TotalScore,
		PointsAwarded:   r.Result.PointsAwarded,
		MaxPoints:       r.Result.MaxPoints,
		CorrectCount:    r.Result.CorrectCount,
		AnsweredCount:   r.Result.AnsweredCount,
		TotalQuestions:  r.Result.TotalQuestions,
		AccuracyPercent: r.Result.AccuracyPercent,
		Confidence:      r.Confidence,
		LowConfidence:   r.LowConfidence,
		GradedAt:        r.GradedAt,
	}
	if r.Student != nil {
		row.StudentName = r.Student.Name
		row.StudentEmail = r.Student.Email
		row.StudentID = r.Student.StudentID
	}
	return row, nil
}

func fromRow(row *CorrectionResult) (*Record, error) {
	rec := &Record{
		CorrectionID:  row.ID,
		ExamID:        row.ExamID,
		VariationID:   row.VariationID,
		BatchID:       row.BatchID,
		Source:        row.Source,
		Confidence:    row.Confidence,
		LowConfidence: row.LowConfidence,
		GradedAt:      row.GradedAt,
		Result: &grading.Result{
			TotalScore:      row.TotalScore,
			PointsAwarded:   row.PointsAwarded,
			MaxPoints:       row.MaxPoints,
			CorrectCount:    row.CorrectCount,
			AnsweredCount:   row.AnsweredCount,
			TotalQuestions:  row.TotalQuestions,
			AccuracyPercent: row.AccuracyPercent,
		},
	}
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers of %s: %w", row.ID, err)
		}
	}
	if len(row.PerQuestion) > 0 {
		if err := json.Unmarshal(row.PerQuestion, &rec.Result.PerQuestion); err != nil {
			return nil, fmt.Errorf("failed to decode question results of %s: %w", row.ID, err)
		}
	}
	if row.StudentName != "" || row.StudentEmail != "" || row.StudentID != "" {
		rec.Student = &ocr.StudentInfo{Name: row.StudentName, Email: row.StudentEmail, StudentID: row.StudentID}
	}
	return rec, nil
}

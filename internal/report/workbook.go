// Package report exports correction results as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/gabarito-omr/internal/grading"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/store"
)

// Sheet names of the generated workbooks.
const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var batchHeaders = []string{
	"Item", "Status", "Error Kind", "Error", "Student", "Student ID",
	"Confidence", "Low Confidence", "Score", "Correct", "Questions", "Accuracy %",
}

// WriteBatchWorkbook writes one row per batch item, followed by the chosen
// alternative of every question, plus a summary sheet.
func WriteBatchWorkbook(w io.Writer, batch *pipeline.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	questions := 0
	for _, r := range batch.Results {
		if r.Sheet != nil {
			questions = max(questions, len(r.Sheet.Extraction.Answers))
		}
	}
	if err := writeRow(f, ResultsSheet, 1, headerRow(batchHeaders, questions)); err != nil {
		return err
	}

	for i, r := range batch.Results {
		row := batchRow(r)
		if r.Sheet != nil {
			row = append(row, answerLabels(r.Sheet.Extraction.Answers)...)
		}
		if err := writeRow(f, ResultsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	s := batch.Summary
	summary := [][]any{
		{"Total", s.Total},
		{"Successful", s.Successful},
		{"Failed", s.Failed},
		{"Average Confidence", s.AverageConfidence},
		{"Elapsed (s)", batch.Elapsed.Seconds()},
	}
	for i, row := range summary {
		if err := writeRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	return write(f, w)
}

var recordHeaders = []string{
	"Correction ID", "Graded At", "Variation", "Source", "Student", "Student ID",
	"Confidence", "Score", "Correct", "Questions", "Accuracy %",
}

// WriteRecordsWorkbook writes stored corrections of an exam, one per row.
func WriteRecordsWorkbook(w io.Writer, records []store.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	questions := 0
	for _, r := range records {
		questions = max(questions, len(r.Answers))
	}
	if err := writeRow(f, ResultsSheet, 1, headerRow(recordHeaders, questions)); err != nil {
		return err
	}

	for i, r := range records {
		var name, id string
		if r.Student != nil {
			name, id = r.Student.Name, r.Student.StudentID
		}
		var confidence any
		if r.Confidence != nil {
			confidence = *r.Confidence
		}
		row := []any{r.CorrectionID, r.GradedAt, r.VariationID, r.Source, name, id, confidence}
		if r.Result != nil {
			row = append(row, r.Result.TotalScore, r.Result.CorrectCount, r.Result.TotalQuestions, r.Result.AccuracyPercent)
		} else {
			row = append(row, nil, nil, nil, nil)
		}
		row = append(row, answerLabels(r.Answers)...)
		if err := writeRow(f, ResultsSheet, i+2, row); err != nil {
			return err
		}
	}
	return write(f, w)
}

func batchRow(r pipeline.ItemResult) []any {
	if !r.Success || r.Sheet == nil {
		return []any{r.ID, "failed", r.ErrorKind, r.Error, nil, nil, nil, nil, nil, nil, nil, nil}
	}
	var name, id string
	if st := r.Sheet.Student; st != nil {
		name, id = st.Name, st.StudentID
	}
	ext := r.Sheet.Extraction
	row := []any{r.ID, "ok", "", "", name, id, ext.Confidence, ext.LowConfidence}
	if g := r.Sheet.Grading; g != nil {
		return append(row, g.TotalScore, g.CorrectCount, g.TotalQuestions, g.AccuracyPercent)
	}
	return append(row, nil, nil, len(ext.Answers), nil)
}

func headerRow(fixed []string, questions int) []any {
	row := make([]any, 0, len(fixed)+questions)
	for _, h := range fixed {
		row = append(row, h)
	}
	for q := 1; q <= questions; q++ {
		row = append(row, fmt.Sprintf("Q%d", q))
	}
	return row
}

func answerLabels(answers []*int) []any {
	out := make([]any, len(answers))
	for i, a := range answers {
		out[i] = grading.LabelFor(a)
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func write(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

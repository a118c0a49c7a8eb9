package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/correction"
	"github.com/ironsheep/gabarito-omr/internal/detection"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/ocr"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/report"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sheet_correct").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// ToolError is the data of a failed tools/call response.
type ToolError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data carries the error kind (SheetNotFound, MalformedPayload, ...).
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.WithError(err).WithField("tool", params.Name).Info("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", ToolError{
			Error: err.Error(),
			Kind:  pipeline.ErrorKind(err),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// errUnknownTool is returned for tool names not in GetToolDefinitions.
var errUnknownTool = errors.New("unknown tool")

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Answer keys
	case "answer_key_decode":
		return s.handleAnswerKeyDecode(ctx, args)
	case "answer_key_scan":
		return s.handleAnswerKeyScan(ctx, args)
	case "answer_key_encode":
		return s.handleAnswerKeyEncode(args)

	// Sheet stages
	case "sheet_rectify":
		return s.handleSheetRectify(ctx, args)
	case "sheet_detect_marks":
		return s.handleSheetDetectMarks(ctx, args)
	case "sheet_annotate":
		return s.handleSheetAnnotate(ctx, args)

	// Correction
	case "sheet_correct":
		return s.handleSheetCorrect(ctx, args)
	case "answers_grade":
		return s.handleAnswersGrade(ctx, args)
	case "batch_correct":
		return s.handleBatchCorrect(ctx, args)
	case "exam_results":
		return s.handleExamResults(ctx, args)

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// parseKey decodes an optional answer-key argument.
func parseKey(raw json.RawMessage) (*answerkey.Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return answerkey.ParsePayload(raw)
}

// === Answer Key Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleAnswerKeyDecode(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.svc.DecodeKey(ctx, img)
}

type answerKeyScanArgs struct {
	Paths      []string `json:"paths"`
	IntervalMS int      `json:"interval_ms"`
	TimeoutMS  int      `json:"timeout_ms"`
}

func (s *Server) handleAnswerKeyScan(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a answerKeyScanArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must list at least one frame")
	}

	next := 0
	src := answerkey.FrameFunc(func() (image.Image, error) {
		if next >= len(a.Paths) {
			return nil, answerkey.ErrStreamStopped
		}
		path := a.Paths[next]
		next++
		return s.load(path)
	})
	opts := answerkey.ScannerOptions{
		Interval: time.Duration(a.IntervalMS) * time.Millisecond,
		Timeout:  time.Duration(a.TimeoutMS) * time.Millisecond,
	}
	return s.svc.ScanKey(ctx, src, opts)
}

type answerKeyEncodeArgs struct {
	AnswerKey  json.RawMessage `json:"answer_key"`
	Size       int             `json:"size"`
	OutputPath string          `json:"output_path"`
}

type answerKeyEncodeResult struct {
	Payload    *answerkey.Payload    `json:"payload"`
	QR         *imaging.EncodedImage `json:"qr"`
	OutputPath string                `json:"output_path,omitempty"`
}

func (s *Server) handleAnswerKeyEncode(args json.RawMessage) (interface{}, error) {
	var a answerKeyEncodeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Size == 0 {
		a.Size = 400
	}
	key, err := parseKey(a.AnswerKey)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, pipeline.ErrNoAnswerKey
	}

	qr, err := answerkey.EncodeQR(key, a.Size)
	if err != nil {
		return nil, err
	}
	if a.OutputPath != "" {
		if err := writePNG(a.OutputPath, qr); err != nil {
			return nil, err
		}
	}
	encoded, err := imaging.EncodePNG(qr)
	if err != nil {
		return nil, err
	}
	return answerKeyEncodeResult{Payload: key, QR: encoded, OutputPath: a.OutputPath}, nil
}

// === Sheet Stage Handlers ===

type rectifyResult struct {
	Corners detection.Corners     `json:"corners"`
	Sheet   *imaging.EncodedImage `json:"sheet"`
}

func (s *Server) handleSheetRectify(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	rect, err := s.svc.Pipeline().Rectify(ctx, img)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(rect.Image)
	if err != nil {
		return nil, err
	}
	return rectifyResult{Corners: rect.Corners, Sheet: encoded}, nil
}

type detectMarksArgs struct {
	Path           string `json:"path"`
	TotalQuestions int    `json:"total_questions"`
}

type detectMarksResult struct {
	Count  int              `json:"count"`
	Filled int              `json:"filled"`
	Marks  []detection.Mark `json:"marks"`
	// Sheet is set when total_questions was given.
	Sheet *pipeline.Sheet `json:"sheet,omitempty"`
}

func (s *Server) handleSheetDetectMarks(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectMarksArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	var res detectMarksResult
	if a.TotalQuestions > 0 {
		sheet, err := s.svc.Pipeline().Extract(ctx, img, a.TotalQuestions)
		if err != nil {
			return nil, err
		}
		res.Marks = sheet.Marks
		res.Sheet = sheet
	} else {
		_, marks, err := s.svc.Pipeline().DetectMarks(ctx, img)
		if err != nil {
			return nil, err
		}
		res.Marks = marks
	}
	res.Count = len(res.Marks)
	for _, m := range res.Marks {
		if m.Filled {
			res.Filled++
		}
	}
	return res, nil
}

type sheetArgs struct {
	Path           string          `json:"path"`
	AnswerKey      json.RawMessage `json:"answer_key"`
	ExamID         string          `json:"exam_id"`
	VariationID    string          `json:"variation_id"`
	TotalQuestions int             `json:"total_questions"`
}

type annotateResult struct {
	Confidence    int                   `json:"confidence"`
	LowConfidence bool                  `json:"low_confidence"`
	Ambiguous     []int                 `json:"ambiguous_questions,omitempty"`
	Image         *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleSheetAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sheetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	key, err := parseKey(a.AnswerKey)
	if err != nil {
		return nil, err
	}
	if key == nil && a.ExamID != "" && a.VariationID != "" {
		if key, err = s.svc.Key(ctx, a.ExamID, a.VariationID); err != nil {
			return nil, err
		}
	}

	p := s.svc.Pipeline()
	var sheet *pipeline.Sheet
	switch {
	case key != nil:
		sheet, err = p.Correct(ctx, img, key)
	case a.TotalQuestions > 0:
		sheet, err = p.Extract(ctx, img, a.TotalQuestions)
	default:
		return nil, fmt.Errorf("%w: give answer_key, exam_id and variation_id, or total_questions", pipeline.ErrNoAnswerKey)
	}
	if err != nil {
		return nil, err
	}

	annotated, err := p.Annotate(sheet)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(annotated)
	if err != nil {
		return nil, err
	}
	return annotateResult{
		Confidence:    sheet.Extraction.Confidence,
		LowConfidence: sheet.Extraction.LowConfidence,
		Ambiguous:     sheet.Extraction.AmbiguousQuestions(),
		Image:         encoded,
	}, nil
}

// === Correction Handlers ===

func (s *Server) handleSheetCorrect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sheetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	key, err := parseKey(a.AnswerKey)
	if err != nil {
		return nil, err
	}
	return s.svc.CorrectSheet(ctx, correction.SheetRequest{
		Image:       img,
		Key:         key,
		ExamID:      a.ExamID,
		VariationID: a.VariationID,
	})
}

type answersGradeArgs struct {
	AnswerKey      json.RawMessage  `json:"answer_key"`
	StudentAnswers []*int           `json:"student_answers"`
	StudentInfo    *ocr.StudentInfo `json:"student_info"`
}

func (s *Server) handleAnswersGrade(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a answersGradeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	key, err := parseKey(a.AnswerKey)
	if err != nil {
		return nil, err
	}
	return s.svc.Grade(ctx, correction.GradeRequest{
		AnswerKeyPayload: key,
		StudentAnswers:   a.StudentAnswers,
		StudentInfo:      a.StudentInfo,
	})
}

type batchCorrectArgs struct {
	Paths            []string        `json:"paths"`
	AnswerKey        json.RawMessage `json:"answer_key"`
	ExamID           string          `json:"exam_id"`
	VariationID      string          `json:"variation_id"`
	ReadKeyFromSheet bool            `json:"read_key_from_sheet"`
	TotalQuestions   int             `json:"total_questions"`
	XLSXPath         string          `json:"xlsx_path"`
}

func (s *Server) handleBatchCorrect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a batchCorrectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must list at least one photo")
	}
	key, err := parseKey(a.AnswerKey)
	if err != nil {
		return nil, err
	}

	images := make([]pipeline.ImageRef, len(a.Paths))
	for i, p := range a.Paths {
		images[i] = pipeline.ImageRef{ID: p, Path: p}
	}
	resp, err := s.svc.CorrectBatch(ctx, correction.BatchRequest{
		Images:           images,
		Key:              key,
		ExamID:           a.ExamID,
		VariationID:      a.VariationID,
		ReadKeyFromSheet: a.ReadKeyFromSheet,
		TotalQuestions:   a.TotalQuestions,
	})
	if err != nil {
		return nil, err
	}

	if a.XLSXPath != "" {
		f, err := os.Create(a.XLSXPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		if err := report.WriteBatchWorkbook(f, resp.BatchResult); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

type examResultsArgs struct {
	ExamID string `json:"exam_id"`
}

func (s *Server) handleExamResults(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a examResultsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ExamID == "" {
		return nil, errors.New("exam_id is required")
	}
	records, err := s.svc.Results(ctx, a.ExamID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"exam_id": a.ExamID, "total": len(records), "results": records}, nil
}

// load reads a photo through the server's cache.
func (s *Server) load(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", pipeline.ErrInvalidImage)
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidImage, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

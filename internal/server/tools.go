package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the photo",
}

var answerKeyProperty = map[string]interface{}{
	"type":        "object",
	"description": "Answer-key payload as printed in the QR code (kind, examId, variationId, answerKey, ...)",
}

var examIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Exam whose registered answer key should be used",
}

var variationIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Exam variation whose registered answer key should be used",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Answer keys
		{
			Name:        "answer_key_decode",
			Description: "Read the answer-key QR code in a photo, validate it and register it for its exam variation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "answer_key_scan",
			Description: "Poll a sequence of frames, as from a camera, until one holds a valid answer-key QR code. Frames holding someone else's QR code are skipped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Frame files in capture order; the scan stops after the last one",
					},
					"interval_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Delay between frames. Default 100",
						"default":     100,
					},
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Give up after this long. Default 30000",
						"default":     30000,
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "answer_key_encode",
			Description: "Render an answer-key payload as a QR code PNG, returned as base64 and optionally written to a file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"answer_key": answerKeyProperty,
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Side of the square image in pixels. Default 400",
						"default":     400,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the PNG to",
					},
				},
				"required": []string{"answer_key"},
			},
		},

		// Sheet stages
		{
			Name:        "sheet_rectify",
			Description: "Find the answer sheet in a photo and return it warped to the canonical upright rectangle, with the detected corners.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_detect_marks",
			Description: "Rectify a photo and list every bubble found with its position, circularity and fill state. With total_questions, also assemble the answers and score confidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"total_questions": map[string]interface{}{
						"type":        "integer",
						"description": "Number of questions on the sheet",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_annotate",
			Description: "Draw the detected bubbles on the rectified sheet: filled, empty, ambiguous and, when a key is given, the expected answer of wrong questions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty,
					"answer_key":   answerKeyProperty,
					"exam_id":      examIDProperty,
					"variation_id": variationIDProperty,
					"total_questions": map[string]interface{}{
						"type":        "integer",
						"description": "Number of questions when no key is given",
					},
				},
				"required": []string{"path"},
			},
		},

		// Correction
		{
			Name:        "sheet_correct",
			Description: "Grade one photographed answer sheet. The key is answer_key, else the registered key of exam_id/variation_id, else the QR code on the photo.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty,
					"answer_key":   answerKeyProperty,
					"exam_id":      examIDProperty,
					"variation_id": variationIDProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "answers_grade",
			Description: "Grade answers that were already read. Answers are 0-based alternative indexes, null for blank or ambiguous.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"answer_key": answerKeyProperty,
					"student_answers": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": []string{"integer", "null"}},
						"description": "One entry per question",
					},
					"student_info": map[string]interface{}{
						"type":        "object",
						"description": "Optional name, email and studentId",
					},
				},
				"required": []string{"answer_key", "student_answers"},
			},
		},
		{
			Name:        "batch_correct",
			Description: "Grade many photos, a few at a time. A failed photo never affects the others. Optionally writes an XLSX report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to the photos",
					},
					"answer_key":   answerKeyProperty,
					"exam_id":      examIDProperty,
					"variation_id": variationIDProperty,
					"read_key_from_sheet": map[string]interface{}{
						"type":        "boolean",
						"description": "Read each photo's own QR code when no key is given",
					},
					"total_questions": map[string]interface{}{
						"type":        "integer",
						"description": "Extract without grading when no key is available",
					},
					"xlsx_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the spreadsheet report to",
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "exam_results",
			Description: "List the stored corrections of an exam.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"exam_id": map[string]interface{}{
						"type":        "string",
						"description": "Exam identifier",
					},
				},
				"required": []string{"exam_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

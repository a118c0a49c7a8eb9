package httpapi

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/correction"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/report"
)

const (
	formatXLSX = "xlsx"
	formatPNG  = "png"
)

// Health reports whether the vision engine is ready.
func (h *Handler) Health(c *gin.Context) {
	engine := h.svc.Pipeline().Engine()
	status, code := "ok", http.StatusOK
	if !engine.Ready() {
		status, code = "starting", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "engine": engine.Name()})
}

// RegisterKey stores an answer key sent as its QR JSON payload.
func (h *Handler) RegisterKey(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxUpload))
	if err != nil {
		badRequest(c, "could not read request body")
		return
	}
	key, err := answerkey.ParsePayload(body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.svc.RegisterKey(c.Request.Context(), key); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

// DecodeKey reads the answer-key QR code of an uploaded photo.
func (h *Handler) DecodeKey(c *gin.Context) {
	img, ok := h.formImage(c, "image")
	if !ok {
		return
	}
	key, err := h.svc.DecodeKey(c.Request.Context(), img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

// GetKey returns a registered answer key.
func (h *Handler) GetKey(c *gin.Context) {
	key, err := h.svc.Key(c.Request.Context(), c.Param("examId"), c.Param("variationId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

// Grade grades answers sent as JSON.
func (h *Handler) Grade(c *gin.Context) {
	var req correction.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	resp, err := h.svc.Grade(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CorrectSheet grades one uploaded photo. With ?format=png the response is
// the annotated sheet instead of JSON.
func (h *Handler) CorrectSheet(c *gin.Context) {
	img, ok := h.formImage(c, "image")
	if !ok {
		return
	}
	key, ok := formKey(c)
	if !ok {
		return
	}

	resp, err := h.svc.CorrectSheet(c.Request.Context(), correction.SheetRequest{
		Image:       img,
		Key:         key,
		ExamID:      c.PostForm("examId"),
		VariationID: c.PostForm("variationId"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("format") == formatPNG {
		annotated, err := h.svc.Pipeline().Annotate(resp.Sheet)
		if err != nil {
			h.respondError(c, err)
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, annotated); err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("X-Correction-ID", resp.CorrectionID)
		c.Data(http.StatusOK, "image/png", buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CorrectBatch grades every file of the "images" field. With ?format=xlsx
// the response is a spreadsheet.
func (h *Handler) CorrectBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "expected a multipart form with an images field")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		badRequest(c, "no images uploaded")
		return
	}
	key, ok := formKey(c)
	if !ok {
		return
	}

	req := correction.BatchRequest{
		Key:         key,
		ExamID:      c.PostForm("examId"),
		VariationID: c.PostForm("variationId"),
	}
	if v := c.PostForm("readKeyFromSheet"); v != "" {
		if req.ReadKeyFromSheet, err = strconv.ParseBool(v); err != nil {
			badRequest(c, "readKeyFromSheet must be a boolean")
			return
		}
	}
	if v := c.PostForm("totalQuestions"); v != "" {
		if req.TotalQuestions, err = strconv.Atoi(v); err != nil || req.TotalQuestions < 0 {
			badRequest(c, "totalQuestions must be a non-negative integer")
			return
		}
	}

	// Unreadable uploads become failed items, not a failed request.
	req.Images = make([]pipeline.ImageRef, len(files))
	for i, fh := range files {
		data, err := h.readUpload(fh)
		if err != nil {
			h.logger.WithError(err).WithField("file", fh.Filename).Warn("Skipping unreadable upload")
		}
		req.Images[i] = pipeline.ImageRef{ID: fh.Filename, Data: data}
	}

	resp, err := h.svc.CorrectBatch(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("format") == formatXLSX {
		var buf bytes.Buffer
		if err := report.WriteBatchWorkbook(&buf, resp.BatchResult); err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="batch-%s.xlsx"`, resp.BatchID))
		c.Data(http.StatusOK, report.ContentType, buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExamResults lists stored corrections of an exam, as JSON or ?format=xlsx.
func (h *Handler) ExamResults(c *gin.Context) {
	examID := c.Param("examId")
	records, err := h.svc.Results(c.Request.Context(), examID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("format") == formatXLSX {
		var buf bytes.Buffer
		if err := report.WriteRecordsWorkbook(&buf, records); err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, examID))
		c.Data(http.StatusOK, report.ContentType, buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, gin.H{"examId": examID, "total": len(records), "results": records})
}

// formImage decodes one uploaded photo. It writes the error response itself
// and reports false when there is no usable image.
func (h *Handler) formImage(c *gin.Context, field string) (image.Image, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		badRequest(c, fmt.Sprintf("missing %s file", field))
		return nil, false
	}
	data, err := h.readUpload(fh)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", pipeline.ErrInvalidImage, err))
		return nil, false
	}
	return img, true
}

func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxUpload {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", pipeline.ErrInvalidImage, fh.Filename, h.maxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidImage, err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, h.maxUpload))
}

// formKey parses the optional answerKey form field.
func formKey(c *gin.Context) (*answerkey.Payload, bool) {
	raw := c.PostForm("answerKey")
	if raw == "" {
		return nil, true
	}
	key, err := answerkey.ParsePayload([]byte(raw))
	if err != nil {
		status, code := classify(err)
		c.JSON(status, ErrorResponse{Message: err.Error(), Code: code})
		return nil, false
	}
	return key, true
}

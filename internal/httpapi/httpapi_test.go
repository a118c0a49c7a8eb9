package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/correction"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/report"
	"github.com/ironsheep/gabarito-omr/internal/sheettest"
)

var ip = sheettest.Ptr

var studentAnswers = []*int{ip(1), ip(0), ip(2), nil, ip(3)}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	engine, err := imaging.NewReadyEngine(context.Background(), imaging.EngineNative)
	require.NoError(t, err)
	opts := pipeline.DefaultOptions()
	opts.GroupDelay = time.Millisecond
	svc := correction.NewService(correction.Deps{
		Pipeline: pipeline.New(engine, opts, pipeline.WithLogger(logger)),
		Logger:   logger,
	})
	return NewRouter(svc, logger, Options{})
}

func sampleKey() *answerkey.Payload {
	return &answerkey.Payload{
		Kind:        answerkey.Kind,
		ExamID:      "exam-1",
		VariationID: "A",
		AnswerKey:   []*int{ip(1), ip(0), ip(2), nil, ip(3)},
	}
}

func keyJSON(t *testing.T) string {
	t.Helper()
	data, err := answerkey.Encode(sampleKey())
	require.NoError(t, err)
	return string(data)
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := sheettest.PNG(img)
	require.NoError(t, err)
	return data
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := serve(newRouter(t), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","engine":"native"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDPropagates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := serve(newRouter(t), req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestAnswerKeys(t *testing.T) {
	r := newRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/answer-keys/exam-1/A", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeKeyNotFound, decodeError(t, rec).Code)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/answer-keys", strings.NewReader(keyJSON(t))))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/answer-keys/exam-1/A", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var key answerkey.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &key))
	assert.Equal(t, 5, key.TotalQuestions)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/answer-keys", strings.NewReader(`{"kind":"other"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pipeline.KindInvalidPayloadKind, decodeError(t, rec).Code)
}

func TestDecodeKey(t *testing.T) {
	r := newRouter(t)
	qr, err := answerkey.EncodeQR(sampleKey(), 400)
	require.NoError(t, err)

	rec := serve(r, multipartRequest(t, "/api/v1/answer-keys/decode", nil, upload{"image", "key.png", pngBytes(t, qr)}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(r, multipartRequest(t, "/api/v1/answer-keys/decode", nil, upload{"image", "blank.png", pngBytes(t, sheettest.Blank(300, 300))}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.KindNoCodeFound, decodeError(t, rec).Code)

	rec = serve(r, multipartRequest(t, "/api/v1/answer-keys/decode", nil, upload{"image", "junk.png", []byte("not an image")}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.KindInvalidImage, decodeError(t, rec).Code)

	rec = serve(r, multipartRequest(t, "/api/v1/answer-keys/decode", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrade(t *testing.T) {
	r := newRouter(t)
	body, err := json.Marshal(correction.GradeRequest{
		AnswerKeyPayload: sampleKey(),
		StudentAnswers:   studentAnswers,
	})
	require.NoError(t, err)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/corrections", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 8.0, resp["totalScore"])
	assert.Equal(t, 4.0, resp["correctCount"])
	assert.Equal(t, "exam-1", resp["examId"])
	assert.NotEmpty(t, resp["correctionId"])
}

func TestGrade_Errors(t *testing.T) {
	r := newRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/corrections", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/corrections", strings.NewReader(`{"studentAnswers":[0]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, CodeInvalidRequest, resp.Code)
	assert.NotNil(t, resp.Details)

	body, err := json.Marshal(correction.GradeRequest{AnswerKeyPayload: sampleKey(), StudentAnswers: studentAnswers[:2]})
	require.NoError(t, err)
	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/corrections", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.KindQuestionCountMismatch, decodeError(t, rec).Code)
}

func TestCorrectSheet(t *testing.T) {
	r := newRouter(t)
	photo := pngBytes(t, sheettest.FromAnswers(5, studentAnswers).Render())

	rec := serve(r, multipartRequest(t, "/api/v1/corrections/sheet",
		map[string]string{"answerKey": keyJSON(t)}, upload{"image", "sheet.png", photo}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp correction.SheetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 8.0, resp.Sheet.Grading.TotalScore)
	assert.Equal(t, 92, resp.Sheet.Extraction.Confidence)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/exams/exam-1/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Total)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/exams/exam-1/results?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.ResultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCorrectSheet_AnnotatedPNG(t *testing.T) {
	r := newRouter(t)
	photo := pngBytes(t, sheettest.FromAnswers(5, studentAnswers).Render())

	rec := serve(r, multipartRequest(t, "/api/v1/corrections/sheet?format=png",
		map[string]string{"answerKey": keyJSON(t)}, upload{"image", "sheet.png", photo}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Correction-ID"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestCorrectSheet_Errors(t *testing.T) {
	r := newRouter(t)
	photo := pngBytes(t, sheettest.FromAnswers(5, studentAnswers).Render())

	rec := serve(r, multipartRequest(t, "/api/v1/corrections/sheet",
		map[string]string{"examId": "exam-1", "variationId": "Z"}, upload{"image", "sheet.png", photo}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, multipartRequest(t, "/api/v1/corrections/sheet",
		map[string]string{"answerKey": `{"kind":"answer_key","answerKey":[]}`}, upload{"image", "sheet.png", photo}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pipeline.KindMissingRequiredFields, decodeError(t, rec).Code)

	blank := pngBytes(t, sheettest.Blank(1000, 1200))
	rec = serve(r, multipartRequest(t, "/api/v1/corrections/sheet",
		map[string]string{"answerKey": keyJSON(t)}, upload{"image", "blank.png", blank}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.KindSheetNotFound, decodeError(t, rec).Code)

	rec = serve(r, multipartRequest(t, "/api/v1/corrections/sheet", nil, upload{"image", "sheet.png", photo}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pipeline.KindNoAnswerKey, decodeError(t, rec).Code)
}

func TestCorrectBatch(t *testing.T) {
	r := newRouter(t)
	photo := pngBytes(t, sheettest.FromAnswers(5, studentAnswers).Render())
	blank := pngBytes(t, sheettest.Blank(1000, 1200))

	rec := serve(r, multipartRequest(t, "/api/v1/corrections/batch",
		map[string]string{"answerKey": keyJSON(t)},
		upload{"images", "a.png", photo},
		upload{"images", "b.png", blank},
		upload{"images", "c.png", []byte("garbage")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		BatchID string                `json:"batchId"`
		Results []pipeline.ItemResult `json:"results"`
		Summary pipeline.Summary      `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.BatchID)
	assert.Equal(t, pipeline.Summary{Total: 3, Successful: 1, Failed: 2, AverageConfidence: 92}, resp.Summary)
	assert.Equal(t, "a.png", resp.Results[0].ID)
	assert.Equal(t, pipeline.KindSheetNotFound, resp.Results[1].ErrorKind)
	assert.Equal(t, pipeline.KindInvalidImage, resp.Results[2].ErrorKind)
}

func TestCorrectBatch_XLSX(t *testing.T) {
	r := newRouter(t)
	photo := pngBytes(t, sheettest.FromAnswers(5, studentAnswers).Render())

	rec := serve(r, multipartRequest(t, "/api/v1/corrections/batch?format=xlsx",
		map[string]string{"answerKey": keyJSON(t)},
		upload{"images", "a.png", photo},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.png", rows[1][0])
}

func TestCorrectBatch_BadForm(t *testing.T) {
	r := newRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/corrections/batch", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	photo := pngBytes(t, sheettest.FromAnswers(5, studentAnswers).Render())
	rec = serve(r, multipartRequest(t, "/api/v1/corrections/batch",
		map[string]string{"totalQuestions": "many"}, upload{"images", "a.png", photo}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, multipartRequest(t, "/api/v1/corrections/batch", nil, upload{"images", "a.png", photo}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pipeline.KindNoAnswerKey, decodeError(t, rec).Code)
}

func TestClassify(t *testing.T) {
	status, code := classify(assertErr("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, pipeline.KindInternal, code)

	status, code = classify(context.Canceled)
	assert.Equal(t, http.StatusRequestTimeout, status)
	assert.Equal(t, pipeline.KindCancelled, code)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

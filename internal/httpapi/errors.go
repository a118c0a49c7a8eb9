package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/gabarito-omr/internal/correction"
	"github.com/ironsheep/gabarito-omr/internal/pipeline"
	"github.com/ironsheep/gabarito-omr/internal/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Codes outside the pipeline error kinds.
const (
	CodeInvalidRequest = "InvalidRequest"
	CodeKeyNotFound    = "KeyNotFound"
)

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, correction.ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, store.ErrKeyNotFound):
		return http.StatusNotFound, CodeKeyNotFound
	case errors.Is(err, pipeline.ErrNoAnswerKey):
		return http.StatusBadRequest, pipeline.KindNoAnswerKey
	}

	kind := pipeline.ErrorKind(err)
	switch kind {
	case pipeline.KindInvalidPayloadKind, pipeline.KindMalformedPayload,
		pipeline.KindMissingRequiredFields, pipeline.KindEmptyAnswerKey:
		return http.StatusBadRequest, kind
	case pipeline.KindQuestionCountMismatch, pipeline.KindSheetNotFound,
		pipeline.KindNoCodeFound, pipeline.KindInvalidImage:
		return http.StatusUnprocessableEntity, kind
	case pipeline.KindEngineNotReady:
		return http.StatusServiceUnavailable, kind
	case pipeline.KindCancelled:
		return http.StatusRequestTimeout, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

// respondError writes err as an ErrorResponse. Internal errors are logged
// and their message withheld.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Message: err.Error(), Code: code}

	var verr *correction.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}

	entry := h.logger.WithError(err).WithField("request_id", c.GetString("request_id"))
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		if code == pipeline.KindInternal {
			resp.Message = "internal error"
		}
	} else {
		entry.Debug("Request rejected")
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, Code: CodeInvalidRequest})
}

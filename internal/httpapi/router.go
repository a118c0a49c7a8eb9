// Package httpapi exposes the correction service over HTTP with gin.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/correction"
)

// DefaultMaxUploadBytes bounds each uploaded photo.
const DefaultMaxUploadBytes = 20 << 20

// Options configure the router.
type Options struct {
	// Production switches gin to release mode.
	Production bool
	// MaxUploadBytes bounds each uploaded file. Defaults to DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Handler serves the API routes.
type Handler struct {
	svc       *correction.Service
	logger    logrus.FieldLogger
	maxUpload int64
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc *correction.Service, logger logrus.FieldLogger, opts Options) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	logger = logger.WithField("component", "http")

	h := &Handler{svc: svc, logger: logger, maxUpload: opts.MaxUploadBytes}

	router := gin.New()
	router.Use(requestID(), requestLogger(logger), recovery(logger))
	router.MaxMultipartMemory = 4 * opts.MaxUploadBytes
	h.SetupRoutes(router)
	return router
}

// SetupRoutes registers the API on router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		keys := v1.Group("/answer-keys")
		{
			keys.POST("", h.RegisterKey)
			keys.POST("/decode", h.DecodeKey)
			keys.GET("/:examId/:variationId", h.GetKey)
		}

		corrections := v1.Group("/corrections")
		{
			corrections.POST("", h.Grade)
			corrections.POST("/sheet", h.CorrectSheet)
			corrections.POST("/batch", h.CorrectBatch)
		}

		v1.GET("/exams/:examId/results", h.ExamResults)
	}
}

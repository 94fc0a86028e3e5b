package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/service"
)

const defaultMaxUploadBytes = 20 << 20

// ReplenishmentHandler serves the upload and results routes.
type ReplenishmentHandler struct {
	service        *service.ReplenishmentService
	maxUploadBytes int64
}

// NewReplenishmentHandler creates a handler. A non-positive maxUploadBytes uses the 20 MiB default.
func NewReplenishmentHandler(service *service.ReplenishmentService, maxUploadBytes int64) *ReplenishmentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ReplenishmentHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Upload runs the pipeline on a multipart "file" and returns its results.
func (h *ReplenishmentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "details": err.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file", "details": err.Error()})
		return
	}
	defer file.Close()

	out, err := h.service.ProcessUpload(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, "failed to process upload", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_id":  out.UploadID,
		"provenance": out.Provenance,
		"summary":    out.RunSummary,
		"results":    out.Results,
	})
}

// ListUploads returns the upload history, newest first.
func (h *ReplenishmentHandler) ListUploads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"uploads": h.service.History()})
}

func (h *ReplenishmentHandler) GetResults(c *gin.Context) {
	view, err := h.service.GetResults(c.Request.Context(), uploadID(c))
	if err != nil {
		respondError(c, "failed to fetch results", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ReplenishmentHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.service.GetDashboard(c.Request.Context(), uploadID(c))
	if err != nil {
		respondError(c, "failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetTrends serves both /trends and /uploads/:id/trends.
func (h *ReplenishmentHandler) GetTrends(c *gin.Context) {
	trends, err := h.service.GetTrends(c.Request.Context(), uploadID(c))
	if err != nil {
		respondError(c, "failed to fetch trends", err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

func (h *ReplenishmentHandler) Export(c *gin.Context) {
	export, err := h.service.ExportResults(c.Request.Context(), uploadID(c), c.DefaultQuery("format", service.FormatXLSX))
	if err != nil {
		respondError(c, "failed to export results", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

func uploadID(c *gin.Context) domain.UploadID {
	return domain.UploadID(strings.TrimSpace(c.Param("id")))
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrMissingColumn), errors.As(err, &maxBytes):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMalformedRow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUploadNotFound):
		status = http.StatusNotFound
	}

	event := log.Warn()
	if status == http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Int("status", status).Str("request_id", c.GetString("request_id")).Msg(message)

	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

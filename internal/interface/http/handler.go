package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/gistflow/internal/domain/studyguide"
)

// multipartOverhead leaves room for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

// Handler wires the HTTP transport to the study guide service.
type Handler struct {
	svc            studyguide.Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc studyguide.Service, cfg studyguide.Config, logger *slog.Logger) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = studyguide.DefaultMaxUploadBytes
	}
	return &Handler{
		svc:            svc,
		maxUploadBytes: maxUpload,
		logger:         logger.With("component", "http.handler"),
	}
}

// ListStyles returns the available summary styles.
func (h *Handler) ListStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"styles": h.svc.Styles()})
}

// Summarize handles the sync summarization endpoint.
func (h *Handler) Summarize(c *gin.Context) {
	var req studyguide.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SummarizeStream streams partial summaries using Server-Sent Events.
func (h *Handler) SummarizeStream(c *gin.Context) {
	var req studyguide.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	stream, err := h.svc.StreamSummary(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	for chunk := range stream {
		payload, err := json.Marshal(chunk)
		if err != nil {
			h.logger.Error("marshal chunk failed", "error", err)
			continue
		}
		c.Writer.Write([]byte("data: "))
		c.Writer.Write(payload)
		c.Writer.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// UploadNotes reads a plain text note file from the multipart field "file".
func (h *Handler) UploadNotes(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, studyguide.CodeInvalidInput, "File is too large", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, studyguide.CodeInvalidInput, "Please upload a text file (.txt)", err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, studyguide.CodeInvalidInput, "Error reading file", err))
		return
	}
	defer file.Close()

	notes, err := studyguide.ReadNotes(studyguide.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	}, h.maxUploadBytes)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	h.logger.Info("notes uploaded", "filename", fileHeader.Filename, "bytes", len(notes))
	c.JSON(http.StatusOK, gin.H{
		"notes":    notes,
		"filename": fileHeader.Filename,
		"bytes":    len(notes),
	})
}

// Export returns a summary result as a downloadable file. The format query
// parameter takes precedence over the body.
func (h *Handler) Export(c *gin.Context) {
	var req studyguide.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if format := c.Query("format"); format != "" {
		req.Format = studyguide.ExportFormat(format)
	}

	artifact, err := h.svc.Export(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Body)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

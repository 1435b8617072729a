package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	"github.com/noah-isme/substitute-finder-api/internal/service"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/export"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

type artifactExporter interface {
	Export(ctx context.Context, kind models.ExportKind, r models.TimeRange, format export.Format, sink service.Sink) ([]service.Artifact, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, req models.CreateExportJobRequest, actorID string) (*models.ExportJobStatusResponse, error)
	Generate(ctx context.Context, req models.CreateExportJobRequest, actorID string, role models.UserRole) (*models.ExportJobStatusResponse, error)
	GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ExportJobStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

type rangeResolver interface {
	ResolveRange(raw string) models.TimeRange
}

// ExportHandler serves synchronous downloads and queued export jobs.
type ExportHandler struct {
	exporter artifactExporter
	jobs     exportJobService
	ranges   rangeResolver
	logger   *zap.Logger
}

// NewExportHandler constructs the export handler.
func NewExportHandler(exporter artifactExporter, jobs exportJobService, ranges rangeResolver, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{exporter: exporter, jobs: jobs, ranges: ranges, logger: logger}
}

// responseSink writes exactly one artifact as the HTTP response body.
type responseSink struct {
	c       *gin.Context
	written bool
}

func (s *responseSink) Deliver(_ context.Context, artifact service.Artifact) error {
	if s.written {
		return fmt.Errorf("response already carries %s", artifact.Filename)
	}
	s.written = true
	response.Attachment(s.c, artifact.Filename, artifact.ContentType, artifact.Content)
	return nil
}

// Download godoc
// @Summary Download an export
// @Description Renders a dataset or the analytics report and streams it as a file
// @Tags Exports
// @Produce octet-stream
// @Param kind path string true "requests, users, classes, organizations or analytics"
// @Param range query string false "30d, 90d or 1y"
// @Param format query string false "csv, excel, xlsx or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/{kind} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	kind := models.ExportKind(c.Param("kind"))
	if kind == models.ExportKindFullReport {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "the full report has several files; request it with POST /exports/full-report"))
		return
	}
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export kind %q", kind)))
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format"))
		return
	}

	sink := &responseSink{c: c}
	if _, err := h.exporter.Export(c.Request.Context(), kind, h.resolveRange(c), format, sink); err != nil {
		if sink.written {
			h.logger.Warn("export failed after response started", zap.String("kind", string(kind)), zap.Error(err))
			return
		}
		response.Error(c, err)
	}
}

// FullReport godoc
// @Summary Generate the full report
// @Description Builds the summary and detailed request files into export storage and returns the job with its download link
// @Tags Exports
// @Produce json
// @Param range query string false "30d, 90d or 1y"
// @Param format query string false "csv, excel, xlsx or pdf"
// @Success 201 {object} response.Envelope
// @Router /exports/full-report [post]
func (h *ExportHandler) FullReport(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if h.jobs == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	req := models.CreateExportJobRequest{
		Kind:      models.ExportKindFullReport,
		TimeRange: h.resolveRange(c),
		Format:    c.Query("format"),
	}
	status, err := h.jobs.Generate(c.Request.Context(), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, status)
}

// CreateJob godoc
// @Summary Queue an export job
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body models.CreateExportJobRequest true "Export job"
// @Success 202 {object} response.Envelope
// @Router /exports/jobs [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if h.jobs == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	var req models.CreateExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export job payload"))
		return
	}
	status, err := h.jobs.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, status)
}

// JobStatus godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/jobs/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if h.jobs == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// DownloadJob godoc
// @Summary Download a finished export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) DownloadJob(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrFeatureDisabled)
		return
	}
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	size := int64(-1)
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	c.DataFromReader(http.StatusOK, size, download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
		"Cache-Control":       "no-store",
		"X-Download-Expires":  download.ExpiresAt.UTC().Format(http.TimeFormat),
	})
}

func (h *ExportHandler) resolveRange(c *gin.Context) models.TimeRange {
	if h.ranges != nil {
		return h.ranges.ResolveRange(c.Query("range"))
	}
	r, _ := models.ParseTimeRange(c.Query("range"))
	return r
}

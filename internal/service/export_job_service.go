package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	"github.com/noah-isme/substitute-finder-api/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/export"
	"github.com/noah-isme/substitute-finder-api/pkg/jobs"
	"github.com/noah-isme/substitute-finder-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.DownloadClaims, error)
}

type artifactExporter interface {
	Export(ctx context.Context, kind models.ExportKind, r models.TimeRange, format export.Format, sink Sink) ([]Artifact, error)
}

// ExportJobConfig governs queue recovery, download links and cleanup.
type ExportJobConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService orchestrates the asynchronous export lifecycle.
type ExportJobService struct {
	repo      exportJobStore
	queue     jobDispatcher
	store     artifactStore
	signer    downloadSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobConfig
	inline    jobHandler
}

// NewExportJobService constructs the export job service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, store artifactStore, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportJobService{
		repo:      repo,
		queue:     queue,
		store:     store,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

type jobHandler interface {
	Handle(ctx context.Context, job jobs.Job) error
}

// CreateJob validates the request, persists the job and enqueues processing.
func (s *ExportJobService) CreateJob(ctx context.Context, req models.CreateExportJobRequest, actorID string) (*models.ExportJobStatusResponse, error) {
	job, err := s.persist(ctx, req, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Kind)}); err != nil {
		failed := models.ExportJobFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &models.ExportJobStatusResponse{
		ID:        job.ID,
		Kind:      job.Kind,
		Status:    job.Status,
		Progress:  job.Progress,
		CreatedAt: job.CreatedAt,
	}, nil
}

// SetInlineRunner enables Generate. The runner is normally the queue worker.
func (s *ExportJobService) SetInlineRunner(runner jobHandler) {
	s.inline = runner
}

// Generate persists a job and processes it in the caller's goroutine. The
// single attempt is final, so a failure marks the job FAILED.
func (s *ExportJobService) Generate(ctx context.Context, req models.CreateExportJobRequest, actorID string, role models.UserRole) (*models.ExportJobStatusResponse, error) {
	if s.inline == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "inline export generation is not configured")
	}
	job, err := s.persist(ctx, req, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.inline.Handle(ctx, jobs.Job{ID: job.ID, Type: string(job.Kind), Attempt: s.cfg.MaxRetries}); err != nil {
		return nil, err
	}
	return s.GetStatus(ctx, job.ID, actorID, role)
}

func (s *ExportJobService) persist(ctx context.Context, req models.CreateExportJobRequest, actorID string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export job payload")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	r, _ := models.ParseTimeRange(string(req.TimeRange))

	job := &models.ExportJob{
		Kind:      req.Kind,
		Params:    models.ExportJobParams{TimeRange: r, Format: string(format)},
		Status:    models.ExportJobQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	return job, nil
}

// GetStatus exposes job metadata. Only admins may read jobs created by someone else.
func (s *ExportJobService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ExportJobStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &models.ExportJobStatusResponse{
		ID:          job.ID,
		Kind:        job.Kind,
		Status:      job.Status,
		Progress:    job.Progress,
		Filename:    job.Filename,
		DownloadURL: job.ResultURL,
		CreatedAt:   job.CreatedAt,
		FinishedAt:  job.FinishedAt,
	}
	if job.ResultURL != nil {
		if claims, err := s.signer.Parse(extractToken(*job.ResultURL), true); err == nil {
			expires := claims.ExpiresAt
			resp.ExpiresAt = &expires
		}
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored artifact.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportJobFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.store.Open(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    path.Base(claims.Path),
		ContentType: contentTypeFor(claims.Path),
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Kind)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range expired {
			if job.ResultURL == nil {
				continue
			}
			claims, err := s.signer.Parse(extractToken(*job.ResultURL), true)
			if err != nil {
				continue
			}
			if err := s.store.Delete(claims.Path); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.store.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

// StorageSink writes artifacts below dir in the export store.
type StorageSink struct {
	store artifactStore
	dir   string
	saved []string
}

// NewStorageSink returns a sink rooted at dir.
func NewStorageSink(store artifactStore, dir string) *StorageSink {
	return &StorageSink{store: store, dir: dir}
}

// Deliver persists the artifact.
func (s *StorageSink) Deliver(_ context.Context, artifact Artifact) error {
	rel, err := s.store.Save(path.Join(s.dir, artifact.Filename), artifact.Content)
	if err != nil {
		return err
	}
	s.saved = append(s.saved, rel)
	return nil
}

// Saved lists relative paths written so far.
func (s *StorageSink) Saved() []string {
	return s.saved
}

// collectingSink keeps artifacts in memory until the worker decides how to persist them.
type collectingSink struct {
	artifacts []Artifact
}

func (c *collectingSink) Deliver(_ context.Context, artifact Artifact) error {
	c.artifacts = append(c.artifacts, artifact)
	return nil
}

// ExportWorker bridges queue jobs to the export pipeline.
type ExportWorker struct {
	repo       exportJobStore
	exporter   artifactExporter
	store      artifactStore
	signer     downloadSigner
	apiPrefix  string
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter artifactExporter, store artifactStore, signer downloadSigner, cfg ExportJobConfig, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	prefix := strings.TrimRight(cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportWorker{
		repo:       repo,
		exporter:   exporter,
		store:      store,
		signer:     signer,
		apiPrefix:  prefix,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
	}
}

// Handle processes a queue job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportJobProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	filename, url, err := w.generate(ctx, record)
	if err != nil {
		w.markFailure(ctx, job, err)
		return err
	}

	finished := models.ExportJobFinished
	progress = 100
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		Filename:     &filename,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

// generate renders the artifacts and stores one downloadable file. Kinds that
// produce several artifacts are bundled into a zip archive.
func (w *ExportWorker) generate(ctx context.Context, record *models.ExportJob) (string, string, error) {
	format, err := export.ParseFormat(record.Params.Format)
	if err != nil {
		return "", "", appErrors.WrapAs(appErrors.ErrValidation, err, "unsupported export format")
	}
	collected := &collectingSink{}
	if _, err := w.exporter.Export(ctx, record.Kind, record.Params.TimeRange, format, collected); err != nil {
		return "", "", err
	}
	if len(collected.artifacts) == 0 {
		return "", "", fmt.Errorf("export %s produced no artifacts", record.Kind)
	}

	artifact := collected.artifacts[0]
	if len(collected.artifacts) > 1 {
		artifact, err = bundle(string(record.Kind), collected.artifacts)
		if err != nil {
			return "", "", err
		}
	}

	sink := NewStorageSink(w.store, record.ID)
	if err := sink.Deliver(ctx, artifact); err != nil {
		return "", "", appErrors.WrapAs(appErrors.ErrExportDelivery, err, fmt.Sprintf("failed to store %s", artifact.Filename))
	}
	relPath := sink.Saved()[0]
	token, _, err := w.signer.Generate(record.ID, relPath)
	if err != nil {
		return "", "", err
	}
	return artifact.Filename, fmt.Sprintf("%s/exports/download/%s", w.apiPrefix, token), nil
}

func (w *ExportWorker) markFailure(ctx context.Context, job jobs.Job, cause error) {
	msg := cause.Error()
	if job.Attempt >= w.maxRetries || !appErrors.Retryable(cause) {
		failed := models.ExportJobFailed
		progress := 100
		now := time.Now().UTC()
		if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); err != nil {
			w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", err)
		}
		return
	}
	queued := models.ExportJobQueued
	reset := 0
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &queued,
		Progress:     &reset,
		ErrorMessage: &msg,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", err)
	}
}

func bundle(kind string, artifacts []Artifact) (Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, a := range artifacts {
		f, err := zw.Create(a.Filename)
		if err != nil {
			return Artifact{}, fmt.Errorf("add %s to archive: %w", a.Filename, err)
		}
		if _, err := f.Write(a.Content); err != nil {
			return Artifact{}, fmt.Errorf("write %s to archive: %w", a.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close archive: %w", err)
	}
	// Artifact names end in the export date; the archive reuses it.
	name := kind
	base := strings.TrimSuffix(artifacts[0].Filename, path.Ext(artifacts[0].Filename))
	if len(base) >= len(models.DateLayout) {
		name += "-" + base[len(base)-len(models.DateLayout):]
	}
	return Artifact{Filename: name + ".zip", ContentType: "application/zip", Content: buf.Bytes()}, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		return "application/zip"
	case ".xlsx":
		return export.FormatXLSX.ContentType()
	case ".pdf":
		return export.FormatPDF.ContentType()
	default:
		return export.FormatCSV.ContentType()
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

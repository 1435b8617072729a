package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

// Refresh outcomes recorded in metrics.
const (
	refreshPublished  = "published"
	refreshSuperseded = "superseded"
	refreshFailed     = "failed"
)

// EntityFetcher loads the collections an analytics view is built from.
type EntityFetcher interface {
	SubstituteRequests(ctx context.Context) ([]models.SubstituteRequest, error)
	Classes(ctx context.Context) ([]models.Class, error)
	Organizations(ctx context.Context) ([]models.Organization, error)
	Users(ctx context.Context) ([]models.User, error)
	SubstituteResponses(ctx context.Context) ([]models.SubstituteResponse, error)
}

// Refresher fetches a consistent EntitySet. Refreshes are scoped to a view
// key: starting a refresh of a view cancels the one in flight for the same
// view, and the older call returns ErrSuperseded with its data discarded.
// An empty view never supersedes and is never superseded.
type Refresher struct {
	fetcher EntityFetcher
	metrics *MetricsService
	logger  *zap.Logger
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	inflight   map[string]refreshTicket
}

type refreshTicket struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewRefresher constructs a refresher over the provided fetcher.
func NewRefresher(fetcher EntityFetcher, metrics *MetricsService, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		fetcher:  fetcher,
		metrics:  metrics,
		logger:   logger,
		inflight: make(map[string]refreshTicket),
	}
}

// WithTimeout bounds every Fetch by d. Zero disables the bound.
func (r *Refresher) WithTimeout(d time.Duration) *Refresher {
	r.timeout = d
	return r
}

// Fetch loads all five collections concurrently and joins them.
func (r *Refresher) Fetch(ctx context.Context, view string) (models.EntitySet, error) {
	ctx, ticket := r.begin(ctx, view)
	start := time.Now()

	var set models.EntitySet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		set.Requests, err = r.fetcher.SubstituteRequests(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.Classes, err = r.fetcher.Classes(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.Organizations, err = r.fetcher.Organizations(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.Users, err = r.fetcher.Users(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.Responses, err = r.fetcher.SubstituteResponses(gctx)
		return err
	})
	err := g.Wait()

	if !r.finish(view, ticket) {
		r.metrics.RecordRefresh(refreshSuperseded)
		r.logger.Debug("refresh superseded", zap.String("view", view), zap.Uint64("generation", ticket.generation))
		return models.EntitySet{}, appErrors.Clone(appErrors.ErrSuperseded, "")
	}
	if err != nil {
		r.metrics.RecordRefresh(refreshFailed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.EntitySet{}, err
		}
		return models.EntitySet{}, appErrors.Wrap(err, appErrors.ErrRemoteCall.Code, appErrors.ErrRemoteCall.Status, "failed to load analytics data")
	}

	r.metrics.RecordRefresh(refreshPublished)
	r.logger.Debug("refresh completed",
		zap.String("view", view),
		zap.Uint64("generation", ticket.generation),
		zap.Int("requests", len(set.Requests)),
		zap.Duration("duration", time.Since(start)),
	)
	return set, nil
}

// begin registers a new generation for view and cancels the one it replaces.
func (r *Refresher) begin(parent context.Context, view string) (context.Context, refreshTicket) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	ticket := refreshTicket{generation: r.generation, cancel: cancel}
	if view == "" {
		return ctx, ticket
	}
	if prev, ok := r.inflight[view]; ok {
		prev.cancel()
	}
	r.inflight[view] = ticket
	return ctx, ticket
}

// finish releases the ticket's context and reports whether it is still the
// current refresh of view.
func (r *Refresher) finish(view string, ticket refreshTicket) bool {
	ticket.cancel()
	if view == "" {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.inflight[view]
	if !ok || current.generation != ticket.generation {
		return false
	}
	delete(r.inflight, view)
	return true
}

package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
)

// EntitySource yields the raw collections analytics are computed from. A
// newer fetch for the same non-empty view supersedes the one in flight.
type EntitySource interface {
	Fetch(ctx context.Context, view string) (models.EntitySet, error)
}

// AnalyticsService serves analytics snapshots and the dashboard overview with cache integration.
type AnalyticsService struct {
	source       EntitySource
	engine       *AnalyticsEngine
	cache        *CacheService
	metrics      *MetricsService
	defaultRange models.TimeRange
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// AnalyticsConfig tunes AnalyticsService.
type AnalyticsConfig struct {
	DefaultRange models.TimeRange
	CacheTTL     time.Duration
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(source EntitySource, engine *AnalyticsEngine, cache *CacheService, metrics *MetricsService, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if engine == nil {
		engine = NewAnalyticsEngine()
	}
	if !cfg.DefaultRange.Valid() {
		cfg.DefaultRange = models.TimeRange30Days
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCacheService(nil, metrics, cfg.CacheTTL, logger, false)
	}
	return &AnalyticsService{
		source:       source,
		engine:       engine,
		cache:        cache,
		metrics:      metrics,
		defaultRange: cfg.DefaultRange,
		cacheTTL:     cfg.CacheTTL,
		logger:       logger,
	}
}

// ResolveRange maps raw input to a range, using the configured default for empty input.
func (s *AnalyticsService) ResolveRange(raw string) models.TimeRange {
	if strings.TrimSpace(raw) == "" {
		return s.defaultRange
	}
	r, _ := models.ParseTimeRange(raw)
	return r
}

// Snapshot returns analytics for the window. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Snapshot(ctx context.Context, r models.TimeRange) (*models.AnalyticsSnapshot, bool, error) {
	if !r.Valid() {
		r = s.defaultRange
	}
	key := makeAnalyticsCacheKey(string(r))
	snapshot, hit, err := cachedView(ctx, s.cache, key, s.cacheTTL,
		func(ctx context.Context) (models.AnalyticsSnapshot, error) {
			set, err := s.source.Fetch(ctx, key)
			if err != nil {
				return models.AnalyticsSnapshot{}, err
			}
			return s.engine.Compute(set, r), nil
		})
	if err != nil {
		return nil, false, err
	}
	return &snapshot, hit, nil
}

// Dashboard returns the landing page overview.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*models.DashboardOverview, bool, error) {
	key := makeAnalyticsCacheKey("dashboard")
	overview, hit, err := cachedView(ctx, s.cache, key, s.cacheTTL,
		func(ctx context.Context) (models.DashboardOverview, error) {
			set, err := s.source.Fetch(ctx, key)
			if err != nil {
				return models.DashboardOverview{}, err
			}
			return s.engine.Overview(set), nil
		})
	if err != nil {
		return nil, false, err
	}
	return &overview, hit, nil
}

// Invalidate drops every cached analytics view.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, analyticsCachePattern); err != nil {
		return err
	}
	s.logger.Debug("analytics views invalidated")
	return nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	return s.metrics.Snapshot()
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

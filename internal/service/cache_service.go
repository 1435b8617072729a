package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

// ViewStore persists encoded analytics views under string keys.
type ViewStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService is the cache-aside layer in front of analytics views. Writes
// through the command set drop every view via Invalidate.
type CacheService struct {
	store   ViewStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool

	builds singleflight.Group
}

// NewCacheService constructs a cache service. A disabled service misses on
// every read and ignores writes.
func NewCacheService(store ViewStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether views are cached.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.store != nil
}

// Get reports whether a view was found and decoded into dest.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.store.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores a view. A zero ttl uses the configured default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.store.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every view matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("view cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// cachedView returns the view stored under key, or builds and stores it.
// Concurrent misses on one key share a single build, which keeps the first
// caller's values but not its cancellation. A failed cache write is logged
// and the fresh view is still returned.
func cachedView[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, build func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if !s.Enabled() {
		view, err := build(ctx)
		return view, false, err
	}

	var cached T
	hit, err := s.Get(ctx, key, &cached)
	if err != nil {
		return zero, false, fmt.Errorf("read %s: %w", key, err)
	}
	if hit {
		return cached, true, nil
	}

	shared := context.WithoutCancel(ctx)
	out, err, _ := s.builds.Do(key, func() (interface{}, error) {
		view, err := build(shared)
		if err != nil {
			return nil, err
		}
		_ = s.Set(shared, key, view, ttl)
		return view, nil
	})
	if err != nil {
		return zero, false, err
	}
	return out.(T), false, nil
}

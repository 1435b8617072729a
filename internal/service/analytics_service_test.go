package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type fakeEntitySource struct {
	set   models.EntitySet
	err   error
	calls int
}

func (f *fakeEntitySource) Fetch(context.Context, string) (models.EntitySet, error) {
	f.calls++
	return f.set, f.err
}

type stubCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func newCachedAnalytics(source EntitySource) (*AnalyticsService, *stubCacheRepo) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	return NewAnalyticsService(source, fixedEngine(), cacheSvc, nil, AnalyticsConfig{}, zap.NewNop()), cacheRepo
}

func TestAnalyticsServiceSnapshotCaching(t *testing.T) {
	source := &fakeEntitySource{set: engineFixture()}
	svc, cacheRepo := newCachedAnalytics(source)
	ctx := context.Background()

	result, cacheHit, err := svc.Snapshot(ctx, models.TimeRange30Days)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 4, result.TotalRequests)
	assert.Contains(t, cacheRepo.store, "analytics:30d")

	cached, cacheHit, err := svc.Snapshot(ctx, models.TimeRange30Days)
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, result.FillRate, cached.FillRate)
	assert.Equal(t, result.MonthlyTrends, cached.MonthlyTrends)

	_, cacheHit, err = svc.Snapshot(ctx, models.TimeRange1Year)
	require.NoError(t, err)
	assert.False(t, cacheHit, "ranges are cached independently")
	assert.Equal(t, 2, source.calls)
}

func TestAnalyticsServiceInvalidateDropsViews(t *testing.T) {
	source := &fakeEntitySource{set: engineFixture()}
	svc, cacheRepo := newCachedAnalytics(source)
	ctx := context.Background()

	_, _, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	_, _, err = svc.Snapshot(ctx, models.TimeRange90Days)
	require.NoError(t, err)
	require.Len(t, cacheRepo.store, 2)

	require.NoError(t, svc.Invalidate(ctx))
	assert.Equal(t, []string{"analytics:*"}, cacheRepo.deleted)
	assert.Empty(t, cacheRepo.store)
}

func TestAnalyticsServiceErrorPassthrough(t *testing.T) {
	source := &fakeEntitySource{err: assert.AnError}
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewAnalyticsService(source, nil, cacheSvc, nil, AnalyticsConfig{}, zap.NewNop())

	_, _, err := svc.Snapshot(context.Background(), models.TimeRange30Days)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	_, _, err = svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsServiceResolveRange(t *testing.T) {
	svc := NewAnalyticsService(&fakeEntitySource{}, nil, nil, nil, AnalyticsConfig{DefaultRange: models.TimeRange90Days}, nil)

	assert.Equal(t, models.TimeRange90Days, svc.ResolveRange(""))
	assert.Equal(t, models.TimeRange1Year, svc.ResolveRange("1Y"))
	assert.Equal(t, models.TimeRange30Days, svc.ResolveRange("weekly"))
}

type gatedSource struct {
	set     models.EntitySet
	release chan struct{}
	calls   int32
}

func (g *gatedSource) Fetch(context.Context, string) (models.EntitySet, error) {
	atomic.AddInt32(&g.calls, 1)
	<-g.release
	return g.set, nil
}

func TestAnalyticsServiceConcurrentMissesShareOneFetch(t *testing.T) {
	source := &gatedSource{set: engineFixture(), release: make(chan struct{})}
	svc, _ := newCachedAnalytics(source)

	var wg sync.WaitGroup
	results := make([]int, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot, _, err := svc.Snapshot(context.Background(), models.TimeRange30Days)
			if err == nil {
				results[i] = snapshot.TotalRequests
			}
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&source.calls))
	assert.Equal(t, []int{4, 4, 4}, results)
}

type cancelAwareSource struct {
	set     models.EntitySet
	release chan struct{}
	calls   int32
}

func (c *cancelAwareSource) Fetch(ctx context.Context, _ string) (models.EntitySet, error) {
	atomic.AddInt32(&c.calls, 1)
	select {
	case <-c.release:
		return c.set, nil
	case <-ctx.Done():
		return models.EntitySet{}, ctx.Err()
	}
}

func TestAnalyticsServiceSharedBuildOutlivesCallerCancellation(t *testing.T) {
	source := &cancelAwareSource{set: engineFixture(), release: make(chan struct{})}
	svc, cache := newCachedAnalytics(source)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		snapshot *models.AnalyticsSnapshot
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		snapshot, _, err := svc.Snapshot(ctx, models.TimeRange30Days)
		done <- outcome{snapshot, err}
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.calls) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(source.release)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, 4, got.snapshot.TotalRequests)
	assert.Contains(t, cache.store, makeAnalyticsCacheKey(string(models.TimeRange30Days)))
}

package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type fakeFetcher struct {
	set       models.EntitySet
	classErr  error
	block     chan struct{}
	started   chan struct{}
	inFlight  int32
	maxFlight int32
}

func (f *fakeFetcher) enter(ctx context.Context) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxFlight, max, n) {
			break
		}
	}
	if f.block == nil {
		return nil
	}
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFetcher) SubstituteRequests(ctx context.Context) ([]models.SubstituteRequest, error) {
	return f.set.Requests, f.enter(ctx)
}

func (f *fakeFetcher) Classes(ctx context.Context) ([]models.Class, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	return f.set.Classes, f.classErr
}

func (f *fakeFetcher) Organizations(ctx context.Context) ([]models.Organization, error) {
	return f.set.Organizations, f.enter(ctx)
}

func (f *fakeFetcher) Users(ctx context.Context) ([]models.User, error) {
	return f.set.Users, f.enter(ctx)
}

func (f *fakeFetcher) SubstituteResponses(ctx context.Context) ([]models.SubstituteResponse, error) {
	return f.set.Responses, f.enter(ctx)
}

func TestRefresherFetchJoinsAllCollections(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture()}
	r := NewRefresher(fetcher, NewMetricsService(), nil)

	set, err := r.Fetch(context.Background(), "analytics:30d")
	require.NoError(t, err)
	assert.Len(t, set.Requests, 5)
	assert.Len(t, set.Classes, 3)
	assert.Len(t, set.Organizations, 3)
	assert.Len(t, set.Users, 3)
	assert.Len(t, set.Responses, 5)
}

func TestRefresherFetchFailsAsRemoteCall(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), classErr: errors.New("get_classes: backend offline")}
	r := NewRefresher(fetcher, nil, nil)

	_, err := r.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrRemoteCall)
	assert.Contains(t, err.Error(), "backend offline")
}

func TestRefresherNewerFetchSupersedesInFlight(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), block: make(chan struct{}), started: make(chan struct{}, 1)}
	r := NewRefresher(fetcher, NewMetricsService(), nil)

	first := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), "analytics:30d")
		first <- err
	}()

	select {
	case <-fetcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh never started")
	}

	second := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), "analytics:30d")
		second <- err
	}()

	select {
	case err := <-first:
		require.Error(t, err)
		assert.ErrorIs(t, err, appErrors.ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh was not cancelled")
	}

	close(fetcher.block)
	select {
	case err := <-second:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second refresh never completed")
	}
}

func TestRefresherFetchesConcurrently(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), block: make(chan struct{})}
	r := NewRefresher(fetcher, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), "")
		done <- err
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetcher.inFlight) == 5 }, 2*time.Second, 5*time.Millisecond)
	close(fetcher.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(5), atomic.LoadInt32(&fetcher.maxFlight))
}

func TestRefresherTimeoutBoundsFetch(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), block: make(chan struct{})}
	r := NewRefresher(fetcher, NewMetricsService(), nil).WithTimeout(20 * time.Millisecond)

	_, err := r.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRefresherScopesSupersessionToView(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), block: make(chan struct{}), started: make(chan struct{}, 1)}
	r := NewRefresher(fetcher, NewMetricsService(), nil)

	results := make(chan error, 3)
	for _, view := range []string{"analytics:dashboard", "analytics:90d", ""} {
		go func(view string) {
			_, err := r.Fetch(context.Background(), view)
			results <- err
		}(view)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetcher.inFlight) == 15 }, 2*time.Second, 5*time.Millisecond)
	close(fetcher.block)
	for i := 0; i < 3; i++ {
		select {
		case err := <-results:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("refresh never completed")
		}
	}
}

func TestRefresherUnscopedFetchesNeverSupersede(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), block: make(chan struct{}), started: make(chan struct{}, 1)}
	r := NewRefresher(fetcher, nil, nil)

	first := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), "")
		first <- err
	}()
	select {
	case <-fetcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch never started")
	}

	second := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), "")
		second <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetcher.inFlight) == 10 }, 2*time.Second, 5*time.Millisecond)

	close(fetcher.block)
	assert.NoError(t, <-first)
	assert.NoError(t, <-second)
}

func TestSharedRefresherServesDashboardAndExportsTogether(t *testing.T) {
	fetcher := &fakeFetcher{set: engineFixture(), block: make(chan struct{}), started: make(chan struct{}, 1)}
	refresher := NewRefresher(fetcher, NewMetricsService(), nil)
	analytics := NewAnalyticsService(refresher, fixedEngine(), nil, NewMetricsService(), AnalyticsConfig{}, nil)
	exports := NewExportService(refresher, fixedEngine(), nil, NewMetricsService(), nil)

	dashboard := make(chan error, 1)
	go func() {
		_, _, err := analytics.Dashboard(context.Background())
		dashboard <- err
	}()
	select {
	case <-fetcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard refresh never started")
	}

	exported := make(chan error, 1)
	go func() {
		_, err := exports.Build(context.Background(), models.ExportKindUsers, models.TimeRange30Days, "")
		exported <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetcher.inFlight) == 10 }, 2*time.Second, 5*time.Millisecond)

	close(fetcher.block)
	assert.NoError(t, <-exported)
	assert.NoError(t, <-dashboard)
}

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

func countingCompute(calls *atomic.Int64, bundle models.MilestonePercentageBundle) ComputeFunc {
	return func(_ context.Context, _ uuid.UUID) (*models.MilestonePercentageBundle, error) {
		calls.Add(1)
		b := bundle
		return &b, nil
	}
}

func TestProgressCache_MissComputesSynchronously(t *testing.T) {
	var calls atomic.Int64
	cache := NewProgressCache(
		countingCompute(&calls, models.MilestonePercentageBundle{Planning: 40}),
		5*time.Minute, zap.NewNop())

	entry, err := cache.GetOrCompute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 40, entry.Bundle.Planning)
	assert.EqualValues(t, 1, calls.Load())
}

func TestProgressCache_FreshHitDoesNotRecompute(t *testing.T) {
	var calls atomic.Int64
	cache := NewProgressCache(
		countingCompute(&calls, models.MilestonePercentageBundle{}),
		5*time.Minute, zap.NewNop())
	projectID := uuid.New()

	_, err := cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)
	_, err = cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load())
}

func TestProgressCache_InvalidateForcesExactlyOneRecompute(t *testing.T) {
	var calls atomic.Int64
	slowCompute := func(ctx context.Context, _ uuid.UUID) (*models.MilestonePercentageBundle, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &models.MilestonePercentageBundle{}, nil
	}
	cache := NewProgressCache(slowCompute, 5*time.Minute, zap.NewNop())
	projectID := uuid.New()

	_, err := cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)

	cache.Invalidate(context.Background(), projectID)
	_, found := cache.Get(context.Background(), projectID)
	assert.False(t, found)

	// Concurrent readers after the invalidation coalesce onto one compute;
	// none of them may be served a stale (removed) value.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := cache.GetOrCompute(context.Background(), projectID)
			assert.NoError(t, err)
			assert.NotNil(t, entry)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 2, calls.Load())
}

func TestProgressCache_StaleServedImmediatelyThenRefreshed(t *testing.T) {
	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	var calls atomic.Int64
	compute := func(_ context.Context, _ uuid.UUID) (*models.MilestonePercentageBundle, error) {
		n := calls.Add(1)
		return &models.MilestonePercentageBundle{Planning: int(n) * 10}, nil
	}
	cache := NewProgressCache(compute, 5*time.Minute, zap.NewNop(), WithClock(clock))
	projectID := uuid.New()

	_, err := cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(10 * time.Minute)
	mu.Unlock()

	// The stale entry comes back without waiting for the recompute.
	entry, err := cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Bundle.Planning)

	require.Eventually(t, func() bool {
		fresh, found := cache.Get(context.Background(), projectID)
		return found && fresh.Bundle.Planning == 20
	}, 2*time.Second, 5*time.Millisecond)
}

func TestProgressCache_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int64
	var failing atomic.Bool
	failing.Store(true)
	compute := func(_ context.Context, _ uuid.UUID) (*models.MilestonePercentageBundle, error) {
		calls.Add(1)
		if failing.Load() {
			return nil, errors.New("store unavailable")
		}
		return &models.MilestonePercentageBundle{}, nil
	}
	cache := NewProgressCache(compute, 5*time.Minute, zap.NewNop())
	projectID := uuid.New()

	_, err := cache.GetOrCompute(context.Background(), projectID)
	require.Error(t, err)
	_, found := cache.Get(context.Background(), projectID)
	assert.False(t, found)

	failing.Store(false)
	entry, err := cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)
	assert.NotNil(t, entry)
	assert.EqualValues(t, 2, calls.Load())
}

func TestProgressCache_RefreshObserverNotified(t *testing.T) {
	var calls atomic.Int64
	notified := make(chan *models.CacheEntry, 1)
	cache := NewProgressCache(
		countingCompute(&calls, models.MilestonePercentageBundle{Commissioning: 80}),
		5*time.Minute, zap.NewNop(),
		WithRefreshObserver(func(entry *models.CacheEntry) { notified <- entry }))
	projectID := uuid.New()

	_, err := cache.GetOrCompute(context.Background(), projectID)
	require.NoError(t, err)

	select {
	case entry := <-notified:
		assert.Equal(t, projectID, entry.ProjectID)
		assert.Equal(t, 80, entry.Bundle.Commissioning)
	default:
		t.Fatal("observer was not notified")
	}
}

func TestProgressCache_SetAndGet(t *testing.T) {
	cache := NewProgressCache(nil, 5*time.Minute, zap.NewNop())
	projectID := uuid.New()

	cache.Set(context.Background(), projectID, models.MilestonePercentageBundle{TrimStages: 30})

	entry, found := cache.Get(context.Background(), projectID)
	require.True(t, found)
	assert.Equal(t, 30, entry.Bundle.TrimStages)
	assert.False(t, entry.ComputedAt.IsZero())
}

func TestProgressCache_InvalidationIsPerProject(t *testing.T) {
	cache := NewProgressCache(nil, 5*time.Minute, zap.NewNop())
	a, b := uuid.New(), uuid.New()

	cache.Set(context.Background(), a, models.MilestonePercentageBundle{})
	cache.Set(context.Background(), b, models.MilestonePercentageBundle{})
	cache.Invalidate(context.Background(), a)

	_, foundA := cache.Get(context.Background(), a)
	_, foundB := cache.Get(context.Background(), b)
	assert.False(t, foundA)
	assert.True(t, foundB)
}

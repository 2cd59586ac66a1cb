package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// redisKeyPrefix namespaces progress entries in the shared Redis tier.
const redisKeyPrefix = "progress:"

// redisEntryTTL bounds how long an entry can sit in Redis. Freshness is
// judged against ComputedAt, not this TTL; the TTL only keeps abandoned
// projects from accumulating forever.
const redisEntryTTL = 24 * time.Hour

// backgroundRefreshTimeout caps a stale-entry recompute that runs detached
// from the request that triggered it.
const backgroundRefreshTimeout = 30 * time.Second

// ComputeFunc produces a fresh milestone bundle for a project. It is the
// only way the cache obtains data; errors are propagated to waiting readers
// and never cached.
type ComputeFunc func(ctx context.Context, projectID uuid.UUID) (*models.MilestonePercentageBundle, error)

// ProgressCache holds the last computed milestone bundle per project.
//
// Tier 1 is a process-local map; tier 2 is an optional shared Redis client.
// Reads serve a present entry immediately even when stale (the UI never
// shows a loading state for a project it has seen before) while a recompute
// runs in the background. Any write that could change the numbers calls
// Invalidate, after which the next read performs exactly one synchronous
// computation regardless of how many readers are waiting.
type ProgressCache struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]*models.CacheEntry
	inflight map[uuid.UUID]*flight

	compute   ComputeFunc
	redis     *redis.Client // nil when the Redis tier is disabled
	window    time.Duration
	logger    *zap.Logger
	onRefresh func(*models.CacheEntry)
	now       func() time.Time
}

type flight struct {
	done  chan struct{}
	entry *models.CacheEntry
	err   error
}

// CacheOption configures a ProgressCache.
type CacheOption func(*ProgressCache)

// WithRedis enables the shared Redis tier. A nil client leaves the cache on
// its in-process tier only.
func WithRedis(client *redis.Client) CacheOption {
	return func(c *ProgressCache) { c.redis = client }
}

// WithRefreshObserver registers a callback invoked after every successful
// recompute, with the stored entry.
func WithRefreshObserver(fn func(*models.CacheEntry)) CacheOption {
	return func(c *ProgressCache) { c.onRefresh = fn }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ProgressCache) { c.now = now }
}

// NewProgressCache creates a progress cache around the given compute
// function and freshness window.
func NewProgressCache(compute ComputeFunc, window time.Duration, logger *zap.Logger, opts ...CacheOption) *ProgressCache {
	c := &ProgressCache{
		entries:  make(map[uuid.UUID]*models.CacheEntry),
		inflight: make(map[uuid.UUID]*flight),
		compute:  compute,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached entry for a project without triggering computation.
func (c *ProgressCache) Get(ctx context.Context, projectID uuid.UUID) (*models.CacheEntry, bool) {
	entry := c.lookup(ctx, projectID)
	return entry, entry != nil
}

// Set stores a bundle through both tiers.
func (c *ProgressCache) Set(ctx context.Context, projectID uuid.UUID, bundle models.MilestonePercentageBundle) {
	c.store(ctx, &models.CacheEntry{
		ProjectID:  projectID,
		Bundle:     bundle,
		ComputedAt: c.now(),
	})
}

// Invalidate hard-removes a project's entry from both tiers. Called
// synchronously by every mutating operation before it returns. Invalidation
// never crosses projects.
func (c *ProgressCache) Invalidate(ctx context.Context, projectID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, projectID)
	c.mu.Unlock()

	if c.redis != nil {
		if err := c.redis.Del(ctx, redisKeyPrefix+projectID.String()).Err(); err != nil {
			c.logger.Warn("Failed to invalidate redis cache tier",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}
}

// GetOrCompute is the read path used by any UI. A fresh entry returns
// immediately; a stale entry returns immediately while one background
// recompute runs; a missing entry computes synchronously, with concurrent
// readers coalesced onto a single computation.
func (c *ProgressCache) GetOrCompute(ctx context.Context, projectID uuid.UUID) (*models.CacheEntry, error) {
	if entry := c.lookup(ctx, projectID); entry != nil {
		if !entry.Fresh(c.window, c.now()) {
			c.refreshAsync(projectID)
		}
		return entry, nil
	}
	return c.computeAndStore(ctx, projectID)
}

// lookup checks the in-process tier, then Redis, promoting Redis hits into
// memory. Redis failures degrade to a miss.
func (c *ProgressCache) lookup(ctx context.Context, projectID uuid.UUID) *models.CacheEntry {
	c.mu.RLock()
	entry, ok := c.entries[projectID]
	c.mu.RUnlock()
	if ok {
		return entry
	}

	if c.redis == nil {
		return nil
	}

	data, err := c.redis.Get(ctx, redisKeyPrefix+projectID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Failed to read redis cache tier",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
		return nil
	}

	var cached models.CacheEntry
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Discarding undecodable redis cache entry",
			zap.String("project_id", projectID.String()), zap.Error(err))
		return nil
	}

	c.mu.Lock()
	c.entries[projectID] = &cached
	c.mu.Unlock()
	return &cached
}

func (c *ProgressCache) store(ctx context.Context, entry *models.CacheEntry) {
	c.mu.Lock()
	c.entries[entry.ProjectID] = entry
	c.mu.Unlock()

	if c.redis != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			c.logger.Warn("Failed to encode cache entry for redis", zap.Error(err))
			return
		}
		if err := c.redis.Set(ctx, redisKeyPrefix+entry.ProjectID.String(), data, redisEntryTTL).Err(); err != nil {
			c.logger.Warn("Failed to write redis cache tier",
				zap.String("project_id", entry.ProjectID.String()), zap.Error(err))
		}
	}
}

// computeAndStore runs the compute function with per-project single-flight.
// Late arrivals block on the in-progress computation instead of starting
// their own.
func (c *ProgressCache) computeAndStore(ctx context.Context, projectID uuid.UUID) (*models.CacheEntry, error) {
	c.mu.Lock()
	if f, ok := c.inflight[projectID]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.entry, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	// A compute may have finished between the caller's lookup miss and now.
	// A present-but-stale entry does not short-circuit: the background
	// refresh path reaches here with the stale entry still in the map.
	if entry, ok := c.entries[projectID]; ok && entry.Fresh(c.window, c.now()) {
		c.mu.Unlock()
		return entry, nil
	}
	f := &flight{done: make(chan struct{})}
	c.inflight[projectID] = f
	c.mu.Unlock()

	bundle, err := c.compute(ctx, projectID)
	if err != nil {
		// Errors are not cached; the next read retries.
		f.err = err
	} else {
		entry := &models.CacheEntry{
			ProjectID:  projectID,
			Bundle:     *bundle,
			ComputedAt: c.now(),
		}
		f.entry = entry
		c.store(ctx, entry)
		if c.onRefresh != nil {
			c.onRefresh(entry)
		}
	}

	c.mu.Lock()
	delete(c.inflight, projectID)
	c.mu.Unlock()
	close(f.done)

	return f.entry, f.err
}

// refreshAsync kicks one detached recompute for a stale entry. The inflight
// map makes repeat triggers while a refresh is running no-ops.
func (c *ProgressCache) refreshAsync(projectID uuid.UUID) {
	c.mu.RLock()
	_, running := c.inflight[projectID]
	c.mu.RUnlock()
	if running {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
		defer cancel()
		if _, err := c.computeAndStore(ctx, projectID); err != nil {
			c.logger.Warn("Background progress refresh failed",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}()
}

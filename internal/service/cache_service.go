package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/models"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

const availabilityKeyPrefix = "availability:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AvailabilityCache keeps projected availability per calendar date.
// Backend failures degrade to misses. A nil *AvailabilityCache never hits.
type AvailabilityCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewAvailabilityCache wraps repo. Entries live for ttl, ten minutes when unset.
func NewAvailabilityCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
}

func (c *AvailabilityCache) active() bool {
	return c != nil && c.repo != nil
}

// Lookup returns the cached projection for date.
func (c *AvailabilityCache) Lookup(ctx context.Context, date time.Time) (*models.Availability, bool) {
	if !c.active() {
		return nil, false
	}
	key := availabilityKey(date)
	start := time.Now()
	var cached models.Availability
	err := c.repo.Get(ctx, key, &cached)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return &cached, true
	case !errors.Is(err, appErrors.ErrCacheMiss):
		c.logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

// Store records the projection for date.
func (c *AvailabilityCache) Store(ctx context.Context, date time.Time, availability models.Availability) error {
	if !c.active() {
		return nil
	}
	key := availabilityKey(date)
	start := time.Now()
	err := c.repo.Set(ctx, key, availability, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Forget drops the projections for dates. Every date is attempted; the first
// failure is returned.
func (c *AvailabilityCache) Forget(ctx context.Context, dates ...time.Time) error {
	if !c.active() {
		return nil
	}
	var first error
	for _, date := range dates {
		key := availabilityKey(date)
		if err := c.repo.DeleteByPattern(ctx, key); err != nil {
			c.logger.Warn("availability cache invalidation failed", zap.String("key", key), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func availabilityKey(date time.Time) string {
	return availabilityKeyPrefix + date.Format(models.DateLayout)
}

// Package plancache caches planned filter specs in the key-value store.
package plancache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/db"
	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
)

var cacheKeyPrefix = domain.KeyPrefix + "plan_cache:"

// DefaultTTL is how long a planned spec stays cached.
const DefaultTTL = 24 * time.Hour

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedPlanner serves repeated (schema, prompt) pairs from the cache.
type CachedPlanner struct {
	inner      domain.Planner
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. model is part of the key so switching the
// LLM does not serve stale plans. cacheTotal carries a "result" label
// ("hit"/"miss") and may be nil.
func New(
	inner domain.Planner,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedPlanner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedPlanner{
		inner:      inner,
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Plan returns a cached spec with zero tokens, or plans and caches.
func (c *CachedPlanner) Plan(ctx context.Context, req domain.PlanRequest) (domain.PlanResult, error) {
	key, err := c.cacheKey(req)
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("plan cache key: %w", err)
	}

	if spec, ok := c.get(ctx, key); ok {
		c.inc("hit")
		return domain.PlanResult{Spec: spec, Cached: true}, nil
	}
	c.inc("miss")

	res, err := c.inner.Plan(ctx, req)
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("plan: %w", err)
	}
	c.put(ctx, key, res.Spec)
	return res, nil
}

func (c *CachedPlanner) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedPlanner) cacheKey(req domain.PlanRequest) (string, error) {
	schemaJSON, err := json.Marshal(req.Schema)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	strict := "0"
	if req.Strict {
		strict = "1"
	}
	for _, part := range [][]byte{[]byte(c.model), []byte(strict), schemaJSON, []byte(req.Prompt)} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

func (c *CachedPlanner) get(ctx context.Context, key string) (filter.Spec, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached plan", zap.String("key", key), zap.Error(err))
		}
		return filter.Spec{}, false
	}
	if len(data) == 0 {
		return filter.Spec{}, false
	}
	spec, err := filter.Decode(data)
	if err != nil {
		c.logger.Warn("Failed to decode cached plan", zap.String("key", key), zap.Error(err))
		return filter.Spec{}, false
	}
	return spec, true
}

func (c *CachedPlanner) put(ctx context.Context, key string, spec filter.Spec) {
	data, err := json.Marshal(spec)
	if err != nil {
		c.logger.Warn("Failed to encode plan for cache", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache plan", zap.String("key", key), zap.Error(err))
	}
}

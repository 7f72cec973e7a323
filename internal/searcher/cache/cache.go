// Package cache keeps executed search results in Redis. Concurrent misses
// for the same query share one computation, and a circuit breaker takes
// Redis out of the query path while it is failing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/resilience"
)

const keyPrefix = "moogle:search:"

// Store is the key-value backend. A missing key is reported with an error
// for which pkgredis.IsNilError is true.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Errors  int64  `json:"errors"`
	Breaker string `json:"breaker"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New builds a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure:        func(err error) bool { return err != nil && !pkgredis.IsNilError(err) },
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get looks up the result for raw. Store failures and an open breaker are
// reported as misses.
func (c *QueryCache) Get(ctx context.Context, raw string) (*executor.SearchResult, bool) {
	key := Key(raw)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	switch {
	case pkgredis.IsNilError(err):
		c.miss()
		return nil, false
	case err != nil:
		c.errors.Add(1)
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", raw, "key", key)
	result.Query = raw
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, raw string, result *executor.SearchResult) {
	key := Key(raw)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for raw or computes, stores and
// returns it. hit reports whether the cache answered.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	raw string,
	compute func(ctx context.Context) (*executor.SearchResult, error),
) (result *executor.SearchResult, hit bool, err error) {
	if result, ok := c.Get(ctx, raw); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(Key(raw), func() (any, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, raw, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := *val.(*executor.SearchResult)
	shared.Query = raw
	return &shared, false, nil
}

// Invalidate drops every cached result. It does not go through the
// breaker; a successful flush closes it again.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.breaker.Reset()
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Breaker: c.breaker.State().String(),
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Key derives the cache key of a raw query. Queries differing only in case
// or spacing share a key.
func Key(raw string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

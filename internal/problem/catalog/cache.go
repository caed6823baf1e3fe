package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/metrics"
	"github.com/gokatarajesh/challenger/internal/problem"
)

const (
	defaultCacheTTL = 6 * time.Hour
	cacheKey        = "catalog:problems"
)

// Fetcher is anything that can return the full catalog.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]problem.CatalogProblem, error)
}

// CachedSource keeps the catalog in Redis to offload the upstream API.
type CachedSource struct {
	upstream Fetcher
	client   *redis.Client
	ttl      time.Duration
	logger   zerolog.Logger
}

func NewCachedSource(upstream Fetcher, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSource{
		upstream: upstream,
		client:   client,
		ttl:      ttl,
		logger:   logger.With().Str("component", "catalog_cache").Logger(),
	}
}

// FetchAll serves from cache when possible. Cache failures never fail the call.
func (c *CachedSource) FetchAll(ctx context.Context) ([]problem.CatalogProblem, error) {
	if cached, err := c.get(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if len(cached) > 0 {
		metrics.CatalogFetches.WithLabelValues("hit").Inc()
		return cached, nil
	}

	problems, err := c.upstream.FetchAll(ctx)
	if err != nil {
		metrics.CatalogFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CatalogFetches.WithLabelValues("miss").Inc()

	// Never cache an empty catalog.
	if len(problems) == 0 {
		c.logger.Warn().Msg("upstream returned an empty catalog; not caching")
		return problems, nil
	}
	if err := c.set(ctx, problems); err != nil {
		c.logger.Warn().Err(err).Int("problems", len(problems)).Msg("catalog cache write failed")
	}
	return problems, nil
}

// Invalidate drops the cached catalog.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, cacheKey).Err()
}

func (c *CachedSource) get(ctx context.Context) ([]problem.CatalogProblem, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var problems []problem.CatalogProblem
	if err := json.Unmarshal(data, &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

func (c *CachedSource) set(ctx context.Context, problems []problem.CatalogProblem) error {
	data, err := json.Marshal(problems)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey, data, c.ttl).Err()
}

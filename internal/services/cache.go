package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// DefaultCacheTTL applies when the cache is created with a non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// CachedCatalog wraps a [Catalog] with a redis cache-aside layer for searches and track lookups.
//
// Cache failures are logged and fall through to the wrapped catalog.
type CachedCatalog struct {
	Catalog
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedCatalog wraps next. The caller owns client.
func NewCachedCatalog(next Catalog, client *redis.Client, ttl time.Duration, logger *log.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &CachedCatalog{Catalog: next, client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %v", shared.ErrInvalidConfig, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// SearchKey is the cache key for a search page.
func SearchKey(q models.SearchQuery) string {
	return fmt.Sprintf("catalog:search:%s:%d:%d", strings.ToLower(strings.TrimSpace(q.Query)), q.Limit, q.Index)
}

// TrackKey is the cache key for a single track.
func TrackKey(id string) string {
	return "catalog:track:" + id
}

// SearchTracks serves repeated searches from redis.
func (c *CachedCatalog) SearchTracks(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error) {
	if len([]rune(strings.TrimSpace(q.Query))) < minQueryLength {
		return c.Catalog.SearchTracks(ctx, q)
	}

	key := SearchKey(q)
	var cached models.SearchResult
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := c.Catalog.SearchTracks(ctx, q)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, result)
	return result, nil
}

// GetTrack serves repeated track lookups from redis. Missing tracks are not cached.
func (c *CachedCatalog) GetTrack(ctx context.Context, id string) (*models.MusicTrack, error) {
	key := TrackKey(id)
	var cached models.MusicTrack
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	track, err := c.Catalog.GetTrack(ctx, id)
	if err != nil || track == nil {
		return track, err
	}
	c.set(ctx, key, track)
	return track, nil
}

func (c *CachedCatalog) get(ctx context.Context, key string, dest any) bool {
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	c.logger.Debug("cache hit", "key", key)
	return true
}

func (c *CachedCatalog) set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Purge deletes every cached catalog entry and returns the number of keys removed.
func (c *CachedCatalog) Purge(ctx context.Context) (int, error) {
	var removed int
	iter := c.client.Scan(ctx, 0, "catalog:*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache: %w", err)
	}
	return removed, nil
}

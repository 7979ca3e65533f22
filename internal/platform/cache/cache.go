// Package cache provides the Redis client shared by the schedule cache and
// the leaderboard. Every key they write lives under one configurable prefix.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-planner/internal/platform/config"
)

// DefaultKeyPrefix is used when no prefix is configured.
const DefaultKeyPrefix = "planner"

// Cache is a Redis client plus the key namespace planner data is kept under.
type Cache struct {
	Client *redis.Client
	prefix string
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to Redis and checks the server answers.
func New(ctx context.Context, cfg config.CacheConfig) (*Cache, error) {
	opts, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return Wrap(client, cfg.KeyPrefix), nil
}

// Wrap namespaces an existing client.
func Wrap(client *redis.Client, prefix string) *Cache {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{Client: client, prefix: prefix}
}

// Key joins parts under the cache's prefix, e.g. Key("leaderboard", "points")
// is "planner:leaderboard:points".
func (c *Cache) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck backs the cache readiness probe.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
)

// Cache stores generated schedules by input fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) ([]planner.StudyTask, bool, error)
	Set(ctx context.Context, key string, tasks []planner.StudyTask) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]planner.StudyTask, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, string, []planner.StudyTask) error {
	return nil
}

// RedisCache keeps schedules as JSON strings with a TTL, under the shared
// cache prefix.
type RedisCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisCache creates a Redis-backed schedule cache.
func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{cache: c, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]planner.StudyTask, bool, error) {
	data, err := c.cache.Client.Get(ctx, c.cache.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached schedule: %w", err)
	}

	var tasks []planner.StudyTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, false, fmt.Errorf("decode cached schedule: %w", err)
	}
	return tasks, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, tasks []planner.StudyTask) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	if err := c.cache.Client.Set(ctx, c.cache.Key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache schedule: %w", err)
	}
	return nil
}

// cacheKey fingerprints everything Generate reads, so any change to the
// syllabus or the student's config lands on a fresh key.
func cacheKey(email string, s curriculum.Syllabus, cfg planner.Config, startDate string) (string, error) {
	data, err := json.Marshal(struct {
		Syllabus  curriculum.Syllabus `json:"syllabus"`
		Config    planner.Config      `json:"config"`
		StartDate string              `json:"start_date"`
	}{s, cfg, startDate})
	if err != nil {
		return "", fmt.Errorf("fingerprint schedule inputs: %w", err)
	}
	sum := sha256.Sum256(data)
	return "schedule:" + email + ":" + hex.EncodeToString(sum[:]), nil
}

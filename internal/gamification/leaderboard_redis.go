package gamification

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-planner/internal/platform/cache"
)

// RedisLeaderboard keeps points in a sorted set and display fields in a
// hash per student.
type RedisLeaderboard struct {
	client *redis.Client
	cache  *cache.Cache
}

// NewRedisLeaderboard creates a leaderboard backed by Redis.
func NewRedisLeaderboard(c *cache.Cache) *RedisLeaderboard {
	return &RedisLeaderboard{client: c.Client, cache: c}
}

func (l *RedisLeaderboard) pointsKey() string {
	return l.cache.Key("leaderboard", "points")
}

func (l *RedisLeaderboard) memberKey(email string) string {
	return l.cache.Key("leaderboard", "member", email)
}

func (l *RedisLeaderboard) Update(ctx context.Context, e Entry) error {
	if e.Email == "" {
		return fmt.Errorf("email is required")
	}

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, l.pointsKey(), redis.Z{Score: float64(e.Points), Member: e.Email})
		pipe.HSet(ctx, l.memberKey(e.Email),
			"name", e.Name,
			"streak", e.Streak,
			"class_level", e.ClassLevel,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}
	return nil
}

func (l *RedisLeaderboard) Top(ctx context.Context, n int) ([]Standing, error) {
	if n <= 0 {
		return []Standing{}, nil
	}

	members, err := l.client.ZRevRangeWithScores(ctx, l.pointsKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	pipe := l.client.Pipeline()
	details := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		email, _ := m.Member.(string)
		details[i] = pipe.HGetAll(ctx, l.memberKey(email))
	}
	if len(members) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("read leaderboard members: %w", err)
		}
	}

	out := make([]Standing, 0, len(members))
	for i, m := range members {
		fields := details[i].Val()
		streak, _ := strconv.Atoi(fields["streak"])
		classLevel, _ := strconv.Atoi(fields["class_level"])
		email, _ := m.Member.(string)
		out = append(out, standing(i+1, Entry{
			Email:      email,
			Name:       fields["name"],
			Points:     int(m.Score),
			Streak:     streak,
			ClassLevel: classLevel,
		}))
	}
	return out, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	followersCountKeyPrefix = "follow:followers:"
	hotKeyScoresKey         = "follow:hotkey:scores"
)

// CountStore caches followers counts keyed by entity reference ("Type:ID")
// and tracks which entities are read most.
type CountStore interface {
	GetFollowersCount(ctx context.Context, ref string) (int64, bool, error)
	SetFollowersCount(ctx context.Context, ref string, count int64) error
	InvalidateFollowersCount(ctx context.Context, refs ...string) error
	RecordAccess(ctx context.Context, ref string) error
	GetTopHotKeys(ctx context.Context, n int64) ([]string, error)
	ResetHotKeyScores(ctx context.Context) error
	Close() error
}

// RedisCountStore implements CountStore backed by Redis.
type RedisCountStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCountStore connects to Redis and verifies the connection. Cached
// counts expire after ttl; zero keeps them until invalidated.
func NewRedisCountStore(address, password string, db int, ttl time.Duration) (*RedisCountStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCountStore{client: client, ttl: ttl}, nil
}

func followersCountKey(ref string) string {
	return followersCountKeyPrefix + ref
}

// GetFollowersCount returns the cached followers count for an entity.
// Returns (count, true, nil) on hit, (0, false, nil) on miss, (0, false, err) on error.
func (s *RedisCountStore) GetFollowersCount(ctx context.Context, ref string) (int64, bool, error) {
	val, err := s.client.Get(ctx, followersCountKey(ref)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get followers count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse followers count: %w", err)
	}
	return count, true, nil
}

// SetFollowersCount caches the followers count for an entity.
func (s *RedisCountStore) SetFollowersCount(ctx context.Context, ref string, count int64) error {
	err := s.client.Set(ctx, followersCountKey(ref), count, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set followers count: %w", err)
	}
	return nil
}

// InvalidateFollowersCount drops the cached counts of refs.
func (s *RedisCountStore) InvalidateFollowersCount(ctx context.Context, refs ...string) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, followersCountKey(ref))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate followers count: %w", err)
	}
	return nil
}

// RecordAccess increments the access score for an entity in the hot key sorted set.
func (s *RedisCountStore) RecordAccess(ctx context.Context, ref string) error {
	err := s.client.ZIncrBy(ctx, hotKeyScoresKey, 1, ref).Err()
	if err != nil {
		return fmt.Errorf("redis record access: %w", err)
	}
	return nil
}

// GetTopHotKeys returns the top-n most read entity references.
func (s *RedisCountStore) GetTopHotKeys(ctx context.Context, n int64) ([]string, error) {
	keys, err := s.client.ZRevRange(ctx, hotKeyScoresKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get top hot keys: %w", err)
	}
	return keys, nil
}

// ResetHotKeyScores deletes the hot key scores sorted set.
func (s *RedisCountStore) ResetHotKeyScores(ctx context.Context) error {
	err := s.client.Del(ctx, hotKeyScoresKey).Err()
	if err != nil {
		return fmt.Errorf("redis reset hot key scores: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisCountStore) Close() error {
	return s.client.Close()
}

// Ensure interface is satisfied at compile time.
var _ CountStore = (*RedisCountStore)(nil)

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"vellum/backend/internal/domain"
)

const DefaultRedisKey = "vellum:ai-insights"

type RedisInsightCache struct {
	client *redis.Client
	key    string
	maxAge time.Duration
	now    func() time.Time
}

func NewRedisInsightCache(addr string, password string, db int, maxAge time.Duration) *RedisInsightCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	return &RedisInsightCache{client: client, key: DefaultRedisKey, maxAge: maxAge, now: time.Now}
}

// WithKey scopes the cache to a different key, mainly for tests sharing a server.
func (c *RedisInsightCache) WithKey(key string) *RedisInsightCache {
	clone := *c
	clone.key = key
	return &clone
}

func (c *RedisInsightCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisInsightCache) Close() error {
	return c.client.Close()
}

func (c *RedisInsightCache) Save(ctx context.Context, hash string, insights []domain.Insight) error {
	payload, err := json.Marshal(entry{
		Version:  EntryVersion,
		SavedAt:  c.now().UTC(),
		DataHash: hash,
		Insights: insights,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, payload, c.maxAge).Err()
}

func (c *RedisInsightCache) Load(ctx context.Context, hash string) ([]domain.Insight, bool, error) {
	cached, ok, err := c.read(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	if !cached.fresh(hash, c.now(), c.maxAge) {
		return nil, false, c.Clear(ctx)
	}
	return cached.Insights, true, nil
}

func (c *RedisInsightCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *RedisInsightCache) Info(ctx context.Context) (domain.CacheInfo, error) {
	cached, ok, err := c.read(ctx)
	if err != nil || !ok {
		return domain.CacheInfo{}, err
	}
	return cached.info(c.now()), nil
}

// read treats an unreadable payload as absent and removes it.
func (c *RedisInsightCache) read(ctx context.Context) (entry, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry{}, false, nil
	}
	if err != nil {
		return entry{}, false, err
	}

	var cached entry
	if err := json.Unmarshal(val, &cached); err != nil {
		return entry{}, false, c.Clear(ctx)
	}
	return cached, true, nil
}

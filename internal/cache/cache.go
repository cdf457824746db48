// Package cache keeps the most recent AI insights for one snapshot summary.
// An entry is a miss when its format version or summary hash differs from the
// caller's, or when it is older than the configured max age; such entries are
// cleared on read.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vellum/backend/internal/domain"
)

const (
	EntryVersion  = "1.0"
	DefaultMaxAge = 24 * time.Hour
)

type InsightCache interface {
	Save(ctx context.Context, hash string, insights []domain.Insight) error
	Load(ctx context.Context, hash string) ([]domain.Insight, bool, error)
	Clear(ctx context.Context) error
	Info(ctx context.Context) (domain.CacheInfo, error)
}

type entry struct {
	Version  string           `json:"version"`
	SavedAt  time.Time        `json:"saved_at"`
	DataHash string           `json:"data_hash"`
	Insights []domain.Insight `json:"insights"`
}

func (e entry) fresh(hash string, now time.Time, maxAge time.Duration) bool {
	return e.Version == EntryVersion && e.DataHash == hash && now.Sub(e.SavedAt) <= maxAge
}

func (e entry) info(now time.Time) domain.CacheInfo {
	return domain.CacheInfo{Exists: true, SavedAt: e.SavedAt, Age: ageLabel(now.Sub(e.SavedAt))}
}

func ageLabel(age time.Duration) string {
	minutes := int(age / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d hours", minutes/60)
}

type NoopInsightCache struct{}

func (NoopInsightCache) Save(_ context.Context, _ string, _ []domain.Insight) error {
	return nil
}

func (NoopInsightCache) Load(_ context.Context, _ string) ([]domain.Insight, bool, error) {
	return nil, false, nil
}

func (NoopInsightCache) Clear(_ context.Context) error {
	return nil
}

func (NoopInsightCache) Info(_ context.Context) (domain.CacheInfo, error) {
	return domain.CacheInfo{}, nil
}

// MemoryInsightCache holds a single entry in process memory.
type MemoryInsightCache struct {
	mu     sync.Mutex
	entry  *entry
	maxAge time.Duration
	now    func() time.Time
}

func NewMemoryInsightCache(maxAge time.Duration, now func() time.Time) *MemoryInsightCache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryInsightCache{maxAge: maxAge, now: now}
}

func (c *MemoryInsightCache) Save(_ context.Context, hash string, insights []domain.Insight) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &entry{
		Version:  EntryVersion,
		SavedAt:  c.now(),
		DataHash: hash,
		Insights: append([]domain.Insight(nil), insights...),
	}
	return nil
}

func (c *MemoryInsightCache) Load(_ context.Context, hash string) ([]domain.Insight, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return nil, false, nil
	}
	if !c.entry.fresh(hash, c.now(), c.maxAge) {
		c.entry = nil
		return nil, false, nil
	}
	return append([]domain.Insight(nil), c.entry.Insights...), true, nil
}

func (c *MemoryInsightCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	return nil
}

func (c *MemoryInsightCache) Info(_ context.Context) (domain.CacheInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return domain.CacheInfo{}, nil
	}
	return c.entry.info(c.now()), nil
}

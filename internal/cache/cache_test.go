package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"vellum/backend/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestMemoryCache() (*MemoryInsightCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)}
	return NewMemoryInsightCache(DefaultMaxAge, clock.Now), clock
}

func sampleInsights() []domain.Insight {
	return []domain.Insight{{ID: "ins-1", Title: "Reativar clientes"}}
}

func TestMemoryCacheLoadsMatchingHash(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	if err := c.Save(ctx, "abc", sampleInsights()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	insights, ok, err := c.Load(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if len(insights) != 1 || insights[0].ID != "ins-1" {
		t.Fatalf("unexpected insights %+v", insights)
	}
}

func TestMemoryCacheHashMismatchClearsEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	_ = c.Save(ctx, "abc", sampleInsights())

	if _, ok, _ := c.Load(ctx, "other"); ok {
		t.Fatalf("expected miss on hash mismatch")
	}
	info, _ := c.Info(ctx)
	if info.Exists {
		t.Fatalf("expected mismatched entry to be cleared")
	}
}

func TestMemoryCacheExpiresAfterMaxAge(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestMemoryCache()
	_ = c.Save(ctx, "abc", sampleInsights())

	clock.now = clock.now.Add(DefaultMaxAge)
	if _, ok, _ := c.Load(ctx, "abc"); !ok {
		t.Fatalf("expected hit at exactly max age")
	}
	clock.now = clock.now.Add(time.Minute)
	if _, ok, _ := c.Load(ctx, "abc"); ok {
		t.Fatalf("expected miss after max age")
	}
}

func TestMemoryCacheVersionMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	_ = c.Save(ctx, "abc", sampleInsights())
	c.entry.Version = "0.9"

	if _, ok, _ := c.Load(ctx, "abc"); ok {
		t.Fatalf("expected miss on version mismatch")
	}
}

func TestMemoryCacheInfoReportsAge(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestMemoryCache()
	if info, _ := c.Info(ctx); info.Exists {
		t.Fatalf("expected empty cache info")
	}
	_ = c.Save(ctx, "abc", sampleInsights())

	clock.now = clock.now.Add(42 * time.Minute)
	if info, _ := c.Info(ctx); !info.Exists || info.Age != "42 minutes" {
		t.Fatalf("unexpected info %+v", info)
	}
	clock.now = clock.now.Add(3 * time.Hour)
	if info, _ := c.Info(ctx); info.Age != "3 hours" {
		t.Fatalf("unexpected info %+v", info)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if info, _ := c.Info(ctx); info.Exists {
		t.Fatalf("expected cleared cache")
	}
}

func TestRedisInsightCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("VELLUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VELLUM_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c := NewRedisInsightCache(addr, os.Getenv("VELLUM_TEST_REDIS_PASSWORD"), 0, time.Hour).
		WithKey("vellum:test:" + time.Now().Format("150405.000000000"))
	defer c.Close()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}
	defer func() { _ = c.Clear(ctx) }()

	if err := c.Save(ctx, "abc", sampleInsights()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	insights, ok, err := c.Load(ctx, "abc")
	if err != nil || !ok || insights[0].ID != "ins-1" {
		t.Fatalf("expected hit, got %+v ok=%v err=%v", insights, ok, err)
	}
	if info, err := c.Info(ctx); err != nil || !info.Exists {
		t.Fatalf("expected info to exist, got %+v err=%v", info, err)
	}
	if _, ok, _ := c.Load(ctx, "changed"); ok {
		t.Fatalf("expected miss on hash mismatch")
	}
	if info, _ := c.Info(ctx); info.Exists {
		t.Fatalf("expected mismatched entry to be removed")
	}
}

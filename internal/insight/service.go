package insight

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vellum/backend/internal/cache"
	"vellum/backend/internal/domain"
)

var ErrNoData = errors.New("snapshot has no billed orders")

// Service answers insight requests from the cache, then the generator, then
// the fixed rules. Cache failures are logged and otherwise ignored.
type Service struct {
	cache     cache.InsightCache
	generator Generator
	logger    *zap.Logger
	now       func() time.Time
}

// NewService accepts a nil generator, in which case every miss is answered
// by Fallback.
func NewService(insightCache cache.InsightCache, generator Generator, logger *zap.Logger) *Service {
	if insightCache == nil {
		insightCache = cache.NoopInsightCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cache: insightCache, generator: generator, logger: logger, now: time.Now}
}

// Insights returns recommendations for snapshot. refresh skips the cache
// lookup but still stores the new result.
func (s *Service) Insights(ctx context.Context, snapshot domain.SalesSnapshot, refresh bool) (domain.InsightResult, error) {
	if snapshot.Totals.Orders == 0 {
		return domain.InsightResult{}, ErrNoData
	}
	summary := Summarize(snapshot)
	hash := summary.Hash()

	if !refresh {
		cached, ok, err := s.cache.Load(ctx, hash)
		if err != nil {
			s.logger.Warn("insight cache load failed", zap.String("hash", hash), zap.Error(err))
		}
		if ok {
			return s.result(cached, domain.InsightSourceCache, hash), nil
		}
	}

	insights, source := s.generate(ctx, summary)
	if err := s.cache.Save(ctx, hash, insights); err != nil {
		s.logger.Warn("insight cache save failed", zap.String("hash", hash), zap.Error(err))
	}
	return s.result(insights, source, hash), nil
}

func (s *Service) generate(ctx context.Context, summary Summary) ([]domain.Insight, string) {
	if s.generator == nil {
		return Fallback(summary), domain.InsightSourceFallback
	}
	insights, err := s.generator.Generate(ctx, summary)
	if err != nil {
		s.logger.Warn("insight generation failed, using fallback", zap.Error(err))
		return Fallback(summary), domain.InsightSourceFallback
	}
	if len(insights) > MaxInsights {
		insights = insights[:MaxInsights]
	}
	return insights, domain.InsightSourceGenerator
}

func (s *Service) result(insights []domain.Insight, source string, hash string) domain.InsightResult {
	if insights == nil {
		insights = []domain.Insight{}
	}
	return domain.InsightResult{
		Insights:    insights,
		Source:      source,
		DataHash:    hash,
		GeneratedAt: s.now().UTC(),
	}
}

func (s *Service) CacheInfo(ctx context.Context) (domain.CacheInfo, error) {
	return s.cache.Info(ctx)
}

func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

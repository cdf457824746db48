package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"vellum/backend/internal/cache"
	"vellum/backend/internal/domain"
	"vellum/backend/internal/xid"
)

type stubGenerator struct {
	calls    int
	insights []domain.Insight
	err      error
}

func (g *stubGenerator) Generate(_ context.Context, _ Summary) ([]domain.Insight, error) {
	g.calls++
	return g.insights, g.err
}

func testSnapshot() domain.SalesSnapshot {
	return domain.SalesSnapshot{
		Totals: domain.Totals{
			Revenue:          1500,
			Orders:           10,
			CancelledOrders:  3,
			CancellationRate: 23.08,
			Clients:          4,
		},
		TopClients:   []domain.ClientMetric{{Name: "Ana"}, {Name: "Bia"}},
		Coupons:      []domain.CouponMetric{{Code: "PROMO", Uses: 4}},
		Combinations: []domain.ProductCombination{{ProductA: "Cadeira", ProductB: "Mesa", Count: 3}},
		Channels:     []domain.ChannelMetric{{Channel: "Mercado Livre", Orders: 10, Revenue: 1500}},
	}
}

func newTestService(generator Generator) (*Service, *cache.MemoryInsightCache) {
	memory := cache.NewMemoryInsightCache(time.Hour, nil)
	return NewService(memory, generator, zap.NewNop()), memory
}

func TestFallbackCoversEveryRule(t *testing.T) {
	insights := Fallback(Summarize(testSnapshot()))
	if len(insights) != 4 {
		t.Fatalf("expected 4 fallback insights, got %d", len(insights))
	}
	if insights[0].Category != "retention" || !strings.Contains(insights[0].Description, "23.1%") {
		t.Fatalf("unexpected cancellation insight %+v", insights[0])
	}
	if !strings.Contains(insights[1].Description, "Cadeira e Mesa") || !strings.Contains(insights[1].Description, "3 vezes") {
		t.Fatalf("unexpected cross-sell insight %+v", insights[1])
	}
	if !strings.HasPrefix(insights[2].Description, "2 clientes") {
		t.Fatalf("unexpected vip insight %+v", insights[2])
	}
	if insights[3].ID != "fallback-4" || !strings.Contains(insights[3].Description, "PROMO") {
		t.Fatalf("unexpected coupon insight %+v", insights[3])
	}
}

func TestFallbackSkipsRulesWithoutData(t *testing.T) {
	insights := Fallback(Summary{CancellationRate: 5})
	if len(insights) != 0 {
		t.Fatalf("expected no fallback insights, got %+v", insights)
	}
}

func TestSummaryHashTracksHeadlineFigures(t *testing.T) {
	base := Summarize(testSnapshot())
	same := Summarize(testSnapshot())
	if base.Hash() != same.Hash() {
		t.Fatalf("expected stable hash")
	}
	changed := testSnapshot()
	changed.Totals.Revenue = 1501
	if Summarize(changed).Hash() == base.Hash() {
		t.Fatalf("expected revenue change to change hash")
	}
}

func TestSummarizeTruncatesLists(t *testing.T) {
	snapshot := testSnapshot()
	for i := 0; i < 8; i++ {
		snapshot.TopProducts = append(snapshot.TopProducts, domain.ProductMetric{Name: fmt.Sprintf("P%d", i)})
	}
	summary := Summarize(snapshot)
	if len(summary.TopProducts) != 5 || summary.TopProductCount != 8 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !strings.Contains(Prompt(summary), "5. P4 - 0 vendas") {
		t.Fatalf("expected prompt to list top products")
	}
}

func TestParseGeneratedFiltersInvalidInsights(t *testing.T) {
	content := "```json\n" + `{"insights":[
		{"category":"growth","title":" Expandir ","description":"d","priority":"high","action_type":"strategy","implementation":["a"],"expected_impact":"x","metrics":null},
		{"category":"unknown","title":"t","description":"d","priority":"high","action_type":"email","implementation":[],"expected_impact":"x","metrics":[]}
	]}` + "\n```"

	insights, err := ParseGenerated(content)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(insights) != 1 || insights[0].Title != "Expandir" || insights[0].Metrics == nil {
		t.Fatalf("unexpected insights %+v", insights)
	}
	if !xid.Valid("insight", insights[0].ID) {
		t.Fatalf("expected generated id, got %q", insights[0].ID)
	}

	if _, err := ParseGenerated(`{"insights":[]}`); !errors.Is(err, ErrNoValidInsights) {
		t.Fatalf("expected ErrNoValidInsights, got %v", err)
	}
	if _, err := ParseGenerated("not json"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvelopeSchemaIsStrict(t *testing.T) {
	schema, err := envelopeSchema()
	if err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if schema["additionalProperties"] != false {
		t.Fatalf("expected closed schema, got %v", schema["additionalProperties"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || props["insights"] == nil {
		t.Fatalf("expected insights property, got %v", schema)
	}
}

func TestServiceCachesGeneratedInsights(t *testing.T) {
	ctx := context.Background()
	generator := &stubGenerator{insights: []domain.Insight{{ID: "insight-1", Title: "A"}}}
	service, _ := newTestService(generator)

	first, err := service.Insights(ctx, testSnapshot(), false)
	if err != nil {
		t.Fatalf("insights failed: %v", err)
	}
	if first.Source != domain.InsightSourceGenerator || len(first.Insights) != 1 {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := service.Insights(ctx, testSnapshot(), false)
	if err != nil {
		t.Fatalf("insights failed: %v", err)
	}
	if second.Source != domain.InsightSourceCache || generator.calls != 1 {
		t.Fatalf("expected cached result without new generation, got %+v calls=%d", second, generator.calls)
	}

	refreshed, _ := service.Insights(ctx, testSnapshot(), true)
	if refreshed.Source != domain.InsightSourceGenerator || generator.calls != 2 {
		t.Fatalf("expected refresh to regenerate, got %+v calls=%d", refreshed, generator.calls)
	}

	info, _ := service.CacheInfo(ctx)
	if !info.Exists {
		t.Fatalf("expected cache entry")
	}
	if err := service.ClearCache(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if info, _ := service.CacheInfo(ctx); info.Exists {
		t.Fatalf("expected cleared cache")
	}
}

func TestServiceFallsBackWhenGeneratorFails(t *testing.T) {
	service, _ := newTestService(&stubGenerator{err: errors.New("quota exceeded")})
	result, err := service.Insights(context.Background(), testSnapshot(), false)
	if err != nil {
		t.Fatalf("insights failed: %v", err)
	}
	if result.Source != domain.InsightSourceFallback || len(result.Insights) != 4 {
		t.Fatalf("unexpected fallback result %+v", result)
	}
}

func TestServiceCapsGeneratedInsights(t *testing.T) {
	many := make([]domain.Insight, 12)
	service, _ := newTestService(&stubGenerator{insights: many})
	result, _ := service.Insights(context.Background(), testSnapshot(), false)
	if len(result.Insights) != MaxInsights {
		t.Fatalf("expected %d insights, got %d", MaxInsights, len(result.Insights))
	}
}

func TestServiceRejectsEmptySnapshot(t *testing.T) {
	service := NewService(nil, nil, nil)
	if _, err := service.Insights(context.Background(), domain.SalesSnapshot{}, false); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	result, err := service.Insights(context.Background(), testSnapshot(), false)
	if err != nil || result.Source != domain.InsightSourceFallback {
		t.Fatalf("expected fallback without generator, got %+v err=%v", result, err)
	}
}

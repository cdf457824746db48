package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"vellum/backend/internal/domain"
)

func TestWriteCSVFormatsLikeSpreadsheetExport(t *testing.T) {
	rows := []domain.ProductMetric{
		{Name: "Mesa, grande", Sales: 1200, Revenue: 1234567.891, Quantity: 3, AveragePrice: 10},
		{Name: `Cadeira "gamer"`, Sales: 2, Revenue: -5.5, Quantity: 1, AveragePrice: 0.125},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := "\ufeff" +
		`"name","sales","revenue","quantity","average_price"` + "\n" +
		`"Mesa, grande",1.200,"1.234.567,89",3,"10,00"` + "\n" +
		`"Cadeira ""gamer""",2,"-5,50",1,"0,13"`
	if got := buf.String(); got != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteCSVFlattensEmbeddedStructs(t *testing.T) {
	first := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.RecurrentClient{{
		ClientMetric:        domain.ClientMetric{Document: "111", Name: "Ana", Orders: 2, FirstPurchase: first},
		AverageIntervalDays: 10,
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	lines := strings.Split(strings.TrimPrefix(buf.String(), "\ufeff"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], `"document","name"`) || !strings.HasSuffix(lines[0], `"average_interval_days"`) {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "2024-03-01,,") || !strings.HasSuffix(lines[1], ",10") {
		t.Fatalf("expected date column and empty zero date, got %q", lines[1])
	}
}

func TestWriteCSVJoinsStringLists(t *testing.T) {
	rows := []domain.Insight{{ID: "ins-1", Implementation: []string{"a", "b"}}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(buf.String(), ",a; b,") {
		t.Fatalf("expected joined list, got %q", buf.String())
	}
}

func TestWriteCSVEmptyViewKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []domain.CouponMetric{}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.String() != "\ufeff"+`"code","uses","revenue","average_order_value","clients"` {
		t.Fatalf("unexpected empty export %q", buf.String())
	}
}

func TestWriteCSVRejectsNonSlices(t *testing.T) {
	if err := WriteCSV(&bytes.Buffer{}, domain.Totals{}); !errors.Is(err, ErrNotSlice) {
		t.Fatalf("expected ErrNotSlice, got %v", err)
	}
	if err := WriteCSV(&bytes.Buffer{}, []string{"x"}); !errors.Is(err, ErrNotSlice) {
		t.Fatalf("expected ErrNotSlice for non-struct elements, got %v", err)
	}
}

func TestViewsResolveByName(t *testing.T) {
	snapshot := domain.SalesSnapshot{Coupons: []domain.CouponMetric{{Code: "PROMO"}}}
	view, err := SalesView(snapshot, "coupons")
	if err != nil {
		t.Fatalf("expected coupons view, got %v", err)
	}
	if coupons, ok := view.([]domain.CouponMetric); !ok || coupons[0].Code != "PROMO" {
		t.Fatalf("unexpected view %#v", view)
	}
	if _, err := SalesView(snapshot, "nope"); !errors.Is(err, ErrUnknownView) {
		t.Fatalf("expected ErrUnknownView, got %v", err)
	}
	if _, err := FunnelView(domain.FunnelSnapshot{}, "abandoned-carts"); err != nil {
		t.Fatalf("expected funnel view, got %v", err)
	}
	if len(SalesViewNames()) != 17 || len(FunnelViewNames()) != 7 {
		t.Fatalf("unexpected view catalogue %v %v", SalesViewNames(), FunnelViewNames())
	}
}

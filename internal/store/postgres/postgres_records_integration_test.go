package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"vellum/backend/internal/domain"
	"vellum/backend/internal/store"
)

// These tests clear the record tables; point VELLUM_TEST_DATABASE_URL at a
// disposable database.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("VELLUM_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set VELLUM_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.ClearSales(ctx)
		_, _ = s.ClearFunnel(ctx)
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	_, _ = s.ClearSales(ctx)
	_, _ = s.ClearFunnel(ctx)
	return s
}

func TestSalesBatchRoundTripsInOrder(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	batch := fmt.Sprintf("batch-it-%d", time.Now().UnixNano())

	records := []domain.SalesLineItem{
		{OrderID: "MLR-1", Date: day, Client: domain.Client{Document: "111", Name: "Ana", City: "Curitiba"}, ProductName: "Mesa", UnitPrice: 1234.5, LineTotal: 2469, Quantity: 2, RawStatus: "Faturado", Status: domain.StatusBilled, Coupon: "PROMO"},
		{OrderID: "MLR-1", Date: day, ProductName: "Cadeira", LineTotal: 10.5, Quantity: 1, Status: domain.StatusBilled},
	}
	if err := s.AppendSales(ctx, batch, records); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendSales(ctx, batch, records); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for reused batch, got %v", err)
	}

	got, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ProductName != "Mesa" || got[1].ProductName != "Cadeira" {
		t.Fatalf("unexpected records %+v", got)
	}
	if !got[0].Date.Equal(day) || got[0].UnitPrice != 1234.5 || got[0].Client.City != "Curitiba" || got[0].Status != domain.StatusBilled {
		t.Fatalf("unexpected first record %+v", got[0])
	}

	removed, err := s.ClearSales(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d err=%v", removed, err)
	}
}

func TestFunnelBatchKeepsMissingModifiedDate(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	day := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	records := []domain.FunnelRecord{
		{Client: "Ana", Email: "ana@example.com", Status: domain.FunnelApproved, CreatedAt: day, Value: 300},
		{Client: "Bia", Email: "bia@example.com", Status: domain.FunnelCancelled, CreatedAt: day, ModifiedAt: day.AddDate(0, 0, 3), Value: 100},
	}
	if err := s.AppendFunnel(ctx, fmt.Sprintf("batch-it-%d", time.Now().UnixNano()), records); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.ListFunnel(ctx)
	if err != nil || len(got) != 2 {
		t.Fatalf("unexpected list %+v err=%v", got, err)
	}
	if !got[0].ModifiedAt.IsZero() || !got[1].ModifiedAt.Equal(day.AddDate(0, 0, 3)) {
		t.Fatalf("unexpected modified dates %+v", got)
	}
}

func TestAppendRollsBackOnInvalidBatch(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	err := s.AppendSales(ctx, "batch-invalid", []domain.SalesLineItem{{OrderID: "MLR-1"}})
	if !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if got, _ := s.ListSales(ctx); len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

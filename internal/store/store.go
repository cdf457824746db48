package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vellum/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrConflict      = errors.New("already exists")
)

// RecordStore holds the raw uploaded records. Appends are all-or-nothing and
// records are only ever removed by an explicit clear.
type RecordStore interface {
	AppendSales(ctx context.Context, batchID string, records []domain.SalesLineItem) error
	ListSales(ctx context.Context) ([]domain.SalesLineItem, error)
	ClearSales(ctx context.Context) (int, error)
	AppendFunnel(ctx context.Context, batchID string, records []domain.FunnelRecord) error
	ListFunnel(ctx context.Context) ([]domain.FunnelRecord, error)
	ClearFunnel(ctx context.Context) (int, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	RecordStore
	UserStore
}

// ValidateSales rejects a batch when any record lacks an order id, a date or
// a product name.
func ValidateSales(records []domain.SalesLineItem) error {
	for i, record := range records {
		if strings.TrimSpace(record.OrderID) == "" || record.Date.IsZero() || strings.TrimSpace(record.ProductName) == "" {
			return fmt.Errorf("sales record %d: %w", i, ErrInvalidRecord)
		}
	}
	return nil
}

// ValidateFunnel rejects a batch when any record lacks a client, an email, a
// creation date or a known status.
func ValidateFunnel(records []domain.FunnelRecord) error {
	for i, record := range records {
		if strings.TrimSpace(record.Client) == "" || strings.TrimSpace(record.Email) == "" || record.CreatedAt.IsZero() {
			return fmt.Errorf("funnel record %d: %w", i, ErrInvalidRecord)
		}
		if _, ok := domain.ParseFunnelStatus(string(record.Status)); !ok {
			return fmt.Errorf("funnel record %d status %q: %w", i, record.Status, ErrInvalidRecord)
		}
	}
	return nil
}

// NormalizeUsername lowercases and trims; usernames are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

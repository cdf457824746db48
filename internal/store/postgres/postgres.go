package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"vellum/backend/internal/domain"
	"vellum/backend/internal/store"
)

const (
	kindSales  = "sales"
	kindFunnel = "funnel"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) AppendSales(ctx context.Context, batchID string, records []domain.SalesLineItem) error {
	if err := store.ValidateSales(records); err != nil {
		return err
	}

	return s.inBatch(ctx, batchID, kindSales, len(records), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_line_items (
				batch_id, order_id, order_date,
				client_document, client_name, client_email, client_phone, client_city,
				product_name, unit_price, line_total, quantity,
				raw_status, status, coupon, courier, payment_method, discounts
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				batchID, r.OrderID, r.Date.UTC(),
				r.Client.Document, r.Client.Name, r.Client.Email, r.Client.Phone, r.Client.City,
				r.ProductName, r.UnitPrice, r.LineTotal, r.Quantity,
				r.RawStatus, string(r.Status), r.Coupon, r.Courier, r.PaymentMethod, r.Discounts,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListSales(ctx context.Context) ([]domain.SalesLineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, order_date,
			client_document, client_name, client_email, client_phone, client_city,
			product_name, unit_price, line_total, quantity,
			raw_status, status, coupon, courier, payment_method, discounts
		FROM sales_line_items
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SalesLineItem, 0, 256)
	for rows.Next() {
		var r domain.SalesLineItem
		var status string
		if err := rows.Scan(
			&r.OrderID, &r.Date,
			&r.Client.Document, &r.Client.Name, &r.Client.Email, &r.Client.Phone, &r.Client.City,
			&r.ProductName, &r.UnitPrice, &r.LineTotal, &r.Quantity,
			&r.RawStatus, &status, &r.Coupon, &r.Courier, &r.PaymentMethod, &r.Discounts,
		); err != nil {
			return nil, err
		}
		r.Date = r.Date.UTC()
		r.Status = domain.OrderStatus(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) ClearSales(ctx context.Context) (int, error) {
	return s.clear(ctx, "sales_line_items", kindSales)
}

func (s *Store) AppendFunnel(ctx context.Context, batchID string, records []domain.FunnelRecord) error {
	if err := store.ValidateFunnel(records); err != nil {
		return err
	}

	return s.inBatch(ctx, batchID, kindFunnel, len(records), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO funnel_records (batch_id, client, email, raw_status, status, created_on, modified_on, value)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				batchID, r.Client, r.Email, r.RawStatus, string(r.Status),
				r.CreatedAt.UTC(), nullTime(r.ModifiedAt), r.Value,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListFunnel(ctx context.Context) ([]domain.FunnelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client, email, raw_status, status, created_on, modified_on, value
		FROM funnel_records
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.FunnelRecord, 0, 128)
	for rows.Next() {
		var r domain.FunnelRecord
		var status string
		var modified sql.NullTime
		if err := rows.Scan(&r.Client, &r.Email, &r.RawStatus, &status, &r.CreatedAt, &modified, &r.Value); err != nil {
			return nil, err
		}
		r.Status = domain.FunnelStatus(status)
		r.CreatedAt = r.CreatedAt.UTC()
		if modified.Valid {
			r.ModifiedAt = modified.Time.UTC()
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) ClearFunnel(ctx context.Context) (int, error) {
	return s.clear(ctx, "funnel_records", kindFunnel)
}

// inBatch registers the batch and runs insert inside one transaction, so a
// failing row leaves no trace of the batch.
func (s *Store) inBatch(ctx context.Context, batchID string, kind string, size int, insert func(tx *sql.Tx) error) error {
	if batchID == "" {
		return store.ErrInvalidRecord
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO upload_batches (id, kind, records, created_at)
		VALUES ($1,$2,$3,now())
	`, batchID, kind, size); err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) clear(ctx context.Context, table string, kind string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table)
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM upload_batches WHERE kind = $1`, kind); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(removed), nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = store.NormalizeUsername(user.Username)
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = domain.RoleAnalyst
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyst_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM analyst_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = store.NormalizeUsername(username)
	if username == "" || password == "" {
		return store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE analyst_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val.UTC()
}

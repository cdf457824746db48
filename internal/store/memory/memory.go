package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vellum/backend/internal/domain"
	"vellum/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	sales           []domain.SalesLineItem
	funnel          []domain.FunnelRecord
	batches         map[string]int
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		batches:         make(map[string]int),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns an empty record store with an admin and an analyst
// account. Passwords come from SEED_ADMIN_PASSWORD and SEED_ANALYST_PASSWORD
// and fall back to dev defaults, which are logged as a warning.
func NewSeeded(logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	analystPwd := envOr("SEED_ANALYST_PASSWORD", "analyst123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ANALYST_PASSWORD") == "" {
		logger.Warn("memory store is using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_ANALYST_PASSWORD to override")
	}

	s := New()
	now := time.Now().UTC()
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"analyst", analystPwd, domain.RoleAnalyst},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		s.usersByUsername[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) AppendSales(_ context.Context, batchID string, records []domain.SalesLineItem) error {
	if err := store.ValidateSales(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claimBatch(batchID, len(records)); err != nil {
		return err
	}
	s.sales = append(s.sales, records...)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.SalesLineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sales), nil
}

func (s *Store) ClearSales(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.sales)
	s.sales = nil
	return removed, nil
}

func (s *Store) AppendFunnel(_ context.Context, batchID string, records []domain.FunnelRecord) error {
	if err := store.ValidateFunnel(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claimBatch(batchID, len(records)); err != nil {
		return err
	}
	s.funnel = append(s.funnel, records...)
	return nil
}

func (s *Store) ListFunnel(_ context.Context) ([]domain.FunnelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.funnel), nil
}

func (s *Store) ClearFunnel(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.funnel)
	s.funnel = nil
	return removed, nil
}

// claimBatch must be called with the write lock held.
func (s *Store) claimBatch(batchID string, size int) error {
	if strings.TrimSpace(batchID) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.batches[batchID]; exists {
		return store.ErrConflict
	}
	s.batches[batchID] = size
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := store.NormalizeUsername(user.Username)
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleAnalyst
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = store.NormalizeUsername(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

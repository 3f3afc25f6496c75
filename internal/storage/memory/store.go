// Package memory is an in-process implementation of storage.Store. It backs
// local runs without DATABASE_URL and the handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps users and ledger entries in maps. Credit transactions are
// serialized by txMu, so a read-check-write inside RunInTx can never observe
// a stale balance.
type Store struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	users   map[string]models.User
	ledger  map[string][]models.CreditTransaction
	now     func() time.Time
	failTx  error
	txCalls int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:  make(map[string]models.User),
		ledger: make(map[string][]models.CreditTransaction),
		now:    time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// FailNextTx makes the next RunInTx return err without running fn.
func (s *Store) FailNextTx(err error) {
	s.mu.Lock()
	s.failTx = err
	s.mu.Unlock()
}

// TxCalls reports how many transactions were started.
func (s *Store) TxCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txCalls
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.users[user.ID]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	if user.FinancialGoals == nil {
		user.FinancialGoals = []models.FinancialGoal{}
	}
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = user
	return cloneUser(user), nil
}

// FindByID fetches a user by identity key.
func (s *Store) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return cloneUser(user), nil
}

// FindByEmail fetches a user by email, case-insensitively.
func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.TrimSpace(email)
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return cloneUser(user), nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// UpdateProfile overwrites the user-editable fields.
func (s *Store) UpdateProfile(_ context.Context, id string, profile models.Profile) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	user.Name = profile.Name
	user.BusinessType = profile.BusinessType
	user.FinancialGoals = append([]models.FinancialGoal{}, profile.FinancialGoals...)
	s.users[id] = user
	return cloneUser(user), nil
}

// TouchLastLogin stamps the user's last login time.
func (s *Store) TouchLastLogin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := s.now().UTC()
	user.LastLogin = &now
	s.users[id] = user
	return nil
}

// RunInTx runs fn with exclusive access to the ledger. Writes are buffered
// and applied only when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.CreditTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.txCalls++
	failErr := s.failTx
	s.failTx = nil
	s.mu.Unlock()
	if failErr != nil {
		return failErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: s, credits: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// ListTransactions returns the newest ledger entries for a user.
func (s *Store) ListTransactions(_ context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.ledger[userID]
	entries := make([]models.CreditTransaction, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		entries = append(entries, src[i])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type memTx struct {
	store   *Store
	credits map[string]int64
	entries []models.CreditTransaction
}

func (t *memTx) Credits(_ context.Context, userID string) (int64, error) {
	if credits, ok := t.credits[userID]; ok {
		return credits, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	user, ok := t.store.users[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return user.Credits, nil
}

func (t *memTx) SetCredits(_ context.Context, userID string, credits int64) error {
	t.store.mu.RLock()
	_, ok := t.store.users[userID]
	t.store.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}
	t.credits[userID] = credits
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, entry models.CreditTransaction) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	t.entries = append(t.entries, entry)
	return nil
}

func (t *memTx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for userID, credits := range t.credits {
		if credits < 0 {
			return storage.ErrConstraint
		}
		if _, ok := t.store.users[userID]; !ok {
			return storage.ErrNotFound
		}
	}
	for userID, credits := range t.credits {
		user := t.store.users[userID]
		user.Credits = credits
		t.store.users[userID] = user
	}
	for _, entry := range t.entries {
		entry.CreatedAt = t.store.now().UTC()
		t.store.ledger[entry.UserID] = append(t.store.ledger[entry.UserID], entry)
	}
	return nil
}

func cloneUser(user models.User) models.User {
	user.FinancialGoals = append([]models.FinancialGoal{}, user.FinancialGoals...)
	if user.LastLogin != nil {
		t := *user.LastLogin
		user.LastLogin = &t
	}
	return user
}

package storage

import (
	"context"
	"errors"

	"github.com/carmelita/carmelita-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConstraint indicates a write was refused by a store invariant, such as
// a negative credit balance.
var ErrConstraint = errors.New("constraint violation")

// UserStore captures persistence operations needed by handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, id string, profile models.Profile) (models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// CreditTx is the view of a user record inside a single transaction. Reads
// observe the transaction's own writes; nothing is visible to other callers
// until the transaction commits.
type CreditTx interface {
	Credits(ctx context.Context, userID string) (int64, error)
	SetCredits(ctx context.Context, userID string, credits int64) error
	AppendTransaction(ctx context.Context, entry models.CreditTransaction) error
}

// LedgerStore runs read-modify-write transactions over credit balances.
type LedgerStore interface {
	// RunInTx executes fn atomically. If fn returns an error nothing is
	// committed and the error is returned unchanged. Implementations may
	// call fn more than once when a write conflict forces a retry.
	RunInTx(ctx context.Context, fn func(tx CreditTx) error) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	UserStore
	LedgerStore
	Close()
}

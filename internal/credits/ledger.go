// Package credits implements the Carmelita credit (CC) ledger: grants from
// completed payments and redemptions for services, each applied as one
// read-check-write store transaction.
package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/metrics"
	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/storage"
)

var (
	// ErrInsufficientCredits is returned when a redemption costs more than the balance.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidAmount is returned for negative grants and non-positive costs.
	ErrInvalidAmount = errors.New("invalid credit amount")
)

// Grant describes credits bought through a completed payment.
type Grant struct {
	UserID     string
	Credits    int64
	AmountPaid int64
	Reference  string
}

// Redemption describes credits spent on a service.
type Redemption struct {
	UserID       string
	Cost         int64
	ResourceType string
}

// Ledger applies balance changes through a storage.LedgerStore.
type Ledger struct {
	store storage.LedgerStore
	log   *logging.Logger
}

// NewLedger constructs a ledger over store.
func NewLedger(store storage.LedgerStore, log *logging.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Grant adds g.Credits to the user's balance and records a purchase entry.
// It returns the balance after the grant.
func (l *Ledger) Grant(ctx context.Context, g Grant) (int64, error) {
	if g.UserID == "" || g.Credits < 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := l.store.RunInTx(ctx, func(tx storage.CreditTx) error {
		current, err := tx.Credits(ctx, g.UserID)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		balance = current + g.Credits
		if err := tx.SetCredits(ctx, g.UserID, balance); err != nil {
			return fmt.Errorf("write balance: %w", err)
		}
		return tx.AppendTransaction(ctx, models.CreditTransaction{
			ID:        uuid.NewString(),
			UserID:    g.UserID,
			Type:      models.CreditPurchase,
			Amount:    g.Credits,
			Cost:      g.AmountPaid,
			Reference: g.Reference,
		})
	})
	if err != nil {
		metrics.RecordCreditOperation("grant", "error", 0)
		return 0, err
	}

	metrics.RecordCreditOperation("grant", "success", g.Credits)
	l.log.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":   g.UserID,
		"credits":   g.Credits,
		"balance":   balance,
		"reference": g.Reference,
	}).Info("credits granted")
	return balance, nil
}

// Redeem subtracts r.Cost from the user's balance if the balance covers it
// and records a redemption entry. It returns the balance after the debit.
// A missing user record is treated as a zero balance.
func (l *Ledger) Redeem(ctx context.Context, r Redemption) (int64, error) {
	if r.UserID == "" || r.Cost <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := l.store.RunInTx(ctx, func(tx storage.CreditTx) error {
		current, err := tx.Credits(ctx, r.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrInsufficientCredits
			}
			return fmt.Errorf("read balance: %w", err)
		}
		if current < r.Cost {
			return ErrInsufficientCredits
		}
		balance = current - r.Cost
		if err := tx.SetCredits(ctx, r.UserID, balance); err != nil {
			return fmt.Errorf("write balance: %w", err)
		}
		return tx.AppendTransaction(ctx, models.CreditTransaction{
			ID:          uuid.NewString(),
			UserID:      r.UserID,
			Type:        models.CreditRedemption,
			Amount:      -r.Cost,
			Cost:        r.Cost,
			ServiceUsed: r.ResourceType,
		})
	})
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		metrics.RecordCreditOperation("redeem", "insufficient", 0)
		return 0, err
	case err != nil:
		metrics.RecordCreditOperation("redeem", "error", 0)
		return 0, err
	}

	metrics.RecordCreditOperation("redeem", "success", r.Cost)
	l.log.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":  r.UserID,
		"cost":     r.Cost,
		"resource": r.ResourceType,
		"balance":  balance,
	}).Info("credits redeemed")
	return balance, nil
}

// History returns the user's most recent ledger entries.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.ListTransactions(ctx, userID, limit)
}

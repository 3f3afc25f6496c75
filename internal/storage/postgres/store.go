package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// maxTxAttempts bounds retries of a credit transaction that lost a
// serialization race.
const maxTxAttempts = 5

// Store provides Postgres-backed persistence for users and the credit ledger.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'USER',
			business_type TEXT NOT NULL DEFAULT '',
			financial_goals JSONB NOT NULL DEFAULT '[]'::jsonb,
			credits BIGINT NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login TIMESTAMPTZ
		);`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS last_login TIMESTAMPTZ;`,
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'users_credits_non_negative') THEN
				ALTER TABLE users ADD CONSTRAINT users_credits_non_negative CHECK (credits >= 0);
			END IF;
		END $$;`,
		`CREATE TABLE IF NOT EXISTS credit_transactions (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			cost BIGINT NOT NULL DEFAULT 0,
			service_used TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS credit_transactions_user_idx ON credit_transactions (user_id, created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, email, name, role, business_type, financial_goals, credits, password_hash, created_at, last_login`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	goals, err := encodeGoals(user.FinancialGoals)
	if err != nil {
		return models.User{}, err
	}
	query := `
		INSERT INTO users (id, email, name, role, business_type, financial_goals, credits, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name, string(user.Role), user.BusinessType, goals, user.Credits, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByID fetches a user by identity key.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	return scanUser(row)
}

// UpdateProfile overwrites the user-editable fields. The credit balance is untouched.
func (s *Store) UpdateProfile(ctx context.Context, id string, profile models.Profile) (models.User, error) {
	goals, err := encodeGoals(profile.FinancialGoals)
	if err != nil {
		return models.User{}, err
	}
	query := `
		UPDATE users SET name = $2, business_type = $3, financial_goals = $4::jsonb
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, query, id, profile.Name, profile.BusinessType, goals))
}

// TouchLastLogin stamps the user's last login time.
func (s *Store) TouchLastLogin(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RunInTx runs fn inside a SERIALIZABLE transaction, retrying on
// serialization failures and deadlocks.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.CreditTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(&creditTx{tx: tx})
		})
		if !retryable(err) {
			return mapConstraint(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("credit transaction aborted after %d attempts: %w", maxTxAttempts, err)
}

// ListTransactions returns the newest ledger entries for a user.
func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	const query = `
		SELECT id::text, user_id, type, amount, cost, service_used, reference, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.CreditTransaction, 0)
	for rows.Next() {
		var entry models.CreditTransaction
		var kind string
		if err := rows.Scan(&entry.ID, &entry.UserID, &kind, &entry.Amount, &entry.Cost, &entry.ServiceUsed, &entry.Reference, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Type = models.CreditTransactionType(kind)
		out = append(out, entry)
	}
	return out, rows.Err()
}

type creditTx struct {
	tx pgx.Tx
}

func (c *creditTx) Credits(ctx context.Context, userID string) (int64, error) {
	var credits int64
	err := c.tx.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	return credits, err
}

func (c *creditTx) SetCredits(ctx context.Context, userID string, credits int64) error {
	tag, err := c.tx.Exec(ctx, `UPDATE users SET credits = $2 WHERE id = $1`, userID, credits)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *creditTx) AppendTransaction(ctx context.Context, entry models.CreditTransaction) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		id = uuid.New()
	}
	_, err = c.tx.Exec(ctx, `
		INSERT INTO credit_transactions (id, user_id, type, amount, cost, service_used, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.String(), entry.UserID, string(entry.Type), entry.Amount, entry.Cost, entry.ServiceUsed, entry.Reference)
	return err
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return fmt.Errorf("%w: %s", storage.ErrConstraint, pgErr.ConstraintName)
	}
	return err
}

func encodeGoals(goals []models.FinancialGoal) (string, error) {
	if goals == nil {
		goals = []models.FinancialGoal{}
	}
	raw, err := json.Marshal(goals)
	if err != nil {
		return "", fmt.Errorf("encode financial goals: %w", err)
	}
	return string(raw), nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	var goals []byte
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.BusinessType, &goals, &user.Credits, &user.PasswordHash, &user.CreatedAt, &user.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	user.FinancialGoals = []models.FinancialGoal{}
	if len(goals) > 0 {
		if err := json.Unmarshal(goals, &user.FinancialGoals); err != nil {
			return models.User{}, fmt.Errorf("decode financial goals: %w", err)
		}
	}
	return user, nil
}

// Package postgres is the PostgreSQL backend. Every operation runs in one
// transaction. Multi-resource writes lock the purchase order row first, then
// product rows in ascending id order, then the supplier row. Serialization
// failures and deadlocks are retried a bounded number of times and then
// surfaced as apperr.Conflict.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	now  func() time.Time

	maxAttempts        int
	initialReliability float64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithInitialReliability(score float64) Option {
	return func(s *Store) { s.initialReliability = score }
}

// WithMaxAttempts bounds how often a conflicting transaction is run.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func New(pool *pgxpool.Pool, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		pool:               pool,
		log:                log,
		now:                time.Now,
		maxAttempts:        3,
		initialReliability: 100,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newID() string { return uuid.NewString() }

// withTx runs fn in a transaction, retrying on serialization failure or
// deadlock. fn may run more than once and must not keep state across runs.
func (s *Store) withTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.runTx(ctx, opts, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		s.log.Warn("tx conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return apperr.Conflict(err, "transaction conflicted %d times", s.maxAttempts)
}

func (s *Store) runTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 10 * time.Millisecond
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// constraintErr translates integrity violations into validation errors;
// anything else is returned wrapped as an internal error.
func constraintErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			switch pgErr.ConstraintName {
			case "categories_name_key":
				return apperr.Validation("category name already exists")
			case "products_barcode_key":
				return apperr.Validation("barcode already in use")
			}
			return apperr.Validation("duplicate value violates %s", pgErr.ConstraintName)
		case codeForeignKeyViolation, codeCheckViolation:
			return apperr.Validation("%s violates %s", op, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isForeignKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

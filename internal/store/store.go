// Package store is the transactional store: it owns the database/sql
// handle, the withTx(Serializable, fn) contract, and one repository type per
// aggregate returning fully-hydrated values (no lazy relations; list methods
// such as OrderRepo.ListByRestaurant load each aggregate with its own
// queries) per the design note in favor of explicit named repository methods.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"foodcourt/internal/apperr"
	"foodcourt/internal/logger"

	"go.uber.org/zap"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, letting repository
// methods run either standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a *sql.DB and exposes the withTx contract plus one repository
// value per aggregate.
type Store struct {
	DB *sql.DB

	Outbox      *OutboxRepo
	Principals  *PrincipalRepo
	Foodcourts  *FoodcourtRepo
	Restaurants *RestaurantRepo
	Tables      *TableRepo
	Orders      *OrderRepo
	Payments    *PaymentRepo
	Employees   *EmployeeRepo
	Shifts      *ShiftRepo
	Invites     *InviteRepo
	Sessions    *SessionRepo
}

// ParseDatabaseURL validates a DATABASE_URL of the form "postgresql://..."
// (or "postgres://...") into a database/sql driver name and DSN. Postgres
// is the only supported engine: the schema and the repositories lean on
// SERIALIZABLE isolation, SELECT FOR UPDATE, and partial unique indexes.
func ParseDatabaseURL(raw string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "postgresql://"), strings.HasPrefix(raw, "postgres://"):
		return "postgres", raw, nil
	default:
		return "", "", fmt.Errorf("unrecognized DATABASE_URL scheme: %s (use postgresql://)", raw)
	}
}

// Open opens the database and wires every repository.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{DB: db}
	s.Outbox = &OutboxRepo{}
	s.Principals = &PrincipalRepo{}
	s.Foodcourts = &FoodcourtRepo{}
	s.Restaurants = &RestaurantRepo{}
	s.Tables = &TableRepo{}
	s.Orders = &OrderRepo{}
	s.Payments = &PaymentRepo{}
	s.Employees = &EmployeeRepo{}
	s.Shifts = &ShiftRepo{}
	s.Invites = &InviteRepo{}
	s.Sessions = &SessionRepo{}
	return s, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// isSerializationFailure recognizes Postgres SQLSTATE 40001, the only
// error class callers should retry.
func isSerializationFailure(err error) bool {
	return matchesPQCode(err, "40001")
}

// WithTx runs fn inside a single SERIALIZABLE transaction, committing on
// success and rolling back on error or panic. A serialization failure,
// whether raised by a statement inside fn or by the commit, comes back as a
// Conflict. Callers that need the bounded retry policy should use
// WithSerializableRetry instead.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	tx, err := s.DB.BeginTx(ctx, opts)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "begin transaction", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logger.GetLogger(ctx).Warn("[STORE] action=rollback_failed", zap.Error(rerr))
		}
		if isSerializationFailure(err) && !apperr.Is(err, apperr.Conflict) {
			return apperr.Wrap(apperr.Conflict, "serialization conflict", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return apperr.Wrap(apperr.Conflict, "serialization conflict", err)
		}
		return apperr.Wrap(apperr.Internal, "commit transaction", err)
	}
	return nil
}

// RetryBackoff is the bounded backoff schedule: up to 3 retries after the
// first attempt, with 20/100/500ms base delays plus jitter.
var RetryBackoff = []time.Duration{20 * time.Millisecond, 100 * time.Millisecond, 500 * time.Millisecond}

// WithSerializableRetry runs fn inside WithTx once and then retries it up to
// len(RetryBackoff) more times (at most 4 runs), retrying only on a Conflict
// caused by a serialization failure. Once retries are exhausted, the last
// Conflict is returned to the caller.
func (s *Store) WithSerializableRetry(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(RetryBackoff); attempt++ {
		err := s.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !apperr.Is(err, apperr.Conflict) || !isSerializationFailure(err) {
			return err
		}
		lastErr = err
		if attempt == len(RetryBackoff) {
			break
		}
		base := RetryBackoff[attempt]
		jitter := time.Duration(rand.Int63n(int64(base) / 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base + jitter):
		}
	}
	return lastErr
}

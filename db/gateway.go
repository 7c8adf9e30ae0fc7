package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Gateway is the narrow data-access surface used by the repositories.
// Queries use '?' placeholders and are rebound for the active driver.
// Get returns sql.ErrNoRows when the query yields nothing.
type Gateway interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	All(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

type executor struct {
	q queryer
}

func (e executor) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return e.q.GetContext(ctx, dest, e.q.Rebind(query), args...)
}

func (e executor) All(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return e.q.SelectContext(ctx, dest, e.q.Rebind(query), args...)
}

func (e executor) Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return e.q.ExecContext(ctx, e.q.Rebind(query), args...)
}

// Store owns the connection pool. It is created once in main and handed to
// every repository.
type Store struct {
	db     *sqlx.DB
	driver string
	logger zerolog.Logger
}

func (s *Store) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return executor{q: s.db}.Get(ctx, dest, query, args...)
}

func (s *Store) All(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return executor{q: s.db}.All(ctx, dest, query, args...)
}

func (s *Store) Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return executor{q: s.db}.Run(ctx, query, args...)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise. fn must only use the Gateway it is
// given; the SQLite store has a single connection.
func (s *Store) WithTx(ctx context.Context, fn func(tx Gateway) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(executor{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connect opens the store for the given driver, verifies it within timeout
// and applies pending migrations.
func Connect(ctx context.Context, driver, dsn string, timeout time.Duration, logger zerolog.Logger) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection serializes writers.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err = conn.PingContext(pingCtx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close database handle after ping error")
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	store := &Store{db: conn, driver: driver, logger: logger}
	if err := store.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info().Str("driver", driver).Msg("database connection established")
	return store, nil
}

// sqlitePragmas are applied by mattn/go-sqlite3 to every connection it
// opens. Values already present in the DSN win.
var sqlitePragmas = []struct {
	param string
	value string
}{
	{"_journal_mode", "WAL"},
	{"_synchronous", "NORMAL"},
	{"_busy_timeout", "5000"},
	{"_foreign_keys", "on"},
}

func sqliteDSN(dsn string) (string, error) {
	path, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid sqlite DSN parameters: %w", err)
	}
	for _, pragma := range sqlitePragmas {
		if query.Get(pragma.param) == "" {
			query.Set(pragma.param, pragma.value)
		}
	}
	return path + "?" + query.Encode(), nil
}

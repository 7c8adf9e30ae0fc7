package db

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Connect(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "arcade.db"), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	store, err := Connect(context.Background(), "mysql", "ignored", time.Second, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConnectAppliesMigrations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var tables []string
	err := store.All(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name IN (?, ?, ?, ?) ORDER BY name`,
		"matches", "tournament_participants", "tournaments", "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"matches", "tournament_participants", "tournaments", "users"}, tables)

	assert.Equal(t, DriverSQLite, store.Driver())
	assert.NoError(t, store.Ping(ctx))
}

func TestSQLiteDSNKeepsCallerParams(t *testing.T) {
	dsn, err := sqliteDSN("file:arcade.db?cache=shared&_busy_timeout=100")
	require.NoError(t, err)

	path, rawQuery, found := strings.Cut(dsn, "?")
	require.True(t, found)
	assert.Equal(t, "file:arcade.db", path)

	query, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	assert.Equal(t, "shared", query.Get("cache"))
	assert.Equal(t, "100", query.Get("_busy_timeout"))
	assert.Equal(t, "on", query.Get("_foreign_keys"))
	assert.Equal(t, "WAL", query.Get("_journal_mode"))
}

func TestSQLitePragmasSurviveReconnect(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Without idle connections every query runs on a freshly opened one.
	store.db.SetMaxIdleConns(0)

	for i := 0; i < 2; i++ {
		var foreignKeys, busyTimeout int
		require.NoError(t, store.Get(ctx, &foreignKeys, `PRAGMA foreign_keys`))
		require.NoError(t, store.Get(ctx, &busyTimeout, `PRAGMA busy_timeout`))
		assert.Equal(t, 1, foreignKeys)
		assert.Equal(t, 5000, busyTimeout)
	}

	_, err := store.Run(ctx, `INSERT INTO tournaments (creator_id, status) VALUES (?, ?)`, 999, "open")
	assert.Error(t, err, "foreign keys are enforced on a new connection")
}

func TestGatewayGetRunAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Run(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, "ana", "ana@example.com")
	require.NoError(t, err)

	var username string
	require.NoError(t, store.Get(ctx, &username, `SELECT username FROM users WHERE email = ?`, "ana@example.com"))
	assert.Equal(t, "ana", username)

	err = store.Get(ctx, &username, `SELECT username FROM users WHERE email = ?`, "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWithTxCommits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx Gateway) error {
		_, err := tx.Run(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, "bo", "bo@example.com")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, store.Get(ctx, &count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := store.WithTx(ctx, func(tx Gateway) error {
		if _, err := tx.Run(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, "cy", "cy@example.com"); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	var count int
	require.NoError(t, store.Get(ctx, &count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 0, count)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(tx Gateway) error {
			_, _ = tx.Run(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, "di", "di@example.com")
			panic("unexpected")
		})
	})

	var count int
	require.NoError(t, store.Get(ctx, &count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 0, count)
}

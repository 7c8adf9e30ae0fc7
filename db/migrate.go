package db

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var embedMigrations embed.FS

// Migrate applies the embedded migrations for the store's driver.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{logger: s.logger})

	if err := goose.SetDialect(s.driver); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, s.db.DB, path.Join("migrations", s.driver)); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	s.logger.Info().Str("driver", s.driver).Msg("migrations completed successfully")
	return nil
}

type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Str("component", "goose").Msgf(strings.TrimSpace(format), v...)
}

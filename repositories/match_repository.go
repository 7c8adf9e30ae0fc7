package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchPlayerInvalid = errors.New("match player or winner reference is invalid")
	ErrMatchScoreInvalid  = errors.New("match scores must not be negative")
)

type MatchRepository interface {
	Create(ctx context.Context, exec db.Gateway, match *models.Match) error
	GetByID(ctx context.Context, exec db.Gateway, id int64) (*models.Match, error)
	TournamentRecord(ctx context.Context, userID int64, name string) (models.TournamentRecord, error)
	ListByPlayerName(ctx context.Context, name string, limit int) ([]models.Match, error)
	StatsByPlayerName(ctx context.Context, name string) (models.PlayerStats, error)
}

type sqlMatchRepository struct {
	db db.Gateway
}

func NewMatchRepository(gateway db.Gateway) MatchRepository {
	return &sqlMatchRepository{db: gateway}
}

func (r *sqlMatchRepository) Create(ctx context.Context, exec db.Gateway, m *models.Match) error {
	executor := executorOr(exec, r.db)
	query := `
		INSERT INTO matches (
			player1_id, player2_id, player1_name, player2_name,
			winner_id, score_player1, score_player2, game_mode
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := executor.Get(ctx, &id, query,
		m.Player1ID, m.Player2ID, m.Player1Name, m.Player2Name,
		m.WinnerID, m.ScorePlayer1, m.ScorePlayer2, m.GameMode,
	)
	if err != nil {
		if v, ok := asConstraintViolation(err); ok {
			switch v.kind {
			case violationForeignKey:
				return ErrMatchPlayerInvalid
			case violationCheck:
				return ErrMatchScoreInvalid
			}
		}
		return fmt.Errorf("failed to create match: %w", err)
	}

	created, err := r.GetByID(ctx, executor, id)
	if err != nil {
		return err
	}
	*m = *created
	return nil
}

const selectMatchSQL = `
	SELECT id, player1_id, player2_id, player1_name, player2_name,
	       winner_id, score_player1, score_player2, game_mode, played_at
	FROM matches`

func (r *sqlMatchRepository) GetByID(ctx context.Context, exec db.Gateway, id int64) (*models.Match, error) {
	var m models.Match
	if err := executorOr(exec, r.db).Get(ctx, &m, selectMatchSQL+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &m, nil
}

// TournamentRecord counts decided tournament matches in which name played and
// how many of them userID won.
func (r *sqlMatchRepository) TournamentRecord(ctx context.Context, userID int64, name string) (models.TournamentRecord, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0) AS wins
		FROM matches
		WHERE game_mode = ?
		  AND winner_id IS NOT NULL
		  AND (player1_name = ? OR player2_name = ?)`

	var record models.TournamentRecord
	if err := r.db.Get(ctx, &record, query, userID, models.GameModeTournament, name, name); err != nil {
		return models.TournamentRecord{}, fmt.Errorf("failed to aggregate tournament record for %q: %w", name, err)
	}
	return record, nil
}

func (r *sqlMatchRepository) ListByPlayerName(ctx context.Context, name string, limit int) ([]models.Match, error) {
	query := selectMatchSQL + `
		WHERE player1_name = ? OR player2_name = ?
		ORDER BY played_at DESC, id DESC
		LIMIT ?`

	matches := make([]models.Match, 0)
	if err := r.db.All(ctx, &matches, query, name, name, limit); err != nil {
		return nil, fmt.Errorf("failed to list matches for %q: %w", name, err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) StatsByPlayerName(ctx context.Context, name string) (models.PlayerStats, error) {
	query := `
		SELECT
			COUNT(*) AS played,
			COALESCE(SUM(CASE
				WHEN player1_name = ? AND score_player1 > score_player2 THEN 1
				WHEN player2_name = ? AND score_player2 > score_player1 THEN 1
				ELSE 0 END), 0) AS wins,
			COALESCE(SUM(CASE WHEN score_player1 = score_player2 THEN 1 ELSE 0 END), 0) AS draws
		FROM matches
		WHERE player1_name = ? OR player2_name = ?`

	var stats models.PlayerStats
	if err := r.db.Get(ctx, &stats, query, name, name, name, name); err != nil {
		return models.PlayerStats{}, fmt.Errorf("failed to aggregate stats for %q: %w", name, err)
	}
	stats.Name = name
	stats.Losses = stats.Played - stats.Wins - stats.Draws
	return stats, nil
}

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
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentCreatorConflict = errors.New("creator already owns a tournament")
	ErrTournamentInvalidCreator  = errors.New("invalid creator reference")
	ErrTournamentInUse           = errors.New("tournament still has participants")
)

// TournamentRepository methods taking an exec run on that transaction, or
// on the store when exec is nil.
type TournamentRepository interface {
	Create(ctx context.Context, exec db.Gateway, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec db.Gateway, id int64) (*models.Tournament, error)
	GetByCreator(ctx context.Context, creatorID int64) (*models.Tournament, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.OpenTournament, error)
	UpdateStatus(ctx context.Context, exec db.Gateway, id int64, status models.TournamentStatus) error
	Lock(ctx context.Context, exec db.Gateway, id int64) error
	Delete(ctx context.Context, exec db.Gateway, id int64) error
}

type sqlTournamentRepository struct {
	db db.Gateway
}

func NewTournamentRepository(gateway db.Gateway) TournamentRepository {
	return &sqlTournamentRepository{db: gateway}
}

func (r *sqlTournamentRepository) Create(ctx context.Context, exec db.Gateway, t *models.Tournament) error {
	executor := executorOr(exec, r.db)
	query := `
		INSERT INTO tournaments (creator_id, status)
		VALUES (?, ?)
		RETURNING id`

	var id int64
	if err := executor.Get(ctx, &id, query, t.CreatorID, t.Status); err != nil {
		return r.handleTournamentError(err, ErrTournamentInvalidCreator)
	}

	created, err := r.findOne(ctx, executor, selectTournamentSQL+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

const selectTournamentSQL = `SELECT id, creator_id, status, created_at FROM tournaments`

func (r *sqlTournamentRepository) GetByID(ctx context.Context, exec db.Gateway, id int64) (*models.Tournament, error) {
	return r.findOne(ctx, executorOr(exec, r.db), selectTournamentSQL+` WHERE id = ?`, id)
}

func (r *sqlTournamentRepository) GetByCreator(ctx context.Context, creatorID int64) (*models.Tournament, error) {
	return r.findOne(ctx, r.db, selectTournamentSQL+` WHERE creator_id = ?`, creatorID)
}

func (r *sqlTournamentRepository) findOne(ctx context.Context, exec db.Gateway, query string, args ...interface{}) (*models.Tournament, error) {
	var t models.Tournament
	if err := exec.Get(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}
	return &t, nil
}

func (r *sqlTournamentRepository) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.OpenTournament, error) {
	query := `
		SELECT
			t.id, t.creator_id, t.status, t.created_at,
			COALESCE(u.display_name, u.username, '') AS creator_name,
			(SELECT COUNT(*) FROM tournament_participants p WHERE p.tournament_id = t.id) AS participant_count
		FROM tournaments t
		LEFT JOIN users u ON u.id = t.creator_id
		WHERE t.status = ?
		ORDER BY t.created_at DESC, t.id DESC`

	tournaments := make([]models.OpenTournament, 0)
	if err := r.db.All(ctx, &tournaments, query, status); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) UpdateStatus(ctx context.Context, exec db.Gateway, id int64, status models.TournamentStatus) error {
	result, err := executorOr(exec, r.db).Run(ctx, `UPDATE tournaments SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return r.handleTournamentError(err, ErrTournamentNotFound)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Lock takes a write lock on the tournament row for the rest of the
// transaction: a row lock on Postgres, the database write lock on SQLite.
func (r *sqlTournamentRepository) Lock(ctx context.Context, exec db.Gateway, id int64) error {
	result, err := executorOr(exec, r.db).Run(ctx, `UPDATE tournaments SET status = status WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to lock tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) Delete(ctx context.Context, exec db.Gateway, id int64) error {
	result, err := executorOr(exec, r.db).Run(ctx, `DELETE FROM tournaments WHERE id = ?`, id)
	if err != nil {
		return r.handleTournamentError(err, ErrTournamentInUse)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// handleTournamentError maps constraint failures. SQLite does not name the
// failing foreign key, so callers pass the error that fits their statement.
func (r *sqlTournamentRepository) handleTournamentError(err error, foreignKeyErr error) error {
	if err == nil {
		return nil
	}
	if v, ok := asConstraintViolation(err); ok {
		switch v.kind {
		case violationUnique:
			if v.mentions("tournaments_creator_id_key", "tournaments.creator_id") {
				return ErrTournamentCreatorConflict
			}
		case violationForeignKey:
			return foreignKeyErr
		}
	}
	return fmt.Errorf("tournament query failed: %w", err)
}

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
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant name or account already registered for this tournament")
	ErrParticipantCapacity          = errors.New("tournament has no free participant slot")
	ErrParticipantTypeViolation     = errors.New("participant must be either an account or an alias")
	ErrParticipantTournamentInvalid = errors.New("participant tournament or user reference is invalid")
)

// ParticipantRepository methods taking an exec run on that transaction, or
// on the store when exec is nil.
type ParticipantRepository interface {
	InsertIfCapacity(ctx context.Context, exec db.Gateway, p *models.Participant, capacity int) error
	ListByTournament(ctx context.Context, exec db.Gateway, tournamentID int64) ([]models.Participant, error)
	FindByUser(ctx context.Context, exec db.Gateway, tournamentID, userID int64) (*models.Participant, error)
	FindByName(ctx context.Context, exec db.Gateway, tournamentID int64, name string) (*models.Participant, error)
	Count(ctx context.Context, exec db.Gateway, tournamentID int64) (int, error)
	DeleteByUser(ctx context.Context, exec db.Gateway, tournamentID, userID int64) (int64, error)
	DeleteByName(ctx context.Context, exec db.Gateway, tournamentID int64, name string) (int64, error)
	DeleteByTournament(ctx context.Context, exec db.Gateway, tournamentID int64) error
}

type sqlParticipantRepository struct {
	db db.Gateway
}

func NewParticipantRepository(gateway db.Gateway) ParticipantRepository {
	return &sqlParticipantRepository{db: gateway}
}

// InsertIfCapacity inserts p only while the tournament has fewer than
// capacity participants. The count and the insert are one statement; run it
// after Lock on the tournament to serialize concurrent inserts.
func (r *sqlParticipantRepository) InsertIfCapacity(ctx context.Context, exec db.Gateway, p *models.Participant, capacity int) error {
	executor := executorOr(exec, r.db)
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, username, alias)
		SELECT CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS TEXT), CAST(? AS TEXT)
		WHERE (SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = ?) < ?
		RETURNING id`

	var id int64
	err := executor.Get(ctx, &id, query,
		p.TournamentID, p.UserID, p.Username, p.Alias,
		p.TournamentID, capacity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrParticipantCapacity
		}
		return r.handleParticipantError(err)
	}

	created, err := r.findOne(ctx, executor, selectParticipantSQL+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

const selectParticipantSQL = `
	SELECT id, tournament_id, user_id, username, alias, created_at
	FROM tournament_participants`

func (r *sqlParticipantRepository) ListByTournament(ctx context.Context, exec db.Gateway, tournamentID int64) ([]models.Participant, error) {
	participants := make([]models.Participant, 0, models.MaxParticipants)
	query := selectParticipantSQL + ` WHERE tournament_id = ? ORDER BY id ASC`
	if err := executorOr(exec, r.db).All(ctx, &participants, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list participants by tournament: %w", err)
	}
	return participants, nil
}

func (r *sqlParticipantRepository) FindByUser(ctx context.Context, exec db.Gateway, tournamentID, userID int64) (*models.Participant, error) {
	query := selectParticipantSQL + ` WHERE tournament_id = ? AND user_id = ?`
	return r.findOne(ctx, executorOr(exec, r.db), query, tournamentID, userID)
}

// FindByName matches the username of an account entrant or the alias of an
// alias entrant.
func (r *sqlParticipantRepository) FindByName(ctx context.Context, exec db.Gateway, tournamentID int64, name string) (*models.Participant, error) {
	query := selectParticipantSQL + ` WHERE tournament_id = ? AND COALESCE(username, alias) = ?`
	return r.findOne(ctx, executorOr(exec, r.db), query, tournamentID, name)
}

func (r *sqlParticipantRepository) findOne(ctx context.Context, exec db.Gateway, query string, args ...interface{}) (*models.Participant, error) {
	var p models.Participant
	if err := exec.Get(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return &p, nil
}

func (r *sqlParticipantRepository) Count(ctx context.Context, exec db.Gateway, tournamentID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = ?`
	if err := executorOr(exec, r.db).Get(ctx, &count, query, tournamentID); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// DeleteByUser removes an account entrant. Deleting an absent row is not an
// error; the number of removed rows is returned.
func (r *sqlParticipantRepository) DeleteByUser(ctx context.Context, exec db.Gateway, tournamentID, userID int64) (int64, error) {
	query := `DELETE FROM tournament_participants WHERE tournament_id = ? AND user_id = ?`
	return r.delete(ctx, executorOr(exec, r.db), query, tournamentID, userID)
}

func (r *sqlParticipantRepository) DeleteByName(ctx context.Context, exec db.Gateway, tournamentID int64, name string) (int64, error) {
	query := `DELETE FROM tournament_participants WHERE tournament_id = ? AND COALESCE(username, alias) = ?`
	return r.delete(ctx, executorOr(exec, r.db), query, tournamentID, name)
}

func (r *sqlParticipantRepository) DeleteByTournament(ctx context.Context, exec db.Gateway, tournamentID int64) error {
	query := `DELETE FROM tournament_participants WHERE tournament_id = ?`
	_, err := r.delete(ctx, executorOr(exec, r.db), query, tournamentID)
	return err
}

func (r *sqlParticipantRepository) delete(ctx context.Context, exec db.Gateway, query string, args ...interface{}) (int64, error) {
	result, err := exec.Run(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete participant: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows for participant deletion: %w", err)
	}
	return rowsAffected, nil
}

func (r *sqlParticipantRepository) handleParticipantError(err error) error {
	if v, ok := asConstraintViolation(err); ok {
		switch v.kind {
		case violationUnique:
			return ErrParticipantConflict
		case violationForeignKey:
			return ErrParticipantTournamentInvalid
		case violationCheck:
			return ErrParticipantTypeViolation
		}
	}
	return fmt.Errorf("failed to create participant: %w", err)
}

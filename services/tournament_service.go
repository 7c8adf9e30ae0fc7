package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/arcade-tournaments/brackets"
	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/Dosada05/arcade-tournaments/repositories"
	"github.com/rs/zerolog"
)

const maxAliasLength = 32

// Transactor runs fn in a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx db.Gateway) error) error
}

// Notifier receives tournament events for live subscribers.
type Notifier interface {
	Publish(tournamentID int64, eventType string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(int64, string, interface{}) {}

type TournamentService interface {
	CreateTournament(ctx context.Context, creatorID int64) (*models.Tournament, error)
	JoinTournament(ctx context.Context, tournamentID, userID int64) (*models.Participant, error)
	AddParticipantByAlias(ctx context.Context, tournamentID, requesterID int64, alias string) (*models.Participant, error)
	AddParticipantByUsername(ctx context.Context, tournamentID, requesterID int64, username string) (*models.Participant, error)
	RemoveParticipant(ctx context.Context, tournamentID, userID int64) error
	DeleteTournament(ctx context.Context, tournamentID, requesterID int64) error
	ResetParticipants(ctx context.Context, tournamentID, requesterID int64) (*models.Tournament, error)
	ListOpenTournaments(ctx context.Context) ([]models.OpenTournament, error)
	GetTournament(ctx context.Context, id int64) (*models.Tournament, error)
	GetTournamentByCreator(ctx context.Context, creatorID int64) (*models.Tournament, error)
	ListParticipants(ctx context.Context, tournamentID int64) ([]models.Participant, error)
}

type tournamentService struct {
	store           Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	notifier        Notifier
	logger          zerolog.Logger
}

func NewTournamentService(
	store Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	logger zerolog.Logger,
) TournamentService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &tournamentService{
		store:           store,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		logger:          logger.With().Str("service", "tournament").Logger(),
	}
}

// CreateTournament opens a tournament and enrolls the creator by username.
func (s *tournamentService) CreateTournament(ctx context.Context, creatorID int64) (*models.Tournament, error) {
	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, mapRepositoryError("load creator", err)
	}

	tournament := &models.Tournament{CreatorID: creatorID, Status: models.StatusOpen}
	participant := &models.Participant{UserID: &creator.ID, Username: &creator.Username}

	err = s.store.WithTx(ctx, func(tx db.Gateway) error {
		if err := s.tournamentRepo.Create(ctx, tx, tournament); err != nil {
			return err
		}
		participant.TournamentID = tournament.ID
		return s.participantRepo.InsertIfCapacity(ctx, tx, participant, models.MaxParticipants)
	})
	if err != nil {
		return nil, mapRepositoryError("create tournament", err)
	}

	tournament.Participants = []models.Participant{*participant}
	s.logger.Info().
		Int64("tournament_id", tournament.ID).
		Int64("creator_id", creatorID).
		Msg("tournament created")
	return tournament, nil
}

// JoinTournament enrolls the creator into their own tournament. Joining
// twice returns the existing entry.
func (s *tournamentService) JoinTournament(ctx context.Context, tournamentID, userID int64) (*models.Participant, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError("load user", err)
	}

	participant := &models.Participant{TournamentID: tournamentID, UserID: &user.ID, Username: &user.Username}
	err = s.store.WithTx(ctx, func(tx db.Gateway) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		existing, err := s.participantRepo.FindByUser(ctx, tx, tournamentID, userID)
		if err == nil {
			participant = existing
			return nil
		}
		if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}

		if tournament.CreatorID != userID {
			return ErrForbiddenOperation
		}
		return s.enrollLocked(ctx, tx, tournament, participant)
	})
	if err != nil {
		return nil, mapRepositoryError("join tournament", err)
	}

	s.notifyParticipants(tournamentID)
	return participant, nil
}

func (s *tournamentService) AddParticipantByAlias(ctx context.Context, tournamentID, requesterID int64, alias string) (*models.Participant, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" || utf8.RuneCountInString(alias) > maxAliasLength {
		return nil, ErrInvalidAlias
	}

	participant := &models.Participant{TournamentID: tournamentID, Alias: &alias}
	if err := s.addParticipant(ctx, tournamentID, requesterID, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *tournamentService) AddParticipantByUsername(ctx context.Context, tournamentID, requesterID int64, username string) (*models.Participant, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, mapRepositoryError("load user", err)
	}

	participant := &models.Participant{TournamentID: tournamentID, UserID: &user.ID, Username: &user.Username}
	if err := s.addParticipant(ctx, tournamentID, requesterID, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *tournamentService) addParticipant(ctx context.Context, tournamentID, requesterID int64, participant *models.Participant) error {
	err := s.store.WithTx(ctx, func(tx db.Gateway) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.CreatorID != requesterID {
			return ErrForbiddenOperation
		}
		return s.enrollLocked(ctx, tx, tournament, participant)
	})
	if err != nil {
		return mapRepositoryError("add participant", err)
	}

	s.logger.Info().
		Int64("tournament_id", tournamentID).
		Str("participant", participant.Name()).
		Bool("account", participant.IsAccount()).
		Msg("participant added")
	s.notifyParticipants(tournamentID)
	return nil
}

// lockTournament takes the tournament write lock and reads the row.
func (s *tournamentService) lockTournament(ctx context.Context, tx db.Gateway, tournamentID int64) (*models.Tournament, error) {
	if err := s.tournamentRepo.Lock(ctx, tx, tournamentID); err != nil {
		return nil, err
	}
	return s.tournamentRepo.GetByID(ctx, tx, tournamentID)
}

// enrollLocked inserts the participant. The tournament must be locked by tx.
// Names are unique per tournament across usernames and aliases.
func (s *tournamentService) enrollLocked(ctx context.Context, tx db.Gateway, tournament *models.Tournament, participant *models.Participant) error {
	if !tournament.IsOpen() {
		return ErrRegistrationClosed
	}

	if _, err := s.participantRepo.FindByName(ctx, tx, tournament.ID, participant.Name()); err == nil {
		return ErrParticipantNameConflict
	} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
		return err
	}

	return s.participantRepo.InsertIfCapacity(ctx, tx, participant, models.MaxParticipants)
}

// RemoveParticipant deletes an account entry. Removing an absent entry
// succeeds.
func (s *tournamentService) RemoveParticipant(ctx context.Context, tournamentID, userID int64) error {
	removed, err := s.participantRepo.DeleteByUser(ctx, nil, tournamentID, userID)
	if err != nil {
		return mapRepositoryError("remove participant", err)
	}
	if removed > 0 {
		s.notifyParticipants(tournamentID)
	}
	return nil
}

// DeleteTournament removes the tournament and all its participants
// atomically.
func (s *tournamentService) DeleteTournament(ctx context.Context, tournamentID, requesterID int64) error {
	err := s.store.WithTx(ctx, func(tx db.Gateway) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.CreatorID != requesterID {
			return ErrForbiddenOperation
		}
		if err := s.participantRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil {
			return err
		}
		return s.tournamentRepo.Delete(ctx, tx, tournamentID)
	})
	if err != nil {
		return mapRepositoryError("delete tournament", err)
	}

	s.logger.Info().Int64("tournament_id", tournamentID).Msg("tournament deleted")
	s.notifier.Publish(tournamentID, brackets.EventTournamentDeleted, map[string]int64{"tournament_id": tournamentID})
	return nil
}

// ResetParticipants empties the bracket, re-enrolls the creator and reopens
// registration.
func (s *tournamentService) ResetParticipants(ctx context.Context, tournamentID, requesterID int64) (*models.Tournament, error) {
	creator, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, mapRepositoryError("load creator", err)
	}

	var tournament *models.Tournament
	err = s.store.WithTx(ctx, func(tx db.Gateway) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.CreatorID != requesterID {
			return ErrForbiddenOperation
		}
		if err := s.participantRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusOpen); err != nil {
			return err
		}
		p := &models.Participant{TournamentID: tournamentID, UserID: &creator.ID, Username: &creator.Username}
		if err := s.participantRepo.InsertIfCapacity(ctx, tx, p, models.MaxParticipants); err != nil {
			return err
		}

		t.Status = models.StatusOpen
		t.Participants = []models.Participant{*p}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError("reset participants", err)
	}

	s.logger.Info().Int64("tournament_id", tournamentID).Msg("tournament participants reset")
	s.notifyParticipants(tournamentID)
	return tournament, nil
}

func (s *tournamentService) ListOpenTournaments(ctx context.Context) ([]models.OpenTournament, error) {
	tournaments, err := s.tournamentRepo.ListByStatus(ctx, models.StatusOpen)
	if err != nil {
		return nil, mapRepositoryError("list open tournaments", err)
	}
	return tournaments, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int64) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRepositoryError("get tournament", err)
	}
	return s.withParticipants(ctx, tournament)
}

func (s *tournamentService) GetTournamentByCreator(ctx context.Context, creatorID int64) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByCreator(ctx, creatorID)
	if err != nil {
		return nil, mapRepositoryError("get tournament by creator", err)
	}
	return s.withParticipants(ctx, tournament)
}

func (s *tournamentService) ListParticipants(ctx context.Context, tournamentID int64) ([]models.Participant, error) {
	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return tournament.Participants, nil
}

func (s *tournamentService) withParticipants(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournament.ID)
	if err != nil {
		return nil, mapRepositoryError("list participants", err)
	}
	tournament.Participants = participants
	return tournament, nil
}

func (s *tournamentService) notifyParticipants(tournamentID int64) {
	s.notifier.Publish(tournamentID, brackets.EventParticipantsUpdated, map[string]int64{"tournament_id": tournamentID})
}

// mapRepositoryError translates repository sentinels into service errors.
// Service errors pass through; anything else is wrapped as a storage failure.
func mapRepositoryError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentCreatorConflict):
		return ErrTournamentAlreadyOwned
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrParticipantConflict):
		return ErrParticipantNameConflict
	case errors.Is(err, repositories.ErrParticipantCapacity):
		return ErrTournamentFull
	case errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrTournamentInvalidCreator):
		return ErrUserNotFound
	case isServiceError(err):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isServiceError(err error) bool {
	for _, target := range []error{
		ErrTournamentNotFound, ErrParticipantNotFound, ErrUserNotFound,
		ErrForbiddenOperation, ErrNotMatchParticipant,
		ErrTournamentAlreadyOwned, ErrParticipantNameConflict, ErrTournamentFull,
		ErrInvalidBracketState, ErrUnexpectedPairing, ErrRegistrationClosed, ErrDrawNotAllowed,
		ErrInvalidAlias, ErrInvalidMatchResult, ErrInvalidGameMode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/arcade-tournaments/brackets"
	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/Dosada05/arcade-tournaments/repositories"
	"github.com/rs/zerolog"
)

// DrawPolicy decides the loser of a tournament match with equal scores.
type DrawPolicy string

const (
	DrawPolicyReject           DrawPolicy = "reject"
	DrawPolicyEliminatePlayer1 DrawPolicy = "eliminate_player1"
)

func (p DrawPolicy) Valid() bool {
	return p == DrawPolicyReject || p == DrawPolicyEliminatePlayer1
}

// WinnerRule decides when a tournament has a winner.
type WinnerRule string

const (
	// WinnerRuleSoleSurvivor declares the winner once one participant remains.
	WinnerRuleSoleSurvivor WinnerRule = "sole_survivor"
	// WinnerRuleFinalReached declares the first remaining participant the
	// winner as soon as the final pair is known.
	WinnerRuleFinalReached WinnerRule = "final_reached"
)

func (r WinnerRule) Valid() bool {
	return r == WinnerRuleSoleSurvivor || r == WinnerRuleFinalReached
}

type MatchPolicy struct {
	Draw   DrawPolicy
	Winner WinnerRule
}

func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{Draw: DrawPolicyReject, Winner: WinnerRuleSoleSurvivor}
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type MatchService interface {
	ValidateParticipants(ctx context.Context, tournamentID, requesterID int64, result models.MatchResult) (*models.Pairing, error)
	RecordMatch(ctx context.Context, result models.MatchResult, user1, user2 *models.User) (*models.Match, error)
	EliminateLoser(ctx context.Context, tournamentID, requesterID int64, result models.MatchResult) (string, error)
	SubmitTournamentResult(ctx context.Context, tournamentID, requesterID int64, result models.MatchResult) (*models.MatchOutcome, error)
	TournamentWinner(ctx context.Context, tournamentID int64) (*models.WinnerResult, error)
	RecordCasualMatch(ctx context.Context, requester models.AuthUser, mode models.GameMode, result models.MatchResult) (*models.Match, error)
	ListMatchHistory(ctx context.Context, name string, limit int) ([]models.Match, error)
	PlayerStats(ctx context.Context, name string) (*models.PlayerStats, error)
}

type matchService struct {
	store           Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	userRepo        repositories.UserRepository
	ranking         RankingService
	notifier        Notifier
	policy          MatchPolicy
	logger          zerolog.Logger
}

func NewMatchService(
	store Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	ranking RankingService,
	notifier Notifier,
	policy MatchPolicy,
	logger zerolog.Logger,
) MatchService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if policy.Draw == "" {
		policy.Draw = DrawPolicyReject
	}
	if policy.Winner == "" {
		policy.Winner = WinnerRuleSoleSurvivor
	}
	return &matchService{
		store:           store,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		userRepo:        userRepo,
		ranking:         ranking,
		notifier:        notifier,
		policy:          policy,
		logger:          logger.With().Str("service", "match").Logger(),
	}
}

// ValidateParticipants checks that the requester owns the tournament, that
// both players are live participants and that they are one of the pairs the
// bracket expects. It returns the pairing the result was checked against.
func (s *matchService) ValidateParticipants(ctx context.Context, tournamentID, requesterID int64, result models.MatchResult) (*models.Pairing, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepositoryError("get tournament", err)
	}
	if tournament.CreatorID != requesterID {
		return nil, ErrForbiddenOperation
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatchResult, err)
	}

	pairing, err := s.ranking.NextPairing(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if findRanked(pairing.Ranking, result.Player1Name) == nil || findRanked(pairing.Ranking, result.Player2Name) == nil {
		return nil, ErrParticipantNotFound
	}
	if !pairing.Expects(result.Player1Name, result.Player2Name) {
		return nil, ErrUnexpectedPairing
	}
	return pairing, nil
}

// RecordMatch stores a tournament match. It returns a nil match when neither
// side has an account.
func (s *matchService) RecordMatch(ctx context.Context, result models.MatchResult, user1, user2 *models.User) (*models.Match, error) {
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatchResult, err)
	}
	return s.recordMatch(ctx, nil, models.GameModeTournament, result, user1, user2)
}

func (s *matchService) recordMatch(ctx context.Context, exec db.Gateway, mode models.GameMode, result models.MatchResult, user1, user2 *models.User) (*models.Match, error) {
	if user1 == nil && user2 == nil {
		return nil, nil
	}

	match := &models.Match{
		Player1Name:  result.Player1Name,
		Player2Name:  result.Player2Name,
		ScorePlayer1: result.ScorePlayer1,
		ScorePlayer2: result.ScorePlayer2,
		GameMode:     mode,
	}
	if user1 != nil {
		match.Player1ID = &user1.ID
	}
	if user2 != nil {
		match.Player2ID = &user2.ID
	}
	if winner, ok := result.Winner(); ok {
		if winner == result.Player1Name {
			match.WinnerID = match.Player1ID
		} else {
			match.WinnerID = match.Player2ID
		}
	}

	if err := s.matchRepo.Create(ctx, exec, match); err != nil {
		if errors.Is(err, repositories.ErrMatchScoreInvalid) {
			return nil, ErrInvalidMatchResult
		}
		return nil, fmt.Errorf("record match: %w", err)
	}
	return match, nil
}

// loserOf applies the draw policy to results with equal scores.
func (s *matchService) loserOf(result models.MatchResult) (string, error) {
	if loser, ok := result.Loser(); ok {
		return loser, nil
	}
	if s.policy.Draw == DrawPolicyEliminatePlayer1 {
		return result.Player1Name, nil
	}
	return "", ErrDrawNotAllowed
}

// EliminateLoser removes the losing side from the tournament. Eliminating an
// already removed participant succeeds.
func (s *matchService) EliminateLoser(ctx context.Context, tournamentID, requesterID int64, result models.MatchResult) (string, error) {
	if err := result.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMatchResult, err)
	}
	loser, err := s.loserOf(result)
	if err != nil {
		return "", err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return "", mapRepositoryError("get tournament", err)
	}
	if tournament.CreatorID != requesterID {
		return "", ErrForbiddenOperation
	}

	removed, err := s.participantRepo.DeleteByName(ctx, nil, tournamentID, loser)
	if err != nil {
		return "", mapRepositoryError("eliminate loser", err)
	}
	if removed > 0 {
		s.logger.Info().Int64("tournament_id", tournamentID).Str("participant", loser).Msg("participant eliminated")
		s.notifier.Publish(tournamentID, brackets.EventParticipantsUpdated, map[string]string{"eliminated": loser})
	}
	return loser, nil
}

// SubmitTournamentResult validates a result against the expected pairing,
// then records the match, removes the loser and closes registration in one
// transaction.
func (s *matchService) SubmitTournamentResult(ctx context.Context, tournamentID, requesterID int64, result models.MatchResult) (*models.MatchOutcome, error) {
	pairing, err := s.ValidateParticipants(ctx, tournamentID, requesterID, result)
	if err != nil {
		return nil, err
	}
	loser, err := s.loserOf(result)
	if err != nil {
		return nil, err
	}

	user1 := findRanked(pairing.Ranking, result.Player1Name).Participant.Account()
	user2 := findRanked(pairing.Ranking, result.Player2Name).Participant.Account()

	outcome := &models.MatchOutcome{Eliminated: loser}
	var winner *models.WinnerResult
	err = s.store.WithTx(ctx, func(tx db.Gateway) error {
		if err := s.tournamentRepo.Lock(ctx, tx, tournamentID); err != nil {
			return err
		}
		// Another submission may have eliminated one of the players since
		// the pairing was computed.
		for _, name := range []string{result.Player1Name, result.Player2Name} {
			if _, err := s.participantRepo.FindByName(ctx, tx, tournamentID, name); err != nil {
				return err
			}
		}

		match, err := s.recordMatch(ctx, tx, models.GameModeTournament, result, user1, user2)
		if err != nil {
			return err
		}
		outcome.Match = match

		if _, err := s.participantRepo.DeleteByName(ctx, tx, tournamentID, loser); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusClosed); err != nil {
			return err
		}

		remaining, err := s.participantRepo.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		winner = s.decideWinner(tournamentID, remaining)
		outcome.Remaining = winner.Remaining
		return nil
	})
	if err != nil {
		return nil, mapRepositoryError("submit tournament result", err)
	}

	s.logger.Info().
		Int64("tournament_id", tournamentID).
		Str("round", string(pairing.Round)).
		Str("eliminated", loser).
		Int("remaining", outcome.Remaining).
		Msg("tournament result recorded")

	if winner.Decided {
		outcome.Winner = winner
	}

	s.notifier.Publish(tournamentID, brackets.EventBracketUpdated, outcome)
	if winner.Decided {
		s.logger.Info().
			Int64("tournament_id", tournamentID).
			Str("winner", winner.Winner.Name()).
			Msg("tournament winner decided")
		s.notifier.Publish(tournamentID, brackets.EventTournamentFinished, winner)
	}
	return outcome, nil
}

// TournamentWinner reports the winner according to the configured rule.
func (s *matchService) TournamentWinner(ctx context.Context, tournamentID int64) (*models.WinnerResult, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError("get tournament", err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepositoryError("list participants", err)
	}

	return s.decideWinner(tournamentID, participants), nil
}

// decideWinner applies the winner rule to the remaining participants.
func (s *matchService) decideWinner(tournamentID int64, participants []models.Participant) *models.WinnerResult {
	res := &models.WinnerResult{TournamentID: tournamentID, Remaining: len(participants)}
	switch {
	case len(participants) == 1:
		res.Decided = true
		res.Winner = &participants[0]
	case len(participants) == 2 && s.policy.Winner == WinnerRuleFinalReached:
		res.Decided = true
		res.Winner = &participants[0]
		res.Finalists = participants
	}
	return res
}

// RecordCasualMatch stores a pong or snake result reported by player1.
// Player2 is linked to an account when the name resolves to one.
func (s *matchService) RecordCasualMatch(ctx context.Context, requester models.AuthUser, mode models.GameMode, result models.MatchResult) (*models.Match, error) {
	if !mode.IsCasual() {
		return nil, ErrInvalidGameMode
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatchResult, err)
	}
	if result.Player1Name != requester.Username {
		return nil, ErrNotMatchParticipant
	}

	user1 := &models.User{ID: requester.ID, Username: requester.Username}
	user2, err := s.userRepo.GetByUsername(ctx, result.Player2Name)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("resolve player2: %w", err)
		}
		user2 = nil
	}

	return s.recordMatch(ctx, nil, mode, result, user1, user2)
}

func (s *matchService) ListMatchHistory(ctx context.Context, name string, limit int) ([]models.Match, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	matches, err := s.matchRepo.ListByPlayerName(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("list match history: %w", err)
	}
	return matches, nil
}

func (s *matchService) PlayerStats(ctx context.Context, name string) (*models.PlayerStats, error) {
	stats, err := s.matchRepo.StatsByPlayerName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	stats.WinRate = percentage(stats.Wins, stats.Played)
	return &stats, nil
}

func findRanked(ranking []models.RankedParticipant, name string) *models.RankedParticipant {
	for i := range ranking {
		if ranking[i].Name == name {
			return &ranking[i]
		}
	}
	return nil
}

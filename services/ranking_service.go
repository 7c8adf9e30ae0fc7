package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/arcade-tournaments/brackets"
	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/Dosada05/arcade-tournaments/repositories"
	"golang.org/x/sync/errgroup"
)

// RankingService scores participants from their tournament match history and
// derives the next pairing. It never writes.
type RankingService interface {
	WinRate(ctx context.Context, participant models.Participant) (float64, error)
	Rank(ctx context.Context, participants []models.Participant) ([]models.RankedParticipant, error)
	NextPairing(ctx context.Context, tournamentID int64) (*models.Pairing, error)
}

type rankingService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	matchRepo       repositories.MatchRepository
	seeder          brackets.Seeder
}

func NewRankingService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	seeder brackets.Seeder,
) RankingService {
	if seeder == nil {
		seeder = brackets.NewSingleEliminationSeeder()
	}
	return &rankingService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		matchRepo:       matchRepo,
		seeder:          seeder,
	}
}

// WinRate is the percentage of decided tournament matches the participant's
// account won. Aliases, unresolvable accounts and players without decided
// matches score 0.
func (s *rankingService) WinRate(ctx context.Context, participant models.Participant) (float64, error) {
	if !participant.IsAccount() || participant.Username == nil {
		return 0, nil
	}

	user, err := s.userRepo.GetByUsername(ctx, *participant.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("resolve participant %q: %w", participant.Name(), err)
	}

	record, err := s.matchRepo.TournamentRecord(ctx, user.ID, user.Username)
	if err != nil {
		return 0, fmt.Errorf("win rate for %q: %w", participant.Name(), err)
	}
	return percentage(record.Wins, record.Total), nil
}

// Rank orders participants by descending win rate, then by name in byte
// order. Names are unique within a tournament, so the order is total.
func (s *rankingService) Rank(ctx context.Context, participants []models.Participant) ([]models.RankedParticipant, error) {
	rates := make([]float64, len(participants))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range participants {
		g.Go(func() error {
			rate, err := s.WinRate(gctx, p)
			if err != nil {
				return err
			}
			rates[i] = rate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]models.RankedParticipant, len(participants))
	for i, p := range participants {
		ranked[i] = models.RankedParticipant{Name: p.Name(), WinRate: rates[i], Participant: p}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].WinRate != ranked[j].WinRate {
			return ranked[i].WinRate > ranked[j].WinRate
		}
		return ranked[i].Name < ranked[j].Name
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// NextPairing recomputes the pairing from the live participants. Eliminating
// a loser is what advances the bracket.
func (s *rankingService) NextPairing(ctx context.Context, tournamentID int64) (*models.Pairing, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError("get tournament", err)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepositoryError("list participants", err)
	}

	ranked, err := s.Rank(ctx, participants)
	if err != nil {
		return nil, fmt.Errorf("rank participants: %w", err)
	}

	return s.seeder.Seed(tournamentID, ranked)
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

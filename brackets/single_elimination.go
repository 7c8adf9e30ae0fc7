package brackets

import (
	"fmt"

	"github.com/Dosada05/arcade-tournaments/models"
)

// SingleEliminationSeeder pairs the top-ranked participant against the
// bottom-ranked one in a bracket of at most four.
type SingleEliminationSeeder struct{}

func NewSingleEliminationSeeder() Seeder {
	return SingleEliminationSeeder{}
}

func (SingleEliminationSeeder) Name() string {
	return "SingleElimination"
}

// Seed applies the fixed policy for the number of live participants:
//
//	4: #1 vs #4 now, #2 vs #3 next ("semi-final 1")
//	3: #1 has a bye, #2 vs #3 ("semi-final 2")
//	2: #1 vs #2 ("final")
func (SingleEliminationSeeder) Seed(tournamentID int64, ranked []models.RankedParticipant) (*models.Pairing, error) {
	pairing := &models.Pairing{
		TournamentID: tournamentID,
		Ranking:      ranked,
	}

	switch len(ranked) {
	case 4:
		pairing.Round = models.RoundSemiFinal1
		pairing.Current = models.Pair{Player1: ranked[0], Player2: ranked[3]}
		pairing.Upcoming = &models.Pair{Player1: ranked[1], Player2: ranked[2]}
	case 3:
		bye := ranked[0]
		pairing.Round = models.RoundSemiFinal2
		pairing.Current = models.Pair{Player1: ranked[1], Player2: ranked[2]}
		pairing.Bye = &bye
	case 2:
		pairing.Round = models.RoundFinal
		pairing.Current = models.Pair{Player1: ranked[0], Player2: ranked[1]}
	default:
		return nil, fmt.Errorf("%w: %d participants", ErrInvalidBracketState, len(ranked))
	}

	return pairing, nil
}

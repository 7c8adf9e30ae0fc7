package brackets

import (
	"errors"

	"github.com/Dosada05/arcade-tournaments/models"
)

var ErrInvalidBracketState = errors.New("unexpected number of participants for a bracket round")

// Seeder derives the next pairing from participants already ranked best
// first. Implementations are pure and persist nothing.
type Seeder interface {
	Seed(tournamentID int64, ranked []models.RankedParticipant) (*models.Pairing, error)
	Name() string
}

package models

// RoundLabel names the bracket round a pairing belongs to.
type RoundLabel string

const (
	RoundSemiFinal1 RoundLabel = "semi-final 1"
	RoundSemiFinal2 RoundLabel = "semi-final 2"
	RoundFinal      RoundLabel = "final"
)

type RankedParticipant struct {
	Rank        int         `json:"rank"`
	Name        string      `json:"name"`
	WinRate     float64     `json:"win_rate"`
	Participant Participant `json:"participant"`
}

type Pair struct {
	Player1 RankedParticipant `json:"player1"`
	Player2 RankedParticipant `json:"player2"`
}

// Matches reports whether the pair consists of the two names, in any order.
func (p Pair) Matches(a, b string) bool {
	return (p.Player1.Name == a && p.Player2.Name == b) ||
		(p.Player1.Name == b && p.Player2.Name == a)
}

// Pairing is derived from the ranked live participants on every request.
type Pairing struct {
	TournamentID int64               `json:"tournament_id"`
	Round        RoundLabel          `json:"round"`
	Current      Pair                `json:"current"`
	Upcoming     *Pair               `json:"upcoming,omitempty"`
	Bye          *RankedParticipant  `json:"bye,omitempty"`
	Ranking      []RankedParticipant `json:"ranking"`
}

// Expects reports whether a reported result is one of the announced pairs.
func (p Pairing) Expects(a, b string) bool {
	if p.Current.Matches(a, b) {
		return true
	}
	return p.Upcoming != nil && p.Upcoming.Matches(a, b)
}

// WinnerResult answers the winner query. Decided is false while the bracket
// is still being played.
type WinnerResult struct {
	TournamentID int64         `json:"tournament_id"`
	Decided      bool          `json:"decided"`
	Winner       *Participant  `json:"winner,omitempty"`
	Finalists    []Participant `json:"finalists,omitempty"`
	Remaining    int           `json:"remaining"`
}

// MatchOutcome is returned after a tournament result has been applied.
type MatchOutcome struct {
	Match      *Match        `json:"match,omitempty"`
	Eliminated string        `json:"eliminated"`
	Remaining  int           `json:"remaining"`
	Winner     *WinnerResult `json:"winner,omitempty"`
}

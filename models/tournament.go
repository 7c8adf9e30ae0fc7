package models

import "time"

// TournamentStatus mirrors the CHECK constraint on tournaments.status.
type TournamentStatus string

const (
	StatusOpen   TournamentStatus = "open"
	StatusClosed TournamentStatus = "closed"
)

// MaxParticipants is the bracket size of a tournament.
const MaxParticipants = 4

// Tournament is owned by its creator until deleted. Bracket progress is not
// stored here; it is derived from the live participant rows.
type Tournament struct {
	ID        int64            `json:"id" db:"id"`
	CreatorID int64            `json:"creator_id" db:"creator_id"`
	Status    TournamentStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	Participants []Participant `json:"participants,omitempty" db:"-"`
}

func (t Tournament) IsOpen() bool {
	return t.Status == StatusOpen
}

// OpenTournament is a listing row for tournaments accepting participants.
type OpenTournament struct {
	Tournament
	CreatorName      string `json:"creator_name" db:"creator_name"`
	ParticipantCount int    `json:"participant_count" db:"participant_count"`
}

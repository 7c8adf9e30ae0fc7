package models

import "time"

// Participant is a tournament entrant: either a registered account
// (UserID and Username set) or a free-form alias.
type Participant struct {
	ID           int64     `json:"id" db:"id"`
	TournamentID int64     `json:"tournament_id" db:"tournament_id"`
	UserID       *int64    `json:"user_id,omitempty" db:"user_id"`
	Username     *string   `json:"username,omitempty" db:"username"`
	Alias        *string   `json:"alias,omitempty" db:"alias"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Name is the identifier used for pairing, results and match history.
func (p Participant) Name() string {
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	if p.Alias != nil {
		return *p.Alias
	}
	return ""
}

func (p Participant) IsAccount() bool {
	return p.UserID != nil
}

// Account returns the linked account, or nil for alias entrants.
func (p Participant) Account() *User {
	if p.UserID == nil {
		return nil
	}
	u := &User{ID: *p.UserID}
	if p.Username != nil {
		u.Username = *p.Username
	}
	return u
}

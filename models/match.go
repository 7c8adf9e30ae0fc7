package models

import (
	"errors"
	"strings"
	"time"
)

type GameMode string

const (
	GameModePong       GameMode = "pong"
	GameModeSnake      GameMode = "snake"
	GameModeTournament GameMode = "tournament"
)

func (m GameMode) IsCasual() bool {
	return m == GameModePong || m == GameModeSnake
}

// Match is an append-only history row. WinnerID is nil for a draw or when the
// winning side has no account.
type Match struct {
	ID           int64     `json:"id" db:"id"`
	Player1ID    *int64    `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int64    `json:"player2_id,omitempty" db:"player2_id"`
	Player1Name  string    `json:"player1_name" db:"player1_name"`
	Player2Name  string    `json:"player2_name" db:"player2_name"`
	WinnerID     *int64    `json:"winner_id,omitempty" db:"winner_id"`
	ScorePlayer1 int       `json:"player1_score" db:"score_player1"`
	ScorePlayer2 int       `json:"player2_score" db:"score_player2"`
	GameMode     GameMode  `json:"game_mode" db:"game_mode"`
	PlayedAt     time.Time `json:"played_at" db:"played_at"`
}

// MatchResult is a reported result, keyed by player names.
type MatchResult struct {
	Player1Name  string `json:"player1_name"`
	Player2Name  string `json:"player2_name"`
	ScorePlayer1 int    `json:"player1_score"`
	ScorePlayer2 int    `json:"player2_score"`
}

func (r MatchResult) Validate() error {
	switch {
	case strings.TrimSpace(r.Player1Name) == "" || strings.TrimSpace(r.Player2Name) == "":
		return errors.New("both player names are required")
	case r.Player1Name == r.Player2Name:
		return errors.New("a player cannot play against themselves")
	case r.ScorePlayer1 < 0 || r.ScorePlayer2 < 0:
		return errors.New("scores must not be negative")
	}
	return nil
}

// Winner returns the name of the strictly higher scoring side.
func (r MatchResult) Winner() (string, bool) {
	switch {
	case r.ScorePlayer1 > r.ScorePlayer2:
		return r.Player1Name, true
	case r.ScorePlayer2 > r.ScorePlayer1:
		return r.Player2Name, true
	}
	return "", false
}

// Loser returns the name of the strictly lower scoring side.
func (r MatchResult) Loser() (string, bool) {
	switch {
	case r.ScorePlayer1 < r.ScorePlayer2:
		return r.Player1Name, true
	case r.ScorePlayer2 < r.ScorePlayer1:
		return r.Player2Name, true
	}
	return "", false
}

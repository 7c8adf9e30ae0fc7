package models

// PlayerStats aggregates every recorded match of a player name, all modes.
type PlayerStats struct {
	Name    string  `json:"name" db:"-"`
	Played  int     `json:"played" db:"played"`
	Wins    int     `json:"wins" db:"wins"`
	Draws   int     `json:"draws" db:"draws"`
	Losses  int     `json:"losses" db:"-"`
	WinRate float64 `json:"win_rate" db:"-"`
}

// TournamentRecord counts decided tournament matches of a player.
type TournamentRecord struct {
	Total int `db:"total"`
	Wins  int `db:"wins"`
}

// Package types contains the read shapes returned to API clients.
package types

import (
	"time"

	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/model"
)

// Entry is one leaderboard row.
type Entry = leaderboard.Entry

// Leaderboards maps a board name to its best entries.
type Leaderboards map[leaderboard.Kind][]Entry

// PendingMove is the move request a player is expected to answer.
type PendingMove struct {
	RequestID string    `json:"request_id"`
	GameID    string    `json:"game_id"`
	Kind      string    `json:"kind"`
	Deadline  time.Time `json:"deadline"`
}

// ActiveGame describes the game a player is seated in.
type ActiveGame struct {
	GameID   string     `json:"game_id"`
	Team     model.Team `json:"team"`
	Role     model.Role `json:"role"`
	Teammate string     `json:"teammate"`
	// WaitingOn is the player whose move the game awaits.
	WaitingOn  string    `json:"waiting_on,omitempty"`
	WaitingFor float64   `json:"waiting_for_seconds"`
	Since      time.Time `json:"since"`
}

// PlayerStatus is a player's view of itself.
type PlayerStatus struct {
	PlayerID   string             `json:"player_id"`
	Status     model.PlayerStatus `json:"status"`
	Spymaster  model.RoleStats    `json:"spymaster"`
	Operative  model.RoleStats    `json:"operative"`
	Combined   float64            `json:"combined_rating"`
	Waiting    bool               `json:"waiting"`
	Game       *ActiveGame        `json:"game,omitempty"`
	Pending    *PendingMove       `json:"pending,omitempty"`
	EndedGames []string           `json:"ended_games"`
}

// NewPlayerStatus fills the rating fields of a status from p.
func NewPlayerStatus(p model.Player) PlayerStatus {
	return PlayerStatus{
		PlayerID:   p.ID,
		Status:     p.Status,
		Spymaster:  p.Spymaster,
		Operative:  p.Operative,
		Combined:   p.Combined(),
		EndedGames: []string{},
	}
}

// GameList is a list of game ids.
type GameList struct {
	Games []string `json:"games"`
}

// ActiveCount is the number of games in progress.
type ActiveCount struct {
	Active int `json:"active"`
}

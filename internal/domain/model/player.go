package model

import "time"

// PlayerStatus is the liveness of a player.
type PlayerStatus string

const (
	StatusIdle         PlayerStatus = "idle"
	StatusWaiting      PlayerStatus = "waiting"
	StatusPlaying      PlayerStatus = "playing"
	StatusDisconnected PlayerStatus = "disconnected"
	StatusRemoved      PlayerStatus = "removed"
)

// RoleStats is a player's rating and record in one role.
type RoleStats struct {
	Rating float64 `json:"rating"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
}

// Player is a registered bot identity. Players are never deleted.
type Player struct {
	ID          string       `json:"id"`
	Spymaster   RoleStats    `json:"spymaster"`
	Operative   RoleStats    `json:"operative"`
	Status      PlayerStatus `json:"status"`
	CurrentGame string       `json:"current_game,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	// Version grows with every change; stores never replace a newer version.
	Version int64 `json:"version"`
}

// NewPlayer returns a player with both roles at rating.
func NewPlayer(id string, rating float64, now time.Time) *Player {
	return &Player{
		ID:        id,
		Spymaster: RoleStats{Rating: rating},
		Operative: RoleStats{Rating: rating},
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Stats returns a pointer to the stats of role.
func (p *Player) Stats(role Role) *RoleStats {
	if role == Spymaster {
		return &p.Spymaster
	}
	return &p.Operative
}

// Combined is the mean of both role ratings.
func (p *Player) Combined() float64 {
	return (p.Spymaster.Rating + p.Operative.Rating) / 2
}

// Package model contains domain models passed between layers.
package model

import "github.com/okian/codenames/internal/domain/board"

// Team is one side of a game.
type Team string

const (
	Red  Team = "red"
	Blue Team = "blue"
)

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == Red {
		return Blue
	}
	return Red
}

// Color returns the board color owned by the team.
func (t Team) Color() board.Color {
	if t == Red {
		return board.Red
	}
	return board.Blue
}

// TeamOf maps a team color to its team. ok is false for neutral and assassin.
func TeamOf(c board.Color) (Team, bool) {
	switch c {
	case board.Red:
		return Red, true
	case board.Blue:
		return Blue, true
	default:
		return "", false
	}
}

// Role is the seat a player holds within a team.
type Role string

const (
	Spymaster Role = "spymaster"
	Operative Role = "operative"
)

// Seat identifies a team and role.
type Seat struct {
	Team Team `json:"team"`
	Role Role `json:"role"`
}

// Pair is the two players of one team.
type Pair struct {
	Spymaster string `json:"spymaster"`
	Operative string `json:"operative"`
}

// Roster seats four distinct players.
type Roster struct {
	Red  Pair `json:"red"`
	Blue Pair `json:"blue"`
}

// Player returns the id seated at s.
func (r Roster) Player(s Seat) string {
	p := r.Red
	if s.Team == Blue {
		p = r.Blue
	}
	if s.Role == Spymaster {
		return p.Spymaster
	}
	return p.Operative
}

// SeatOf finds the seat held by playerID.
func (r Roster) SeatOf(playerID string) (Seat, bool) {
	for _, s := range Seats() {
		if r.Player(s) == playerID {
			return s, true
		}
	}
	return Seat{}, false
}

// Players lists the seated ids in seat order.
func (r Roster) Players() []string {
	return []string{r.Red.Spymaster, r.Red.Operative, r.Blue.Spymaster, r.Blue.Operative}
}

// Seats lists every seat in a fixed order.
func Seats() []Seat {
	return []Seat{
		{Team: Red, Role: Spymaster},
		{Team: Red, Role: Operative},
		{Team: Blue, Role: Spymaster},
		{Team: Blue, Role: Operative},
	}
}

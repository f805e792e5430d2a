// Package turn drives in-progress games by requesting moves from untrusted
// remote players under a hard deadline.
package turn

import (
	"context"
	"time"

	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/model"
)

// Kind is the kind of move a request expects.
type Kind string

const (
	KindClue  Kind = "clue"
	KindGuess Kind = "guess"
)

// KindFor returns the move kind a role makes.
func KindFor(role model.Role) Kind {
	if role == model.Spymaster {
		return KindClue
	}
	return KindGuess
}

// Request asks one player for one move.
type Request struct {
	ID       string    `json:"request_id"`
	GameID   string    `json:"game_id"`
	PlayerID string    `json:"player_id"`
	Kind     Kind      `json:"kind"`
	View     game.View `json:"view"`
	Deadline time.Time `json:"deadline"`
}

// Move is a player's reply. Word and Count are set for clues, Words for guesses.
type Move struct {
	RequestID string   `json:"request_id,omitempty"`
	Kind      Kind     `json:"kind"`
	Word      string   `json:"word,omitempty"`
	Count     int      `json:"count,omitempty"`
	Words     []string `json:"words,omitempty"`
}

// Mover reaches a remote player. RequestMove returns the player's reply or an
// error once ctx is done. Implementations need not be trusted to honor ctx;
// the Coordinator enforces the deadline on its own.
type Mover interface {
	RequestMove(ctx context.Context, req Request) (Move, error)
}

// Settler is implemented by movers that want to learn how a request ended:
// the outcome of the applied move, or the error that resolved the turn.
type Settler interface {
	Settle(req Request, out game.Outcome, err error)
}

package mailbox

import "errors"

var (
	// ErrNoPendingMove is returned when the player is not being asked for a move
	// in that game.
	ErrNoPendingMove = errors.New("no move pending")
	// ErrWrongKind is returned for a clue sent to a guess request or vice versa.
	ErrWrongKind = errors.New("wrong move kind")
	// ErrStaleRequest is returned for replies to a request that already ended.
	ErrStaleRequest = errors.New("stale move request")
)

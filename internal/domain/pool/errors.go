package pool

import (
	"errors"
	"fmt"
)

// ErrInconsistent is the parent of every pool rejection. A rejected call
// leaves the pool unchanged.
var ErrInconsistent = errors.New("pool inconsistency")

var (
	ErrAlreadyInGame       = fmt.Errorf("%w: player is already in a game", ErrInconsistent)
	ErrInsufficientPlayers = fmt.Errorf("%w: not enough distinct players waiting", ErrInconsistent)
	ErrUnknownGame         = fmt.Errorf("%w: unknown game", ErrInconsistent)
	ErrDuplicateGame       = fmt.Errorf("%w: game id already reserved", ErrInconsistent)
)

package game

import (
	"errors"
	"fmt"
)

// Rejections that leave the game untouched.
var (
	ErrIllegalState = errors.New("illegal state")
	ErrGameOver     = fmt.Errorf("%w: game is over", ErrIllegalState)
	ErrWrongPhase   = fmt.Errorf("%w: wrong phase", ErrIllegalState)
	ErrNotYourTurn  = fmt.Errorf("%w: not your turn", ErrIllegalState)
	ErrNotInGame    = errors.New("player is not seated in this game")
)

// Validation failures. These are returned after the forfeit has been applied.
var (
	ErrValidation   = errors.New("validation failed")
	ErrIllegalClue  = fmt.Errorf("%w: illegal clue", ErrValidation)
	ErrIllegalGuess = fmt.Errorf("%w: illegal guess", ErrValidation)
)

// ErrInvalidRoster is returned by New for rosters without four distinct players.
var ErrInvalidRoster = errors.New("invalid roster")

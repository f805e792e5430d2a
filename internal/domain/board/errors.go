package board

import "errors"

var (
	// ErrInsufficientCorpus is returned when fewer than Size distinct words are available.
	ErrInsufficientCorpus = errors.New("insufficient corpus")
	// ErrInvalidBoard is returned when words or colors break the board invariants.
	ErrInvalidBoard = errors.New("invalid board")
	// ErrUnknownColor is returned when decoding an unknown color name.
	ErrUnknownColor = errors.New("unknown color")
)

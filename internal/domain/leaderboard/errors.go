package leaderboard

import "errors"

var (
	ErrNotFound     = errors.New("player not ranked")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrUnknownBoard = errors.New("unknown leaderboard")
)

package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need a running service.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidPlayerID is returned for empty or malformed player ids.
	ErrInvalidPlayerID = errors.New("invalid player id")
	// ErrUnauthorized is returned when a player key does not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrGameNotFound is returned for game ids that are neither live nor stored.
	ErrGameNotFound = errors.New("game not found")
)

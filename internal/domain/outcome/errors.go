package outcome

import "errors"

var (
	// ErrUnknownPlayer is returned for ids that never registered.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrAlreadyRecorded is returned when a game's outcome was already applied.
	ErrAlreadyRecorded = errors.New("outcome already recorded")
	// ErrPersistence is returned when a write could not be queued. The write
	// is kept and retried; the in-memory outcome stands.
	ErrPersistence = errors.New("persistence write deferred")
)

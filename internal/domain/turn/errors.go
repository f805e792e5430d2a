package turn

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMoveTimeout is returned when no reply arrives before the deadline.
	ErrMoveTimeout = fmt.Errorf("move timed out: %w", context.DeadlineExceeded)
	// ErrMalformedMove is returned for replies of the wrong kind.
	ErrMalformedMove = errors.New("malformed move")
	// ErrAbandoned is returned when the game stops before the move was applied.
	ErrAbandoned = errors.New("game abandoned")
)

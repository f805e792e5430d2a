package turn

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/codenames/pkg/logger"
)

const defaultTimeout = 5 * time.Minute

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the per-move deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOnComplete registers the callback run once per game after it ends.
func WithOnComplete(fn CompletionFunc) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.onComplete = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock sets the time source used for deadlines.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator sets how move request ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func newRequestID() string { return uuid.NewString() }

package pool

import (
	"math/rand/v2"
	"time"

	"github.com/okian/codenames/pkg/logger"
)

// Strategy selects which waiting players form the next game.
type Strategy string

const (
	// Random draws uniformly among all waiting players.
	Random Strategy = "random"
	// FIFO takes the players that have waited longest.
	FIFO Strategy = "fifo"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithStrategy sets the selection strategy. Unknown values are ignored.
func WithStrategy(s Strategy) Option {
	return func(p *Pool) {
		if s == Random || s == FIFO {
			p.strategy = s
		}
	}
}

// WithRand sets the randomness source used for selection and seating.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pool) {
		if rng != nil {
			p.rng = rng
		}
	}
}

// WithClock sets the time source used for liveness tracking.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

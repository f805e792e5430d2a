// Package rating implements the Elo update used for both roles.
package rating

import "math"

const defaultK = 20

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithK sets the K-factor. Non-positive values are ignored.
func WithK(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithFloor clamps every updated rating to at least floor.
func WithFloor(floor float64) Option {
	return func(e *Engine) {
		e.floor = floor
		e.clamp = true
	}
}

// Engine computes Elo updates. It holds no state besides its settings and is
// safe for concurrent use.
type Engine struct {
	k     float64
	floor float64
	clamp bool
}

// NewEngine creates an Engine with K=20 and no floor unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{k: defaultK}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// K returns the configured K-factor.
func (e *Engine) K() float64 { return e.k }

// Expected returns the expected score of a against b.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// Update returns the new ratings of a and b after a game that a won when aWon
// is true and lost otherwise. Without a floor the update is zero-sum.
func (e *Engine) Update(ra, rb float64, aWon bool) (float64, float64) {
	sa := 0.0
	if aWon {
		sa = 1
	}
	ea := Expected(ra, rb)
	delta := e.k * (sa - ea)
	return e.bound(ra + delta), e.bound(rb - delta)
}

func (e *Engine) bound(r float64) float64 {
	if e.clamp && r < e.floor {
		return e.floor
	}
	return r
}

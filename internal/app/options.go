package service

import (
	"math/rand/v2"
	"time"

	"github.com/okian/codenames/internal/adapters/repository"
	"github.com/okian/codenames/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStore uses store instead of opening cfg.StoreURL on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithVerifier replaces the key table built from cfg.PlayerKeys.
func WithVerifier(v Verifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithWords replaces the configured word list.
func WithWords(words []string) Option {
	return func(s *Service) {
		if len(words) > 0 {
			s.corpus = words
		}
	}
}

// WithRand sets the randomness source for boards and seating.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGameIDs sets how game ids are minted.
func WithGameIDs(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Package worker drains the persistence queue into the store.
package worker

import (
	"time"

	"github.com/okian/codenames/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithBackoff sets the first retry delay and the cap it doubles up to.
func WithBackoff(initial, limit time.Duration) Option {
	return func(w *InMemoryWorker) {
		if initial > 0 {
			w.initialBackoff = initial
		}
		if limit > 0 {
			w.maxBackoff = limit
		}
		if w.maxBackoff < w.initialBackoff {
			w.maxBackoff = w.initialBackoff
		}
	}
}

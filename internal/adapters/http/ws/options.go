package ws

import (
	"time"

	"github.com/okian/codenames/pkg/logger"
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the connection logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithPongWait sets how long a silent connection is kept. Pings go out at
// nine tenths of it.
func WithPongWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pongWait = d
		}
	}
}

// WithWriteWait bounds a single write.
func WithWriteWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

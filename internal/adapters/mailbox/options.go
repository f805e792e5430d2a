package mailbox

import (
	"github.com/okian/codenames/internal/domain/dedupe"
	"github.com/okian/codenames/pkg/logger"
)

const subscriberBuffer = 4

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithDeduper sets the store of answered request ids.
func WithDeduper(d dedupe.Deduper) Option {
	return func(m *Mailbox) {
		if d != nil {
			m.seen = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Mailbox) {
		if l != nil {
			m.log = l
		}
	}
}

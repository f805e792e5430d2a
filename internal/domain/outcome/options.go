package outcome

import (
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/pkg/logger"
)

const defaultRecentGames = 1000

// Option configures a Recorder.
type Option func(*Recorder)

// WithLeaderboards keeps boards ranked as ratings change.
func WithLeaderboards(s *leaderboard.Set) Option {
	return func(r *Recorder) {
		if s != nil {
			r.boards = s
		}
	}
}

// WithRecentGames sets how many completed records stay in memory.
func WithRecentGames(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.recentMax = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

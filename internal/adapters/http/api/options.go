package api

import "github.com/okian/codenames/pkg/logger"

const (
	defaultRPS      = 20.0
	defaultBurst    = 40
	defaultMaxLimit = 100
	defaultLimit    = 10
)

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits each caller to rps requests per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newLimiter(rps, burst)
	}
}

// WithMaxLeaderboardLimit caps the limit parameter of leaderboard queries.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

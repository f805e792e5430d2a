// Package config defines the arena configuration and its defaults.
package config

import (
	"runtime"
	"time"
)

// Match strategies accepted by MatchStrategy.
const (
	MatchRandom = "random"
	MatchFIFO   = "fifo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TurnTimeoutMS is the hard deadline for a single clue or guess reply.
	TurnTimeoutMS int `koanf:"turn_timeout_ms"`
	// MaxConsecutiveForfeits ends a game once one player forfeits this many
	// turns in a row. 1 means the first forfeit loses the game.
	MaxConsecutiveForfeits int `koanf:"max_consecutive_forfeits"`

	// EloK is the Elo K-factor.
	EloK float64 `koanf:"elo_k"`
	// InitialRating is given to both roles of a newly registered player.
	InitialRating float64 `koanf:"initial_rating"`
	// RatingFloor clamps ratings from below when RatingFloorEnabled is set.
	RatingFloor        float64 `koanf:"rating_floor"`
	RatingFloorEnabled bool    `koanf:"rating_floor_enabled"`

	// MatchStrategy picks players when more than four are waiting: random or fifo.
	MatchStrategy string `koanf:"match_strategy"`
	// MaxActiveGames caps concurrently running games.
	MaxActiveGames int `koanf:"max_active_games"`
	// MatchIntervalMS is how often the matchmaker loop tries to form games.
	MatchIntervalMS int `koanf:"match_interval_ms"`
	// IdleTimeoutMS drops waiting players that have not been seen for this long.
	IdleTimeoutMS int `koanf:"idle_timeout_ms"`

	// WordListPath overrides the embedded word list (one word per line).
	WordListPath string `koanf:"word_list_path"`
	// ClueStemCheck also rejects clues sharing a stem with an unrevealed word.
	ClueStemCheck bool `koanf:"clue_stem_check"`

	// StoreURL selects persistence: memory://, sqlite://<path> or postgres(ql)://...
	StoreURL string `koanf:"store_url"`
	// PersistQueueSize bounds the persistence job queue.
	PersistQueueSize int `koanf:"persist_queue_size"`
	// PersistWorkers sets the number of persistence workers.
	PersistWorkers int `koanf:"persist_workers"`
	// PersistMaxBackoffMS caps the retry backoff of a failing store write.
	PersistMaxBackoffMS int `koanf:"persist_max_backoff_ms"`

	// DedupeSize sets the size of the move reply deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// PlayerKeys maps player ids to their keys. Empty means open registration.
	PlayerKeys map[string]string `koanf:"player_keys"`

	// RateLimitRPS and RateLimitBurst bound API calls per player.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxLeaderboardLimit caps GET /leaderboards?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MetricsEnabled turns metric recording on; /metrics stays mounted either way.
	MetricsEnabled   bool   `koanf:"metrics_enabled"`
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	// MetricsBuckets overrides the latency histogram buckets, in seconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		TurnTimeoutMS:          300_000,
		MaxConsecutiveForfeits: 3,
		EloK:                   20,
		InitialRating:          1500,
		RatingFloor:            0,
		RatingFloorEnabled:     false,
		MatchStrategy:          MatchRandom,
		MaxActiveGames:         500,
		MatchIntervalMS:        1000,
		IdleTimeoutMS:          300_000,
		ClueStemCheck:          true,
		StoreURL:               "memory://",
		PersistQueueSize:       10_000,
		PersistWorkers:         runtime.NumCPU(),
		PersistMaxBackoffMS:    30_000,
		DedupeSize:             100_000,
		PlayerKeys:             map[string]string{},
		RateLimitRPS:           20,
		RateLimitBurst:         40,
		MaxLeaderboardLimit:    100,
		MetricsEnabled:         true,
		MetricsNamespace:       "codenames",
		MetricsSubsystem:       "arena",
	}
}

// TurnTimeout returns TurnTimeoutMS as a duration.
func (c *Config) TurnTimeout() time.Duration { return ms(c.TurnTimeoutMS) }

// MatchInterval returns MatchIntervalMS as a duration.
func (c *Config) MatchInterval() time.Duration { return ms(c.MatchIntervalMS) }

// IdleTimeout returns IdleTimeoutMS as a duration.
func (c *Config) IdleTimeout() time.Duration { return ms(c.IdleTimeoutMS) }

// PersistMaxBackoff returns PersistMaxBackoffMS as a duration.
func (c *Config) PersistMaxBackoff() time.Duration { return ms(c.PersistMaxBackoffMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

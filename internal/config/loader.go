package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "ARENA_"
	envFileVar = "ARENA_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARENA_CONFIG is set
//  3. env (prefix ARENA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ARENA_TURN_TIMEOUT_MS -> turn_timeout_ms
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the arena cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TurnTimeoutMS <= 0:
		return fmt.Errorf("%w: turn_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxConsecutiveForfeits < 1:
		return fmt.Errorf("%w: max_consecutive_forfeits must be at least 1", ErrInvalidConfig)
	case c.EloK <= 0:
		return fmt.Errorf("%w: elo_k must be positive", ErrInvalidConfig)
	case c.MatchStrategy != MatchRandom && c.MatchStrategy != MatchFIFO:
		return fmt.Errorf("%w: unknown match_strategy %q", ErrInvalidConfig, c.MatchStrategy)
	case c.PersistQueueSize <= 0 || c.PersistWorkers <= 0:
		return fmt.Errorf("%w: persistence queue and workers must be positive", ErrInvalidConfig)
	}
	return nil
}

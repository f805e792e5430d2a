// Package botsim runs random bots against an arena to exercise matchmaking,
// turn handling and rating updates end to end.
package botsim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/codenames/pkg/logger"
)

// Config holds the bot run parameters.
type Config struct {
	BaseURL string        // arena base URL
	Bots    int           // number of bots, at least 4 to form a game
	Prefix  string        // player id prefix
	Key     string        // key every bot authenticates with
	Games   int           // games per bot; 0 plays until the context ends
	Poll    time.Duration // move poll and status interval
	Timeout time.Duration // HTTP request timeout
	Seed    uint64        // seed of the bots' random choices
	Push    bool          // receive requests over the websocket instead of polling
}

// Summary reports a finished run.
type Summary struct {
	Bots     int
	Moves    int64
	Illegal  int64
	Rejected int64
	Errors   int64
	Games    int64 // most games finished by a single bot
	Duration time.Duration
}

// ErrConfig marks an unusable Config.
var ErrConfig = errors.New("invalid bot config")

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrConfig)
	case c.Bots < 4:
		return fmt.Errorf("%w: at least 4 bots are needed for a game", ErrConfig)
	case c.Key == "":
		return fmt.Errorf("%w: key is required", ErrConfig)
	case c.Poll <= 0 || c.Timeout <= 0:
		return fmt.Errorf("%w: poll and timeout must be positive", ErrConfig)
	}
	return nil
}

// BotID returns the player id of bot i.
func (c *Config) BotID(i int) string {
	return fmt.Sprintf("%s-%03d", c.Prefix, i)
}

// Run starts cfg.Bots bots and waits until all of them are done or ctx ends.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	if err := cfg.validate(); err != nil {
		return Summary{}, err
	}
	log := logger.Get().Named("botsim")
	start := time.Now()

	if err := NewClient(cfg.BaseURL, cfg.BotID(0), cfg.Key, cfg.Timeout).Health(ctx); err != nil {
		return Summary{}, fmt.Errorf("arena health check failed: %w", err)
	}
	log.Info(ctx, "starting bots",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("bots", cfg.Bots),
		logger.Int("games", cfg.Games),
		logger.Bool("push", cfg.Push),
	)

	stats := &Stats{}
	errs := make([]error, cfg.Bots)
	var wg sync.WaitGroup
	for i := range cfg.Bots {
		b := &Bot{
			client:   NewClient(cfg.BaseURL, cfg.BotID(i), cfg.Key, cfg.Timeout),
			strategy: NewRandom(rand.New(rand.NewPCG(cfg.Seed, uint64(i)))),
			stats:    stats,
			log:      log,
			poll:     cfg.Poll,
			games:    cfg.Games,
			push:     cfg.Push,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = b.Run(ctx)
		}()
	}
	wg.Wait()

	sum := Summary{
		Bots:     cfg.Bots,
		Moves:    stats.Moves.Load(),
		Illegal:  stats.Illegal.Load(),
		Rejected: stats.Rejected.Load(),
		Errors:   stats.Errors.Load(),
		Games:    stats.Games.Load(),
		Duration: time.Since(start),
	}
	log.Info(ctx, "bots finished",
		logger.Int("moves", int(sum.Moves)),
		logger.Int("illegal", int(sum.Illegal)),
		logger.Int("rejected", int(sum.Rejected)),
		logger.Int("errors", int(sum.Errors)),
		logger.Duration("duration", sum.Duration),
	)
	return sum, errors.Join(errs...)
}

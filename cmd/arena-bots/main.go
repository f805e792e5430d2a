package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/codenames/internal/botsim"
	"github.com/okian/codenames/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	cfg := botsim.Config{}
	var (
		logLevel string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:           "arena-bots",
		Short:         "Play random Codenames bots against a running arena.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			sum, err := botsim.Run(ctx, cfg)
			fmt.Fprintf(cmd.OutOrStdout(),
				"bots=%d moves=%d illegal=%d rejected=%d errors=%d games=%d duration=%s\n",
				sum.Bots, sum.Moves, sum.Illegal, sum.Rejected, sum.Errors, sum.Games, sum.Duration.Round(time.Millisecond))
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.BaseURL, "url", "u", "http://localhost:9080", "base URL of the arena")
	fs.IntVarP(&cfg.Bots, "bots", "n", 8, "number of bots")
	fs.StringVar(&cfg.Prefix, "prefix", "bot", "player id prefix")
	fs.StringVar(&cfg.Key, "key", envOr("ARENA_BOT_KEY", "bot-key"), "player key of every bot (env: ARENA_BOT_KEY)")
	fs.IntVarP(&cfg.Games, "games", "g", 3, "games per bot, 0 plays until interrupted")
	fs.DurationVar(&cfg.Poll, "poll", 200*time.Millisecond, "move poll interval")
	fs.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	fs.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	fs.BoolVar(&cfg.Push, "push", false, "receive move requests over the websocket")
	fs.DurationVar(&duration, "duration", 0, "stop after this long, 0 for no limit")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

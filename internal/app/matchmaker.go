package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/pool"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

// matchLoop forms games on every tick and whenever players become available.
// It is the only goroutine that reserves players and generates boards.
func (s *Service) matchLoop(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.MatchInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.kick:
		}
		s.match(ctx)
	}
}

// sweep drops idle waiting players and retries refused store writes.
func (s *Service) sweep(ctx context.Context) {
	if idle := s.cfg.IdleTimeout(); idle > 0 {
		for _, id := range s.pool.Expire(ctx, idle) {
			p, err := s.players.Update(id, func(p *model.Player) {
				if p.CurrentGame == "" {
					p.Status = model.StatusIdle
				}
			})
			if err == nil {
				s.persistPlayer(ctx, p)
			}
		}
	}
	s.recorder.Retry(ctx)
}

// match starts games while enough players wait and the cap allows.
func (s *Service) match(ctx context.Context) {
	for ctx.Err() == nil && s.pool.ActiveGames() < s.cfg.MaxActiveGames && s.pool.Size() >= pool.PlayersPerGame {
		if _, err := s.startGame(ctx); err != nil {
			if !errors.Is(err, pool.ErrInsufficientPlayers) {
				s.log.Error(ctx, "starting game", logger.Error(err))
				metrics.RecordError("matchmaker", "start_game")
			}
			return
		}
	}
}

func (s *Service) startGame(ctx context.Context) (*game.Game, error) {
	id := s.newID()
	roster, err := s.pool.Reserve(id)
	if err != nil {
		return nil, err
	}

	b, err := board.Generate(s.corpus, s.rng)
	if err == nil {
		var g *game.Game
		g, err = game.New(id, b, roster, s.gameOpts...)
		if err == nil {
			s.launch(ctx, g)
			return g, nil
		}
	}
	if _, rerr := s.pool.Release(ctx, id); rerr != nil {
		s.log.Warn(ctx, "releasing players of unstarted game", logger.String("game_id", id), logger.Error(rerr))
	}
	return nil, err
}

func (s *Service) launch(ctx context.Context, g *game.Game) {
	roster := g.Roster()
	for _, id := range roster.Players() {
		p, err := s.players.Update(id, func(p *model.Player) {
			p.Status = model.StatusPlaying
			p.CurrentGame = g.ID()
		})
		if err != nil {
			s.log.Warn(ctx, "seated player is not registered", logger.String("player_id", id), logger.Error(err))
			continue
		}
		s.persistPlayer(ctx, p)
	}
	s.persistGame(ctx, g.Record())
	metrics.RecordGameStarted()
	s.coord.Go(ctx, g)
}

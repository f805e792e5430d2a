package service

import (
	"context"
	"fmt"

	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/outcome"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/internal/domain/types"
	"github.com/okian/codenames/pkg/logger"
	"github.com/samber/lo"
)

// Authenticate checks key against the player key table.
func (s *Service) Authenticate(playerID, key string) error {
	return s.verifier.Verify(playerID, key)
}

// Join registers playerID on first use and adds it to the waiting pool.
// Joining while waiting is a no-op; joining while seated in a game fails
// with pool.ErrAlreadyInGame.
func (s *Service) Join(ctx context.Context, playerID, key string) (model.Player, error) {
	if !s.running.Load() {
		return model.Player{}, ErrNotStarted
	}
	if err := s.verifier.Verify(playerID, key); err != nil {
		return model.Player{}, err
	}

	p, created := s.players.Ensure(playerID)
	if err := s.pool.Join(playerID); err != nil {
		return p, err
	}
	p, err := s.players.Update(playerID, func(p *model.Player) {
		if p.CurrentGame == "" {
			p.Status = model.StatusWaiting
		}
	})
	if err != nil {
		return p, err
	}
	if created {
		s.boards.Update(ctx, &p)
	}
	s.persistPlayer(ctx, p)
	s.signal()

	s.log.Info(ctx, "player joined pool",
		logger.String("player_id", playerID),
		logger.Bool("registered", created),
		logger.Int("pool_size", s.pool.Size()),
	)
	return p, nil
}

// Leave takes playerID out of the pool. A seated player finishes its game
// and is dropped when the game is released.
func (s *Service) Leave(ctx context.Context, playerID string) error {
	return s.leave(ctx, playerID, false)
}

// Disconnect is Leave for a player whose connection is gone. The player is
// marked disconnected; any move it owes runs into the turn deadline.
func (s *Service) Disconnect(ctx context.Context, playerID string) error {
	return s.leave(ctx, playerID, true)
}

func (s *Service) leave(ctx context.Context, playerID string, disconnected bool) error {
	if _, ok := s.players.Get(playerID); !ok {
		return fmt.Errorf("%w: %s", outcome.ErrUnknownPlayer, playerID)
	}
	inGame := s.pool.Leave(playerID)
	p, err := s.players.Update(playerID, func(p *model.Player) {
		switch {
		case disconnected:
			p.Status = model.StatusDisconnected
		case !inGame && p.Status != model.StatusRemoved:
			p.Status = model.StatusIdle
		}
	})
	if err != nil {
		return err
	}
	s.persistPlayer(ctx, p)
	s.log.Info(ctx, "player left pool",
		logger.String("player_id", playerID),
		logger.Bool("in_game", inGame),
		logger.Bool("disconnected", disconnected),
	)
	return nil
}

// Touch refreshes the liveness of a waiting player.
func (s *Service) Touch(playerID string) { s.pool.Touch(playerID) }

// Player returns the registered player with id.
func (s *Service) Player(playerID string) (model.Player, error) {
	p, ok := s.players.Get(playerID)
	if !ok {
		return model.Player{}, fmt.Errorf("%w: %s", outcome.ErrUnknownPlayer, playerID)
	}
	return p, nil
}

// Status reports ratings, the current game and the pending move of playerID.
func (s *Service) Status(ctx context.Context, playerID string) (types.PlayerStatus, error) {
	p, err := s.Player(playerID)
	if err != nil {
		return types.PlayerStatus{}, err
	}
	s.pool.Touch(playerID)

	st := types.NewPlayerStatus(p)
	st.Waiting = s.pool.IsWaiting(playerID)

	current, seated := s.pool.GameOf(playerID)
	if g, ok := s.coord.Game(current); seated && ok {
		seat, _ := g.Roster().SeatOf(playerID)
		partner := model.Operative
		if seat.Role == model.Operative {
			partner = model.Spymaster
		}
		active := &types.ActiveGame{
			GameID:   current,
			Team:     seat.Team,
			Role:     seat.Role,
			Teammate: g.Roster().Player(model.Seat{Team: seat.Team, Role: partner}),
		}
		if _, waitingOn, live := g.Awaiting(); live {
			since := g.AwaitingSince()
			active.WaitingOn = waitingOn
			active.Since = since
			active.WaitingFor = s.now().Sub(since).Seconds()
		}
		st.Game = active
	}

	if req, ok := s.mailbox.Pending(playerID); ok {
		st.Pending = &types.PendingMove{
			RequestID: req.ID,
			GameID:    req.GameID,
			Kind:      string(req.Kind),
			Deadline:  req.Deadline,
		}
	}

	games, err := s.PlayerGames(ctx, playerID)
	if err != nil {
		return st, err
	}
	st.EndedGames = lo.Without(games, current)
	return st, nil
}

// PendingMove returns the move request playerID should answer now.
func (s *Service) PendingMove(playerID string) (turn.Request, bool) {
	s.pool.Touch(playerID)
	return s.mailbox.Pending(playerID)
}

// Subscribe pushes the move requests of playerID to the returned channel
// until cancel is called.
func (s *Service) Subscribe(playerID string) (<-chan turn.Request, func()) {
	return s.mailbox.Subscribe(playerID)
}

// Connections returns how many push connections playerID holds.
func (s *Service) Connections(playerID string) int {
	return s.mailbox.Subscribers(playerID)
}

package botsim

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/okian/codenames/internal/adapters/http/ws"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/pkg/logger"
)

// Stats counts what a run of bots did.
type Stats struct {
	Moves    atomic.Int64
	Illegal  atomic.Int64
	Rejected atomic.Int64
	Errors   atomic.Int64
	Games    atomic.Int64 // most games finished by a single bot
}

// Bot plays as one player until it has finished its games or ctx ends.
type Bot struct {
	client   *Client
	strategy Strategy
	stats    *Stats
	log      logger.Logger
	poll     time.Duration
	games    int
	push     bool

	leaving bool
}

// Run joins the pool and answers move requests. With a game target the bot
// leaves once it has finished that many games and returns after its last
// game is over.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := b.client.Join(ctx); err != nil {
		return err
	}
	b.log.Debug(ctx, "bot joined", logger.String("player_id", b.client.PlayerID()))

	var requests <-chan turn.Request
	var replies chan<- pushMove
	if b.push {
		reqs, out, err := b.connect(ctx)
		if err != nil {
			return err
		}
		requests, replies = reqs, out
	}

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			b.play(ctx, req, replies)
		case <-ticker.C:
			if !b.push {
				req, pending, err := b.client.PendingMove(ctx)
				if err != nil {
					b.fail(ctx, "poll failed", err)
					continue
				}
				if pending {
					b.play(ctx, req, nil)
					continue
				}
			}
			done, err := b.check(ctx)
			if err != nil {
				b.fail(ctx, "status failed", err)
				continue
			}
			if done {
				return nil
			}
		}
	}
}

// check rejoins after the arena dropped the bot and reports whether the bot
// is done.
func (b *Bot) check(ctx context.Context) (bool, error) {
	st, err := b.client.Status(ctx)
	if err != nil {
		return false, err
	}
	b.stats.Games.Store(max(b.stats.Games.Load(), int64(len(st.EndedGames))))

	idle := st.Game == nil && st.Status != model.StatusPlaying && st.Status != model.StatusWaiting
	switch {
	case b.leaving:
		return idle, nil
	case b.games > 0 && len(st.EndedGames) >= b.games:
		b.leaving = true
		return false, b.client.Leave(ctx)
	case idle:
		_, err := b.client.Join(ctx)
		return false, err
	}
	return false, nil
}

func (b *Bot) play(ctx context.Context, req turn.Request, replies chan<- pushMove) {
	mv := turn.Move{RequestID: req.ID, Kind: req.Kind}
	if req.Kind == turn.KindClue {
		mv.Word, mv.Count = b.strategy.Clue(req.View)
	} else {
		mv.Words = b.strategy.Guess(req.View)
	}
	b.stats.Moves.Add(1)

	if replies != nil {
		select {
		case replies <- pushMove{gameID: req.GameID, move: mv}:
		case <-ctx.Done():
		}
		return
	}
	b.result(ctx, b.client.Submit(ctx, req.GameID, mv))
}

func (b *Bot) result(ctx context.Context, err error) {
	switch {
	case err == nil:
	case IsCode(err, "illegal_move"):
		b.stats.Illegal.Add(1)
	case IsCode(err, "illegal_state"), IsCode(err, "not_found"):
		// The game moved on or finished before the reply landed.
		b.stats.Rejected.Add(1)
	default:
		b.fail(ctx, "move failed", err)
	}
}

func (b *Bot) fail(ctx context.Context, msg string, err error) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return
	}
	b.stats.Errors.Add(1)
	b.log.Warn(ctx, msg, logger.String("player_id", b.client.PlayerID()), logger.Error(err))
}

type pushMove struct {
	gameID string
	move   turn.Move
}

// connect opens the push connection. Requests arrive on the first channel;
// moves sent on the second are written to the arena.
func (b *Bot) connect(ctx context.Context) (<-chan turn.Request, chan<- pushMove, error) {
	conn, err := b.client.Dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	requests := make(chan turn.Request, 1)
	replies := make(chan pushMove, 1)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(requests)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg ws.Outbound
			if err := json.Unmarshal(data, &msg); err != nil {
				b.fail(ctx, "bad push message", err)
				continue
			}
			switch msg.Type {
			case ws.TypeMoveRequest:
				if msg.Request == nil {
					continue
				}
				select {
				case requests <- *msg.Request:
				case <-ctx.Done():
					return
				}
			case ws.TypeError:
				b.result(ctx, &APIError{Code: msg.Code, Message: msg.Message})
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-replies:
				if err := SendMove(conn, r.gameID, r.move); err != nil {
					b.fail(ctx, "push reply failed", err)
				}
			}
		}
	}()
	return requests, replies, nil
}

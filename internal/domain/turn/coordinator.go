package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

// CompletionFunc receives every game once it reaches a terminal state.
type CompletionFunc func(ctx context.Context, g *game.Game)

// Coordinator runs one goroutine per live game. Each goroutine is the only
// writer driving its game forward; the long wait for a remote reply holds no
// lock at all.
type Coordinator struct {
	mover      Mover
	timeout    time.Duration
	onComplete CompletionFunc
	log        logger.Logger
	now        func() time.Time
	newID      func() string

	mu    sync.RWMutex
	games map[string]*game.Game
	wg    sync.WaitGroup
}

// NewCoordinator creates a Coordinator that reaches players through mover.
func NewCoordinator(mover Mover, opts ...Option) *Coordinator {
	c := &Coordinator{
		mover:      mover,
		timeout:    defaultTimeout,
		onComplete: func(context.Context, *game.Game) {},
		now:        time.Now,
		newID:      newRequestID,
		games:      make(map[string]*game.Game),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("turn")
	}
	return c
}

// Go starts driving g in the background until it completes or ctx is done.
// A cancelled game is abandoned and still handed to the completion callback.
func (c *Coordinator) Go(ctx context.Context, g *game.Game) {
	c.mu.Lock()
	c.games[g.ID()] = g
	c.mu.Unlock()
	metrics.UpdateActiveGames(c.Len())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Run(ctx, g)

		c.mu.Lock()
		delete(c.games, g.ID())
		c.mu.Unlock()
		metrics.UpdateActiveGames(c.Len())
	}()
}

// Wait blocks until every game started with Go has finished.
func (c *Coordinator) Wait() { c.wg.Wait() }

// Game returns a live game by id.
func (c *Coordinator) Game(id string) (*game.Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.games[id]
	return g, ok
}

// Len returns the number of live games.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.games)
}

// Run drives g synchronously. It returns after the completion callback.
func (c *Coordinator) Run(ctx context.Context, g *game.Game) {
	log := c.log.With(logger.String("game_id", g.ID()))
	log.Info(ctx, "game started", logger.Any("roster", g.Roster()))

	for ctx.Err() == nil {
		seat, playerID, ok := g.Awaiting()
		if !ok {
			break
		}
		c.step(ctx, log, g, seat, playerID)
	}

	if ctx.Err() != nil {
		g.Abandon()
		log.Warn(ctx, "game abandoned", logger.Error(ctx.Err()))
	}

	rec := g.Record()
	log.Info(ctx, "game completed",
		logger.String("winner", string(rec.Winner)),
		logger.String("reason", string(rec.EndReason)),
		logger.Int("turns", rec.Turn),
	)
	c.onComplete(context.WithoutCancel(ctx), g)
}

func (c *Coordinator) step(ctx context.Context, log logger.Logger, g *game.Game, seat model.Seat, playerID string) {
	view, err := g.ViewFor(playerID)
	if err != nil {
		log.Error(ctx, "cannot build view", logger.String("player_id", playerID), logger.Error(err))
		return
	}
	req := Request{
		ID:       c.newID(),
		GameID:   g.ID(),
		PlayerID: playerID,
		Kind:     KindFor(seat.Role),
		View:     view,
		Deadline: c.now().Add(c.timeout),
	}

	start := time.Now()
	move, err := c.await(ctx, req)
	metrics.RecordMoveLatency(string(req.Kind), time.Since(start).Seconds())

	if ctx.Err() != nil {
		c.settle(req, game.Outcome{}, ErrAbandoned)
		return
	}

	fields := []logger.Field{
		logger.String("player_id", playerID),
		logger.String("team", string(seat.Team)),
		logger.String("role", string(seat.Role)),
		logger.String("request_id", req.ID),
	}

	var out game.Outcome
	switch {
	case err != nil:
		cause := model.CauseMalformed
		if errors.Is(err, context.DeadlineExceeded) {
			cause = model.CauseTimeout
		}
		out, err = c.forfeit(g, playerID, cause, err)
		log.Warn(ctx, "turn forfeited", append(fields, logger.String("cause", string(cause)), logger.Error(err))...)
	case move.Kind != req.Kind:
		out, err = c.forfeit(g, playerID, model.CauseMalformed,
			fmt.Errorf("%w: expected %s, got %q", ErrMalformedMove, req.Kind, move.Kind))
		log.Warn(ctx, "turn forfeited", append(fields, logger.String("cause", string(model.CauseMalformed)))...)
	case req.Kind == KindClue:
		out, err = g.SubmitClue(playerID, move.Word, move.Count)
		c.record(req.Kind, err)
		log.Debug(ctx, "clue applied", append(fields, logger.String("word", move.Word), logger.Int("count", move.Count), logger.Error(err))...)
	default:
		out, err = g.SubmitGuesses(playerID, move.Words)
		c.record(req.Kind, err)
		log.Debug(ctx, "guesses applied", append(fields, logger.Any("words", move.Words), logger.Error(err))...)
	}

	if errors.Is(err, game.ErrIllegalClue) {
		metrics.RecordTurnForfeit(string(model.CauseIllegalClue))
	} else if errors.Is(err, game.ErrIllegalGuess) {
		metrics.RecordTurnForfeit(string(model.CauseIllegalGuess))
	}
	c.settle(req, out, err)
}

// await enforces the deadline independently of the mover.
func (c *Coordinator) await(ctx context.Context, req Request) (Move, error) {
	mctx, cancel := context.WithDeadline(ctx, req.Deadline)
	defer cancel()

	type reply struct {
		move Move
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		m, err := c.mover.RequestMove(mctx, req)
		ch <- reply{move: m, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && mctx.Err() != nil {
			return Move{}, ErrMoveTimeout
		}
		return r.move, r.err
	case <-mctx.Done():
		return Move{}, ErrMoveTimeout
	}
}

// forfeit resolves the turn for a missing or unusable reply. The returned
// error is the reason, not a failure of the forfeit itself.
func (c *Coordinator) forfeit(g *game.Game, playerID string, cause model.ForfeitCause, reason error) (game.Outcome, error) {
	metrics.RecordTurnForfeit(string(cause))
	out, err := g.Forfeit(playerID, cause)
	if err != nil {
		return out, err
	}
	return out, reason
}

func (c *Coordinator) record(kind Kind, err error) {
	switch {
	case err == nil:
		metrics.RecordMove(string(kind), "ok")
	case errors.Is(err, game.ErrValidation):
		metrics.RecordMove(string(kind), "illegal")
	default:
		metrics.RecordMove(string(kind), "rejected")
	}
}

func (c *Coordinator) settle(req Request, out game.Outcome, err error) {
	if s, ok := c.mover.(Settler); ok {
		s.Settle(req, out, err)
	}
}

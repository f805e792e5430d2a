// Package service wires the arena components together and implements the
// operations the HTTP and websocket transports forward to.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/codenames/internal/adapters/mailbox"
	eventqueue "github.com/okian/codenames/internal/adapters/mq/queue"
	workerpool "github.com/okian/codenames/internal/adapters/mq/worker"
	"github.com/okian/codenames/internal/adapters/repository"
	"github.com/okian/codenames/internal/config"
	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/dedupe"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/outcome"
	"github.com/okian/codenames/internal/domain/pool"
	"github.com/okian/codenames/internal/domain/rating"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

// Service owns the arena: the waiting pool, live games and their outcomes.
type Service struct {
	cfg *config.Config
	log logger.Logger

	mu      sync.Mutex
	running atomic.Bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	kick    chan struct{}

	verifier Verifier
	corpus   []string
	rng      *rand.Rand // matchmaker goroutine only
	newID    func() string
	now      func() time.Time
	gameOpts []game.Option

	pool     *pool.Pool
	players  *outcome.Registry
	boards   *leaderboard.Set
	mailbox  *mailbox.Mailbox
	coord    *turn.Coordinator
	recorder *outcome.Recorder
	queue    *eventqueue.InMemoryQueue
	workers  atomic.Pointer[workerpool.Pool]
	store    repository.Store
}

// New builds a Service from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:   cfg,
		done:  make(chan struct{}),
		kick:  make(chan struct{}, 1),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("arena")
	}
	if s.verifier == nil {
		s.verifier = KeyTable(cfg.PlayerKeys)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if s.corpus == nil {
		words, err := board.LoadWords(cfg.WordListPath)
		if err != nil {
			return nil, err
		}
		s.corpus = words
	}
	if n := len(board.Normalize(s.corpus)); n < board.Size {
		return nil, fmt.Errorf("%w: word list has %d usable words", board.ErrInsufficientCorpus, n)
	}

	s.gameOpts = []game.Option{
		game.WithMaxForfeits(cfg.MaxConsecutiveForfeits),
		game.WithValidator(game.RuleValidator{StemCheck: cfg.ClueStemCheck}),
		game.WithClock(s.now),
	}

	engineOpts := []rating.Option{rating.WithK(cfg.EloK)}
	if cfg.RatingFloorEnabled {
		engineOpts = append(engineOpts, rating.WithFloor(cfg.RatingFloor))
	}

	s.pool = pool.New(
		pool.WithStrategy(pool.Strategy(cfg.MatchStrategy)),
		pool.WithRand(rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))),
		pool.WithClock(s.now),
	)
	s.players = outcome.NewRegistry(cfg.InitialRating)
	s.boards = leaderboard.NewSet()
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.PersistQueueSize))
	s.recorder = outcome.NewRecorder(s.players, rating.NewEngine(engineOpts...), s.pool, s.queue,
		outcome.WithLeaderboards(s.boards),
	)
	s.mailbox = mailbox.New(mailbox.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))))
	s.coord = turn.NewCoordinator(s.mailbox,
		turn.WithTimeout(cfg.TurnTimeout()),
		turn.WithClock(s.now),
		turn.WithOnComplete(s.complete),
	)
	return s, nil
}

// Start opens the store, restores the players and starts the persistence
// workers and the matchmaker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}
	if s.stopped {
		return fmt.Errorf("%w: already stopped", ErrNotStarted)
	}

	s.log.Info(ctx, "starting arena service...")
	if s.store == nil {
		store, err := repository.Open(ctx, s.cfg.StoreURL)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}
	if err := s.restore(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	workers := workerpool.NewPool(s.cfg.PersistWorkers, s.queue, s.store,
		workerpool.WithBackoff(0, s.cfg.PersistMaxBackoff()),
	)
	// The workers outlive runCtx so Stop can drain the writes of the games
	// it abandons.
	workers.Start(context.WithoutCancel(ctx))
	s.workers.Store(workers)
	go s.matchLoop(runCtx)

	s.running.Store(true)
	s.log.Info(ctx, "arena service started",
		logger.Int("players", s.players.Len()),
		logger.Int("persist_workers", s.cfg.PersistWorkers),
		logger.Duration("turn_timeout", s.cfg.TurnTimeout()),
		logger.String("match_strategy", s.cfg.MatchStrategy),
	)
	return nil
}

// Stop abandons live games, records them, drains the persistence queue until
// ctx ends and closes the store. A stopped service cannot be restarted.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	s.stopped = true

	s.log.Info(ctx, "stopping arena service...", logger.Int("active_games", s.coord.Len()))
	s.cancel()
	<-s.done
	s.coord.Wait()

	if n := s.recorder.Retry(ctx); n > 0 {
		s.log.Error(ctx, "persistence backlog dropped at shutdown", logger.Int("jobs", n))
		metrics.RecordError("persist", "backlog_dropped")
	}
	var errs []error
	if err := s.workers.Load().Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.log.Info(ctx, "arena service stopped")
	return errors.Join(errs...)
}

// restore loads stored players. Nobody is waiting or playing after a restart.
func (s *Service) restore(ctx context.Context) error {
	stored, err := s.store.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("restore players: %w", err)
	}
	for _, p := range stored {
		if p.Status != model.StatusRemoved {
			p.Status = model.StatusIdle
		}
		p.CurrentGame = ""
		s.players.Load(p)
		s.boards.Update(ctx, &p)
	}
	s.log.Info(ctx, "players restored", logger.Int("count", len(stored)))
	return nil
}

func (s *Service) complete(ctx context.Context, g *game.Game) {
	s.recorder.Complete(ctx, g)
	s.signal()
}

// signal wakes the matchmaker without blocking.
func (s *Service) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Service) persistPlayer(ctx context.Context, p model.Player) {
	if err := s.recorder.Enqueue(ctx, model.PersistJob{Kind: model.JobPlayer, Player: &p}); err != nil {
		s.log.Warn(ctx, "player write deferred", logger.String("player_id", p.ID), logger.Error(err))
	}
}

func (s *Service) persistGame(ctx context.Context, rec *model.GameRecord) {
	if err := s.recorder.Enqueue(ctx, model.PersistJob{Kind: model.JobGame, Game: rec}); err != nil {
		s.log.Warn(ctx, "game write deferred", logger.String("game_id", rec.ID), logger.Error(err))
	}
}

func (s *Service) dropped() int64 {
	if w := s.workers.Load(); w != nil {
		return w.Dropped()
	}
	return 0
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"started":            s.running.Load(),
		"pool_size":          s.pool.Size(),
		"active_games":       s.coord.Len(),
		"reserved_games":     s.pool.ActiveGames(),
		"registered_players": s.players.Len(),
		"queue_length":       s.queue.Len(context.Background()),
		"persist_backlog":    s.recorder.Backlog(),
		"persist_dropped":    s.dropped(),
		"persist_workers":    s.cfg.PersistWorkers,
		"turn_timeout_ms":    s.cfg.TurnTimeoutMS,
	}
	metrics.UpdateQueueSize(s.queue.Len(context.Background()))
	return stats
}

// Package outcome finalizes completed games: it rates the players, persists
// the result and hands the players back to the pool.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/rating"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

// Persister queues store writes. Enqueue fails fast when the write cannot be
// queued right now.
type Persister interface {
	Enqueue(ctx context.Context, job model.PersistJob) error
}

// Releaser returns a finished game's players to the waiting set. Players in
// drop are removed instead.
type Releaser interface {
	Release(ctx context.Context, gameID string, drop ...string) ([]string, error)
}

// Recorder is the completion callback of the turn coordinator.
type Recorder struct {
	players *Registry
	engine  *rating.Engine
	pool    Releaser
	persist Persister
	boards  *leaderboard.Set
	log     logger.Logger

	mu        sync.Mutex
	backlog   []model.PersistJob
	finalized map[string]struct{} // every game id ever claimed by Record
	recent    map[string]*model.GameRecord
	order     []string
	recentMax int
}

// NewRecorder creates a Recorder.
func NewRecorder(players *Registry, engine *rating.Engine, pool Releaser, persist Persister, opts ...Option) *Recorder {
	r := &Recorder{
		players:   players,
		engine:    engine,
		pool:      pool,
		persist:   persist,
		boards:    leaderboard.NewSet(),
		finalized: make(map[string]struct{}),
		recent:    make(map[string]*model.GameRecord),
		recentMax: defaultRecentGames,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("outcome")
	}
	return r
}

// Complete adapts Record to turn.CompletionFunc and logs its error.
func (r *Recorder) Complete(ctx context.Context, g *game.Game) {
	if _, err := r.Record(ctx, g); err != nil {
		r.log.Error(ctx, "recording outcome", logger.String("game_id", g.ID()), logger.Error(err))
	}
}

// Record finalizes a completed game exactly once. The rating changes are
// applied before anything is persisted; a persistence failure is returned but
// does not undo them. Recording a game again returns the remembered record,
// or ErrAlreadyRecorded once it has been evicted or while the first call is
// still running.
func (r *Recorder) Record(ctx context.Context, g *game.Game) (*model.GameRecord, error) {
	rec := g.Record()
	if !rec.Done() {
		return nil, fmt.Errorf("%w: game %s is %s", game.ErrIllegalState, rec.ID, rec.Phase)
	}
	if prev, claimed := r.claim(rec.ID); claimed {
		if prev != nil {
			return prev, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRecorded, rec.ID)
	}
	log := r.log.With(logger.String("game_id", rec.ID))

	if rec.Winner != "" {
		for _, role := range []model.Role{model.Spymaster, model.Operative} {
			change, err := r.rate(rec, role)
			if err != nil {
				return nil, err
			}
			rec.Ratings = append(rec.Ratings, change...)
			metrics.RecordRatingUpdate(string(role))
		}
	}

	back, err := r.pool.Release(ctx, rec.ID, rec.Flagged...)
	if err != nil {
		log.Warn(ctx, "releasing players", logger.Error(err))
	}

	updated := make([]model.Player, 0, 4)
	for _, id := range rec.Roster.Players() {
		p, err := r.players.Update(id, func(p *model.Player) {
			p.CurrentGame = ""
			switch {
			case slices.Contains(back, id):
				p.Status = model.StatusWaiting
			case slices.Contains(rec.Flagged, id):
				p.Status = model.StatusRemoved
			case p.Status != model.StatusDisconnected:
				p.Status = model.StatusIdle
			}
		})
		if err != nil {
			return nil, err
		}
		r.boards.Update(ctx, &p)
		updated = append(updated, p)
	}

	r.remember(rec)

	duration := 0.0
	if rec.EndedAt != nil {
		duration = rec.EndedAt.Sub(rec.StartedAt).Seconds()
	}
	metrics.RecordGameCompleted(string(rec.EndReason), duration)
	log.Info(ctx, "outcome recorded",
		logger.String("winner", string(rec.Winner)),
		logger.String("reason", string(rec.EndReason)),
		logger.Any("ratings", rec.Ratings),
		logger.Any("rejoined", back),
	)

	jobs := []model.PersistJob{{Kind: model.JobGame, Game: rec}}
	for i := range updated {
		jobs = append(jobs, model.PersistJob{Kind: model.JobPlayer, Player: &updated[i]})
	}
	return rec, r.enqueue(ctx, jobs...)
}

// rate applies one Elo update between the red and blue holders of role.
func (r *Recorder) rate(rec *model.GameRecord, role model.Role) ([]model.RatingChange, error) {
	redID := rec.Roster.Player(model.Seat{Team: model.Red, Role: role})
	blueID := rec.Roster.Player(model.Seat{Team: model.Blue, Role: role})

	red, ok := r.players.Get(redID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, redID)
	}
	blue, ok := r.players.Get(blueID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, blueID)
	}

	redWon := rec.Winner == model.Red
	before := [2]float64{red.Stats(role).Rating, blue.Stats(role).Rating}
	after := [2]float64{}
	after[0], after[1] = r.engine.Update(before[0], before[1], redWon)

	apply := func(id string, rating float64, won bool) error {
		_, err := r.players.Update(id, func(p *model.Player) {
			s := p.Stats(role)
			s.Rating = rating
			if won {
				s.Wins++
			} else {
				s.Losses++
			}
		})
		return err
	}
	if err := apply(redID, after[0], redWon); err != nil {
		return nil, err
	}
	if err := apply(blueID, after[1], !redWon); err != nil {
		return nil, err
	}

	return []model.RatingChange{
		{PlayerID: redID, Role: role, Before: before[0], After: after[0]},
		{PlayerID: blueID, Role: role, Before: before[1], After: after[1]},
	}, nil
}

// Enqueue queues one write, keeping it for Retry when the queue refuses it.
func (r *Recorder) Enqueue(ctx context.Context, job model.PersistJob) error {
	return r.enqueue(ctx, job)
}

func (r *Recorder) enqueue(ctx context.Context, jobs ...model.PersistJob) error {
	var errs []error
	for _, job := range jobs {
		if err := r.persist.Enqueue(ctx, job); err != nil {
			r.mu.Lock()
			r.backlog = append(r.backlog, job)
			r.mu.Unlock()
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrPersistence, job.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// Retry re-queues writes the queue refused earlier. It returns how many are
// still waiting.
func (r *Recorder) Retry(ctx context.Context) int {
	r.mu.Lock()
	jobs := r.backlog
	r.backlog = nil
	r.mu.Unlock()

	if len(jobs) == 0 {
		return 0
	}
	_ = r.enqueue(ctx, jobs...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.backlog); n > 0 {
		r.log.Warn(ctx, "persistence backlog", logger.Int("jobs", n))
	}
	return len(r.backlog)
}

// Backlog returns the number of writes waiting to be queued.
func (r *Recorder) Backlog() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.backlog)
}

// Recent returns a recently completed record by id.
func (r *Recorder) Recent(id string) (*model.GameRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recent[id]
	return rec, ok
}

// RecentIDs returns the ids of remembered records matching keep, in
// completion order. A nil keep matches every record.
func (r *Recorder) RecentIDs(keep func(*model.GameRecord) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if keep == nil || keep(r.recent[id]) {
			out = append(out, id)
		}
	}
	return out
}

// Players returns the registry the recorder rates.
func (r *Recorder) Players() *Registry { return r.players }

// Leaderboards returns the boards the recorder keeps ranked.
func (r *Recorder) Leaderboards() *leaderboard.Set { return r.boards }

// claim marks id as finalized. When another call got there first it reports
// true along with the remembered record, if any.
func (r *Recorder) claim(id string) (*model.GameRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.finalized[id]; ok {
		return r.recent[id], true
	}
	r.finalized[id] = struct{}{}
	return nil, false
}

func (r *Recorder) remember(rec *model.GameRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recent[rec.ID]; !ok {
		r.order = append(r.order, rec.ID)
	}
	r.recent[rec.ID] = rec
	for len(r.order) > r.recentMax {
		delete(r.recent, r.order[0])
		r.order = r.order[1:]
	}
}

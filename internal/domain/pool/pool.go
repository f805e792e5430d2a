// Package pool keeps the set of players waiting for a game and forms games
// from it. Every operation is atomic with respect to the others.
package pool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
	"github.com/samber/lo"
)

// PlayersPerGame is two teams of one spymaster and one operative.
const PlayersPerGame = 4

// Pool is the matchmaker's waiting set.
type Pool struct {
	mu sync.Mutex

	waiting  []string             // join order
	lastSeen map[string]time.Time // waiting players only
	inGame   map[string]string    // player -> game id
	games    map[string][]string  // game id -> players
	leaving  map[string]bool      // in-game players to drop on release

	strategy Strategy
	rng      *rand.Rand
	now      func() time.Time
	log      logger.Logger
}

// New creates an empty pool using random selection.
func New(opts ...Option) *Pool {
	p := &Pool{
		lastSeen: make(map[string]time.Time),
		inGame:   make(map[string]string),
		games:    make(map[string][]string),
		leaving:  make(map[string]bool),
		strategy: Random,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("pool")
	}
	return p
}

// Join adds playerID to the waiting set. Joining twice is a no-op. A player
// that is in a game is rejected with ErrAlreadyInGame.
func (p *Pool) Join(playerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gameID, ok := p.inGame[playerID]; ok {
		return fmt.Errorf("%w: %s is playing %s", ErrAlreadyInGame, playerID, gameID)
	}
	p.lastSeen[playerID] = p.now()
	if !slices.Contains(p.waiting, playerID) {
		p.waiting = append(p.waiting, playerID)
	}
	metrics.UpdatePoolSize(len(p.waiting))
	return nil
}

// Leave removes playerID from the waiting set. A player in a game is marked
// and dropped when the game is released. It reports whether the player was
// in a game.
func (p *Pool) Leave(playerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inGame[playerID]; ok {
		p.leaving[playerID] = true
		return true
	}
	p.removeLocked(playerID)
	metrics.UpdatePoolSize(len(p.waiting))
	return false
}

// Touch refreshes the liveness of a waiting player.
func (p *Pool) Touch(playerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.lastSeen[playerID]; ok {
		p.lastSeen[playerID] = p.now()
	}
}

// Reserve atomically removes PlayersPerGame distinct waiting players, seats
// them at random and records them as playing gameID.
func (p *Pool) Reserve(gameID string) (model.Roster, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, dup := p.games[gameID]; dup {
		return model.Roster{}, ErrDuplicateGame
	}
	if len(p.waiting) < PlayersPerGame {
		return model.Roster{}, fmt.Errorf("%w: %d waiting", ErrInsufficientPlayers, len(p.waiting))
	}

	var picked []string
	switch p.strategy {
	case FIFO:
		picked = slices.Clone(p.waiting[:PlayersPerGame])
	default:
		picked = lo.Map(p.rng.Perm(len(p.waiting))[:PlayersPerGame], func(i int, _ int) string {
			return p.waiting[i]
		})
	}
	p.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	for _, id := range picked {
		p.removeLocked(id)
		p.inGame[id] = gameID
	}
	p.games[gameID] = picked
	metrics.UpdatePoolSize(len(p.waiting))

	return model.Roster{
		Red:  model.Pair{Spymaster: picked[0], Operative: picked[1]},
		Blue: model.Pair{Spymaster: picked[2], Operative: picked[3]},
	}, nil
}

// Release ends gameID's reservation. Players marked by Leave and players in
// drop are removed; the rest rejoin the waiting set. It returns the players
// that rejoined.
func (p *Pool) Release(ctx context.Context, gameID string, drop ...string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	players, ok := p.games[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	delete(p.games, gameID)

	var back []string
	for _, id := range players {
		delete(p.inGame, id)
		if p.leaving[id] || slices.Contains(drop, id) {
			delete(p.leaving, id)
			p.log.Info(ctx, "player dropped after game", logger.String("player_id", id), logger.String("game_id", gameID))
			continue
		}
		p.lastSeen[id] = p.now()
		p.waiting = append(p.waiting, id)
		back = append(back, id)
	}
	metrics.UpdatePoolSize(len(p.waiting))
	return back, nil
}

// Expire drops waiting players not seen for longer than idle and returns them.
func (p *Pool) Expire(ctx context.Context, idle time.Duration) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-idle)
	stale := lo.Filter(p.waiting, func(id string, _ int) bool {
		return p.lastSeen[id].Before(cutoff)
	})
	for _, id := range stale {
		p.removeLocked(id)
		p.log.Info(ctx, "idle player expired", logger.String("player_id", id))
	}
	metrics.UpdatePoolSize(len(p.waiting))
	return stale
}

// GameOf returns the game playerID is seated in.
func (p *Pool) GameOf(playerID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.inGame[playerID]
	return id, ok
}

// IsWaiting reports whether playerID is in the waiting set.
func (p *Pool) IsWaiting(playerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.waiting, playerID)
}

// Waiting returns the waiting players in join order.
func (p *Pool) Waiting() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.waiting)
}

// Size returns the number of waiting players.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}

// ActiveGames returns the number of reserved games.
func (p *Pool) ActiveGames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.games)
}

func (p *Pool) removeLocked(playerID string) {
	p.waiting = slices.DeleteFunc(p.waiting, func(id string) bool { return id == playerID })
	delete(p.lastSeen, playerID)
}

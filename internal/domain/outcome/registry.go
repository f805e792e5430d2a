package outcome

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/pkg/metrics"
)

type entry struct {
	mu sync.Mutex
	p  model.Player
}

// Registry holds every known player. Each record has its own lock, so
// updates to different players never contend.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*entry
	initial float64
	now     func() time.Time
}

// NewRegistry creates an empty registry whose new players start at initial.
func NewRegistry(initial float64) *Registry {
	return &Registry{
		players: make(map[string]*entry),
		initial: initial,
		now:     time.Now,
	}
}

// Ensure returns the player with id, registering it first if needed.
func (r *Registry) Ensure(id string) (model.Player, bool) {
	r.mu.RLock()
	e, ok := r.players[id]
	r.mu.RUnlock()
	if ok {
		return e.snapshot(), false
	}

	r.mu.Lock()
	e, ok = r.players[id]
	if !ok {
		e = &entry{p: *model.NewPlayer(id, r.initial, r.now())}
		r.players[id] = e
	}
	n := len(r.players)
	r.mu.Unlock()
	metrics.UpdateRegisteredPlayers(n)
	return e.snapshot(), !ok
}

// Load restores a stored player, replacing any in-memory copy.
func (r *Registry) Load(p model.Player) {
	r.mu.Lock()
	r.players[p.ID] = &entry{p: p}
	n := len(r.players)
	r.mu.Unlock()
	metrics.UpdateRegisteredPlayers(n)
}

// Get returns a copy of the player with id.
func (r *Registry) Get(id string) (model.Player, bool) {
	r.mu.RLock()
	e, ok := r.players[id]
	r.mu.RUnlock()
	if !ok {
		return model.Player{}, false
	}
	return e.snapshot(), true
}

// Update applies fn to the player with id under that player's lock and
// returns the result.
func (r *Registry) Update(id string, fn func(p *model.Player)) (model.Player, error) {
	r.mu.RLock()
	e, ok := r.players[id]
	r.mu.RUnlock()
	if !ok {
		return model.Player{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.p)
	e.p.UpdatedAt = r.now()
	e.p.Version++
	return e.p, nil
}

// List returns every player ordered by id.
func (r *Registry) List() []model.Player {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.players))
	for _, e := range r.players {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]model.Player, len(entries))
	for i, e := range entries {
		out[i] = e.snapshot()
	}
	slices.SortFunc(out, func(a, b model.Player) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (e *entry) snapshot() model.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p
}

package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/codenames/internal/domain/model"
)

type playerRow struct {
	doc     []byte
	version int64
}

type gameRow struct {
	doc     []byte
	started time.Time
	ended   *time.Time
	done    bool
}

// MemoryStore keeps encoded documents in maps. Reads never alias writes.
// Like the SQL stores it keeps the newest player version and never replaces
// a completed game.
type MemoryStore struct {
	mu       sync.RWMutex
	players  map[string]playerRow
	games    map[string]gameRow
	byPlayer map[string][]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:  make(map[string]playerRow),
		games:    make(map[string]gameRow),
		byPlayer: make(map[string][]string),
	}
}

func (s *MemoryStore) SavePlayer(_ context.Context, p *model.Player) error {
	doc, err := encodeDoc(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.players[p.ID]; ok && row.version > p.Version {
		return nil
	}
	s.players[p.ID] = playerRow{doc: doc, version: p.Version}
	return nil
}

func (s *MemoryStore) LoadPlayer(_ context.Context, id string) (*model.Player, error) {
	s.mu.RLock()
	row, ok := s.players[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	var p model.Player
	if err := decodeDoc(row.doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MemoryStore) ListPlayers(_ context.Context) ([]model.Player, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)

	out := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		p, err := s.LoadPlayer(context.Background(), id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *MemoryStore) SaveGame(_ context.Context, g *model.GameRecord) error {
	doc, err := encodeDoc(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.games[g.ID]
	if ok && prev.done {
		return nil
	}
	if !ok {
		for _, id := range g.Roster.Players() {
			s.byPlayer[id] = append(s.byPlayer[id], g.ID)
		}
	}
	s.games[g.ID] = gameRow{doc: doc, started: g.StartedAt, ended: g.EndedAt, done: g.Done()}
	return nil
}

func (s *MemoryStore) LoadGame(_ context.Context, id string) (*model.GameRecord, error) {
	s.mu.RLock()
	row, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, id)
	}
	var g model.GameRecord
	if err := decodeDoc(row.doc, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *MemoryStore) ListGamesByPlayer(_ context.Context, playerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Clone(s.byPlayer[playerID])
	slices.SortStableFunc(ids, func(a, b string) int {
		return s.games[a].started.Compare(s.games[b].started)
	})
	return ids, nil
}

func (s *MemoryStore) ListCompletedGames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, row := range s.games {
		if row.done {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		ea, eb := s.games[a].ended, s.games[b].ended
		if ea != nil && eb != nil {
			if c := ea.Compare(*eb); c != 0 {
				return c
			}
		}
		return strings.Compare(a, b)
	})
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }

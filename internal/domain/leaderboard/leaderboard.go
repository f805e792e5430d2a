// Package leaderboard ranks players by rating for each role and overall.
package leaderboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/okian/codenames/internal/domain/model"
)

// Kind names one of the boards.
type Kind string

const (
	Spymaster Kind = "spymaster"
	Operative Kind = "operative"
	Combined  Kind = "combined"
)

// Kinds lists every board.
var Kinds = []Kind{Spymaster, Operative, Combined}

// ParseKind validates a board name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBoard, s)
}

// Entry is one leaderboard row. Players with equal ratings share a rank.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Rating   float64 `json:"rating"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
}

type record struct {
	rating float64
	wins   int
	losses int
}

// Board is a single ranked list. Ratings may move in both directions.
type Board struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
	rng  *rand.Rand
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{
		byID: make(map[string]record),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Set records the rating and W/L of playerID, replacing any previous entry.
func (b *Board) Set(_ context.Context, playerID string, rating float64, wins, losses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.byID[playerID]; ok {
		b.root = remove(b.root, playerID, old.rating)
	}
	b.byID[playerID] = record{rating: rating, wins: wins, losses: losses}
	b.root = insert(b.root, playerID, rating, b.rng)
}

// Remove drops playerID from the board.
func (b *Board) Remove(_ context.Context, playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.byID[playerID]; ok {
		b.root = remove(b.root, playerID, old.rating)
		delete(b.byID, playerID)
	}
}

// Rank returns the entry of playerID.
func (b *Board) Rank(_ context.Context, playerID string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.byID[playerID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	return Entry{
		Rank:     countAbove(b.root, rec.rating) + 1,
		PlayerID: playerID,
		Rating:   rec.rating,
		Wins:     rec.wins,
		Losses:   rec.losses,
	}, nil
}

// TopN returns the best n entries.
func (b *Board) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(b.byID)))
	collect(b.root, n, &nodes)

	out := make([]Entry, len(nodes))
	for i, nd := range nodes {
		rec := b.byID[nd.id]
		rank := i + 1
		if i > 0 && nd.rating == out[i-1].Rating {
			rank = out[i-1].Rank
		}
		out[i] = Entry{Rank: rank, PlayerID: nd.id, Rating: rec.rating, Wins: rec.wins, Losses: rec.losses}
	}
	return out, nil
}

// Count returns the number of ranked players.
func (b *Board) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

// Set holds the spymaster, operative and combined boards.
type Set struct {
	boards map[Kind]*Board
}

// NewSet returns empty boards for every kind.
func NewSet() *Set {
	s := &Set{boards: make(map[Kind]*Board, len(Kinds))}
	for _, k := range Kinds {
		s.boards[k] = NewBoard()
	}
	return s
}

// Update re-ranks p on every board.
func (s *Set) Update(ctx context.Context, p *model.Player) {
	s.boards[Spymaster].Set(ctx, p.ID, p.Spymaster.Rating, p.Spymaster.Wins, p.Spymaster.Losses)
	s.boards[Operative].Set(ctx, p.ID, p.Operative.Rating, p.Operative.Wins, p.Operative.Losses)
	s.boards[Combined].Set(ctx, p.ID, p.Combined(),
		p.Spymaster.Wins+p.Operative.Wins, p.Spymaster.Losses+p.Operative.Losses)
}

// Board returns the board of kind k.
func (s *Set) Board(k Kind) (*Board, error) {
	b, ok := s.boards[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, k)
	}
	return b, nil
}

// Top returns the best n entries of every board.
func (s *Set) Top(ctx context.Context, n int) (map[Kind][]Entry, error) {
	out := make(map[Kind][]Entry, len(s.boards))
	for k, b := range s.boards {
		entries, err := b.TopN(ctx, n)
		if err != nil {
			return nil, err
		}
		out[k] = entries
	}
	return out, nil
}

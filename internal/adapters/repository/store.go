// Package repository persists players and game records. Documents are stored
// as zstd-compressed JSON next to the few columns the queries need.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/codenames/internal/domain/model"
)

// Store provides read/write access to players and games. Saves are upserts
// that never go backwards: a player is only replaced by an equal or higher
// Version and a completed game is never replaced.
type Store interface {
	SavePlayer(ctx context.Context, p *model.Player) error
	// LoadPlayer returns ErrNotFound for unknown ids.
	LoadPlayer(ctx context.Context, id string) (*model.Player, error)
	ListPlayers(ctx context.Context) ([]model.Player, error)

	SaveGame(ctx context.Context, g *model.GameRecord) error
	// LoadGame returns ErrNotFound for unknown ids.
	LoadGame(ctx context.Context, id string) (*model.GameRecord, error)
	// ListGamesByPlayer returns the ids of every game playerID took part in,
	// oldest first.
	ListGamesByPlayer(ctx context.Context, playerID string) ([]string, error)
	// ListCompletedGames returns the ids of completed games in completion order.
	ListCompletedGames(ctx context.Context) ([]string, error)

	Close() error
}

// Open picks the store implementation from url: memory://, sqlite://<path>,
// postgres:// or postgresql://.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case url == "" || strings.HasPrefix(url, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresStore(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, url)
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/codenames/internal/domain/model"
)

// PostgresStore keeps players and games in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connStr and creates the schema when needed.
// The caller is responsible for calling Close.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to connect to database: %w", ErrPersistence, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: unable to reach database: %w", ErrPersistence, err)
	}

	stmts, err := statements("postgres")
	if err != nil {
		pool.Close()
		return nil, err
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%w: failed to execute migration: %w", ErrPersistence, err)
		}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SavePlayer(ctx context.Context, p *model.Player) error {
	doc, err := encodeDoc(p)
	if err != nil {
		return err
	}
	q := `
	INSERT INTO players (player_id, version, doc, updated_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (player_id) DO UPDATE SET version = $2, doc = $3, updated_at = $4
	WHERE players.version <= $2;
	`
	if _, err := s.pool.Exec(ctx, q, p.ID, p.Version, doc, p.UpdatedAt); err != nil {
		return fmt.Errorf("%w: failed to save player: %w", ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) LoadPlayer(ctx context.Context, id string) (*model.Player, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM players WHERE player_id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan player: %w", ErrPersistence, err)
	}
	var p model.Player
	if err := decodeDoc(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ListPlayers(ctx context.Context) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM players ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query players: %w", ErrPersistence, err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan players: %w", ErrPersistence, err)
	}

	out := make([]model.Player, len(docs))
	for i, doc := range docs {
		if err := decodeDoc(doc, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) SaveGame(ctx context.Context, g *model.GameRecord) error {
	doc, err := encodeDoc(g)
	if err != nil {
		return err
	}
	var ended *time.Time
	if g.EndedAt != nil {
		t := *g.EndedAt
		ended = &t
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// A completed game is final.
	q := `
	INSERT INTO games (game_id, status, started_at, ended_at, doc) VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (game_id) DO UPDATE SET status = $2, ended_at = $4, doc = $5
	WHERE games.status <> $6;
	`
	if _, err := tx.Exec(ctx, q, g.ID, string(g.Phase), g.StartedAt, ended, doc, string(model.Completed)); err != nil {
		return fmt.Errorf("%w: failed to save game: %w", ErrPersistence, err)
	}
	for _, id := range g.Roster.Players() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO game_players (game_id, player_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, g.ID, id); err != nil {
			return fmt.Errorf("%w: failed to index game player: %w", ErrPersistence, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) LoadGame(ctx context.Context, id string) (*model.GameRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM games WHERE game_id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan game: %w", ErrPersistence, err)
	}
	var g model.GameRecord
	if err := decodeDoc(doc, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PostgresStore) ListGamesByPlayer(ctx context.Context, playerID string) ([]string, error) {
	q := `
	SELECT g.game_id FROM game_players gp
	JOIN games g ON g.game_id = gp.game_id
	WHERE gp.player_id = $1
	ORDER BY g.started_at, g.game_id
	`
	return s.ids(ctx, q, playerID)
}

func (s *PostgresStore) ListCompletedGames(ctx context.Context) ([]string, error) {
	q := `
	SELECT game_id FROM games
	WHERE status = $1
	ORDER BY ended_at, game_id
	`
	return s.ids(ctx, q, string(model.Completed))
}

func (s *PostgresStore) ids(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query games: %w", ErrPersistence, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan game ids: %w", ErrPersistence, err)
	}
	return ids, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/okian/codenames/internal/domain/model"
)

// SQLiteStore keeps players and games in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path, creating the schema when needed.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrPersistence, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	stmts, err := statements("sqlite")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to execute migration: %w", ErrPersistence, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePlayer(ctx context.Context, p *model.Player) error {
	doc, err := encodeDoc(p)
	if err != nil {
		return err
	}
	q := `
	INSERT INTO players (player_id, version, doc, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (player_id) DO UPDATE
	SET version = excluded.version, doc = excluded.doc, updated_at = excluded.updated_at
	WHERE excluded.version >= players.version;
	`
	if _, err := s.db.ExecContext(ctx, q, p.ID, p.Version, doc, p.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("%w: failed to save player: %w", ErrPersistence, err)
	}
	return nil
}

func (s *SQLiteStore) LoadPlayer(ctx context.Context, id string) (*model.Player, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM players WHERE player_id = ?;`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM players ORDER BY player_id;`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query players: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Player
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to scan player: %w", ErrPersistence, err)
		}
		var p model.Player
		if err := decodeDoc(doc, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveGame(ctx context.Context, g *model.GameRecord) error {
	doc, err := encodeDoc(g)
	if err != nil {
		return err
	}
	var ended *time.Time
	if g.EndedAt != nil {
		t := g.EndedAt.UTC()
		ended = &t
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	// A completed game is final.
	q := `
	INSERT INTO games (game_id, status, started_at, ended_at, doc)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (game_id) DO UPDATE
	SET status = excluded.status, ended_at = excluded.ended_at, doc = excluded.doc
	WHERE games.status <> ?;
	`
	if _, err := tx.ExecContext(ctx, q, g.ID, string(g.Phase), g.StartedAt.UTC(), ended, doc, string(model.Completed)); err != nil {
		return fmt.Errorf("%w: failed to save game: %w", ErrPersistence, err)
	}
	for _, id := range g.Roster.Players() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO game_players (game_id, player_id) VALUES (?, ?);`, g.ID, id); err != nil {
			return fmt.Errorf("%w: failed to index game player: %w", ErrPersistence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrPersistence, err)
	}
	return nil
}

func (s *SQLiteStore) LoadGame(ctx context.Context, id string) (*model.GameRecord, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM games WHERE game_id = ?;`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) ListGamesByPlayer(ctx context.Context, playerID string) ([]string, error) {
	q := `
	SELECT g.game_id FROM game_players gp
	JOIN games g ON g.game_id = gp.game_id
	WHERE gp.player_id = ?
	ORDER BY g.started_at, g.game_id;
	`
	return s.ids(ctx, q, playerID)
}

func (s *SQLiteStore) ListCompletedGames(ctx context.Context) ([]string, error) {
	q := `
	SELECT game_id FROM games
	WHERE status = ?
	ORDER BY ended_at, game_id;
	`
	return s.ids(ctx, q, string(model.Completed))
}

func (s *SQLiteStore) ids(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query games: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan game id: %w", ErrPersistence, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return out, nil
}

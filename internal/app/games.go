package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/codenames/internal/adapters/mailbox"
	"github.com/okian/codenames/internal/adapters/repository"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/internal/domain/types"
	"github.com/samber/lo"
)

// SubmitClue answers the clue request of playerID in gameID.
func (s *Service) SubmitClue(ctx context.Context, gameID, playerID, requestID, word string, count int) (game.Outcome, error) {
	return s.Submit(ctx, gameID, playerID, turn.Move{
		RequestID: requestID,
		Kind:      turn.KindClue,
		Word:      word,
		Count:     count,
	})
}

// SubmitGuesses answers the guess request of playerID in gameID. An empty
// list passes the turn.
func (s *Service) SubmitGuesses(ctx context.Context, gameID, playerID, requestID string, words []string) (game.Outcome, error) {
	return s.Submit(ctx, gameID, playerID, turn.Move{
		RequestID: requestID,
		Kind:      turn.KindGuess,
		Words:     words,
	})
}

// Submit delivers mv to the game's coordinator and waits for it to be
// applied. Moves from the wrong player, for the wrong phase or for a
// finished game are rejected without touching the game. Illegal moves are
// applied as forfeits and reported with a game.ErrValidation error.
func (s *Service) Submit(ctx context.Context, gameID, playerID string, mv turn.Move) (game.Outcome, error) {
	s.pool.Touch(playerID)

	g, live := s.coord.Game(gameID)
	if !live {
		if s.finished(ctx, gameID) {
			return game.Outcome{}, game.ErrGameOver
		}
		return game.Outcome{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	seat, ok := g.Roster().SeatOf(playerID)
	if !ok {
		return game.Outcome{}, fmt.Errorf("%w: %s", game.ErrNotInGame, playerID)
	}
	_, awaited, running := g.Awaiting()
	switch {
	case !running:
		return game.Outcome{}, game.ErrGameOver
	case awaited != playerID:
		return game.Outcome{}, fmt.Errorf("%w: waiting on %s", game.ErrNotYourTurn, awaited)
	case turn.KindFor(seat.Role) != mv.Kind:
		return game.Outcome{}, fmt.Errorf("%w: %s gives a %s", mailbox.ErrWrongKind, seat.Role, turn.KindFor(seat.Role))
	}
	return s.mailbox.Deliver(ctx, gameID, playerID, mv)
}

func (s *Service) finished(ctx context.Context, gameID string) bool {
	if _, ok := s.recorder.Recent(gameID); ok {
		return true
	}
	rec, err := s.store.LoadGame(ctx, gameID)
	return err == nil && rec.Done()
}

// GameLog returns the history of gameID as requesterID may see it.
func (s *Service) GameLog(ctx context.Context, gameID, requesterID string) (game.Log, error) {
	if g, ok := s.coord.Game(gameID); ok {
		return g.Log(requesterID), nil
	}
	if rec, ok := s.recorder.Recent(gameID); ok {
		return game.Scrub(rec, requesterID), nil
	}
	rec, err := s.store.LoadGame(ctx, gameID)
	if errors.Is(err, repository.ErrNotFound) {
		return game.Log{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return game.Log{}, err
	}
	return game.Scrub(rec, requesterID), nil
}

// PlayerGames returns every game playerID took part in, including the one
// it is playing now.
func (s *Service) PlayerGames(ctx context.Context, playerID string) ([]string, error) {
	if _, err := s.Player(playerID); err != nil {
		return nil, err
	}
	stored, err := s.store.ListGamesByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	ids := append(stored, s.recorder.RecentIDs(func(rec *model.GameRecord) bool {
		_, ok := rec.Roster.SeatOf(playerID)
		return ok
	})...)
	if current, ok := s.pool.GameOf(playerID); ok {
		ids = append(ids, current)
	}
	return lo.Uniq(ids), nil
}

// CompletedGames returns the ids of completed games in completion order.
func (s *Service) CompletedGames(ctx context.Context) ([]string, error) {
	stored, err := s.store.ListCompletedGames(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(append(stored, s.recorder.RecentIDs(nil)...)), nil
}

// ActiveCount returns the number of games in progress.
func (s *Service) ActiveCount() int { return s.coord.Len() }

// Leaderboards returns the best limit entries of the board named kind, or of
// every board when kind is empty.
func (s *Service) Leaderboards(ctx context.Context, kind string, limit int) (types.Leaderboards, error) {
	if limit < 1 || limit > s.cfg.MaxLeaderboardLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", leaderboard.ErrInvalidLimit, s.cfg.MaxLeaderboardLimit)
	}
	if kind == "" {
		top, err := s.boards.Top(ctx, limit)
		return types.Leaderboards(top), err
	}
	k, err := leaderboard.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	b, err := s.boards.Board(k)
	if err != nil {
		return nil, err
	}
	entries, err := b.TopN(ctx, limit)
	if err != nil {
		return nil, err
	}
	return types.Leaderboards{k: entries}, nil
}

// Rank returns the leaderboard entry of playerID on the board named kind.
func (s *Service) Rank(ctx context.Context, kind, playerID string) (types.Entry, error) {
	k, err := leaderboard.ParseKind(kind)
	if err != nil {
		return types.Entry{}, err
	}
	b, err := s.boards.Board(k)
	if err != nil {
		return types.Entry{}, err
	}
	return b.Rank(ctx, playerID)
}

package model

import (
	"time"

	"github.com/okian/codenames/internal/domain/board"
)

// Phase is the state of a game.
type Phase string

const (
	AwaitingClue  Phase = "awaiting_clue"
	AwaitingGuess Phase = "awaiting_guess"
	Completed     Phase = "completed"
)

// EndReason explains how a game ended.
type EndReason string

const (
	EndAllWordsFound EndReason = "all_words_found"
	EndAssassin      EndReason = "assassin"
	EndForfeit       EndReason = "forfeit"
	EndAbandoned     EndReason = "abandoned"
)

// ForfeitCause explains why a turn was forfeited.
type ForfeitCause string

const (
	CauseTimeout      ForfeitCause = "timeout"
	CauseIllegalClue  ForfeitCause = "illegal_clue"
	CauseIllegalGuess ForfeitCause = "illegal_guess"
	CauseMalformed    ForfeitCause = "malformed"
)

// Clue is a one-word hint with the number of related words.
type Clue struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// EventKind names an entry of a game's history.
type EventKind string

const (
	EventGameStarted   EventKind = "game_started"
	EventClueGiven     EventKind = "clue_given"
	EventClueRejected  EventKind = "clue_rejected"
	EventGuess         EventKind = "guess"
	EventGuessRejected EventKind = "guess_rejected"
	EventTurnPassed    EventKind = "turn_passed"
	EventTurnForfeited EventKind = "turn_forfeited"
	EventGameCompleted EventKind = "game_completed"
)

// GameEvent is one append-only history entry.
type GameEvent struct {
	Seq      int          `json:"seq"`
	Kind     EventKind    `json:"kind"`
	At       time.Time    `json:"at"`
	Turn     int          `json:"turn"`
	Team     Team         `json:"team,omitempty"`
	Role     Role         `json:"role,omitempty"`
	PlayerID string       `json:"player_id,omitempty"`
	Word     string       `json:"word,omitempty"`
	Count    *int         `json:"count,omitempty"`
	Color    *board.Color `json:"color,omitempty"`
	Cause    ForfeitCause `json:"cause,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Winner   Team         `json:"winner,omitempty"`
}

// RatingChange records one role rating update applied at completion.
type RatingChange struct {
	PlayerID string  `json:"player_id"`
	Role     Role    `json:"role"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
}

// GameRecord is the persisted form of a game.
type GameRecord struct {
	ID        string         `json:"id"`
	Board     *board.Board   `json:"board"`
	Roster    Roster         `json:"roster"`
	Phase     Phase          `json:"phase"`
	TurnTeam  Team           `json:"turn_team"`
	Turn      int            `json:"turn"`
	Clue      *Clue          `json:"clue,omitempty"`
	Remaining map[Team]int   `json:"remaining"`
	Winner    Team           `json:"winner,omitempty"`
	EndReason EndReason      `json:"end_reason,omitempty"`
	Flagged   []string       `json:"flagged,omitempty"`
	Ratings   []RatingChange `json:"ratings,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Events    []GameEvent    `json:"events"`
}

// Done reports whether the record is terminal.
func (g *GameRecord) Done() bool { return g.Phase == Completed }

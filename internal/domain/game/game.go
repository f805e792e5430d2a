// Package game implements the Codenames state machine for a single game.
//
// A Game is safe for concurrent use: every transition takes the game's own
// mutex, so two turns can never mutate the same game at once while separate
// games proceed independently.
package game

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/samber/lo"
)

const defaultMaxForfeits = 3

// Option configures a Game.
type Option func(*Game)

// WithMaxForfeits sets how many consecutive forfeits by one player end the
// game. Values below 1 are ignored.
func WithMaxForfeits(n int) Option {
	return func(g *Game) {
		if n >= 1 {
			g.maxForfeits = n
		}
	}
}

// WithValidator replaces the clue validator.
func WithValidator(v ClueValidator) Option {
	return func(g *Game) {
		if v != nil {
			g.validator = v
		}
	}
}

// WithClock sets the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		if now != nil {
			g.now = now
		}
	}
}

// Game owns one board, its turn order and its history.
type Game struct {
	mu sync.Mutex

	id     string
	board  *board.Board
	roster model.Roster

	phase     model.Phase
	turnTeam  model.Team
	turn      int
	clue      *model.Clue
	budget    int
	winner    model.Team
	endReason model.EndReason

	forfeits map[string]int
	flagged  map[string]bool
	events   []model.GameEvent

	startedAt     time.Time
	turnStartedAt time.Time
	endedAt       time.Time

	maxForfeits int
	validator   ClueValidator
	now         func() time.Time
}

// Reveal is one word turned over by a guess.
type Reveal struct {
	Word  string      `json:"word"`
	Color board.Color `json:"color"`
}

// Outcome summarizes what a transition did.
type Outcome struct {
	Phase     model.Phase `json:"phase"`
	Revealed  []Reveal    `json:"revealed,omitempty"`
	TurnEnded bool        `json:"turn_ended"`
	Forfeited bool        `json:"forfeited"`
	Done      bool        `json:"done"`
	Winner    model.Team  `json:"winner,omitempty"`
}

// New starts a game in AwaitingClue for the red team, which owns the extra word.
func New(id string, b *board.Board, roster model.Roster, opts ...Option) (*Game, error) {
	players := roster.Players()
	if len(lo.Uniq(players)) != len(players) || lo.Contains(players, "") {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, players)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	g := &Game{
		id:          id,
		board:       b,
		roster:      roster,
		phase:       model.AwaitingClue,
		turnTeam:    model.Red,
		turn:        1,
		forfeits:    make(map[string]int),
		flagged:     make(map[string]bool),
		maxForfeits: defaultMaxForfeits,
		validator:   RuleValidator{StemCheck: true},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.startedAt = g.now()
	g.turnStartedAt = g.startedAt
	g.appendLocked(model.GameEvent{Kind: model.EventGameStarted})
	return g, nil
}

// ID returns the game id.
func (g *Game) ID() string { return g.id }

// Roster returns the seated players.
func (g *Game) Roster() model.Roster { return g.roster }

// Awaiting returns the seat and player whose move is expected. ok is false
// once the game is completed.
func (g *Game) Awaiting() (seat model.Seat, playerID string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase == model.Completed {
		return model.Seat{}, "", false
	}
	seat = g.awaitedSeatLocked()
	return seat, g.roster.Player(seat), true
}

// AwaitingSince returns when the current turn step began.
func (g *Game) AwaitingSince() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turnStartedAt
}

// Done reports whether the game is completed.
func (g *Game) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase == model.Completed
}

// Winner returns the winning team, empty while in progress or when abandoned.
func (g *Game) Winner() model.Team {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// Flagged lists players flagged for removal by repeated forfeits.
func (g *Game) Flagged() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flaggedLocked()
}

// SubmitClue applies a clue from the current team's spymaster. Rejections for
// the wrong player or phase leave the game untouched. An illegal clue forfeits
// the turn and is reported as ErrIllegalClue together with the outcome.
func (g *Game) SubmitClue(playerID, word string, count int) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkTurnLocked(playerID, model.AwaitingClue); err != nil {
		return g.outcomeLocked(), err
	}

	own := g.board.Remaining(g.turnTeam.Color())
	if err := g.validator.ValidateClue(word, count, g.board.Unrevealed(), own); err != nil {
		g.appendLocked(model.GameEvent{
			Kind:     model.EventClueRejected,
			Team:     g.turnTeam,
			Role:     model.Spymaster,
			PlayerID: playerID,
			Word:     word,
			Count:    &count,
			Reason:   err.Error(),
		})
		out := g.forfeitLocked(playerID, model.CauseIllegalClue)
		return out, err
	}

	clue := model.Clue{Word: word, Count: count}
	g.clue = &clue
	g.budget = count + 1
	g.phase = model.AwaitingGuess
	g.turnStartedAt = g.now()
	g.forfeits[playerID] = 0
	g.appendLocked(model.GameEvent{
		Kind:     model.EventClueGiven,
		Team:     g.turnTeam,
		Role:     model.Spymaster,
		PlayerID: playerID,
		Word:     word,
		Count:    &count,
	})
	return g.outcomeLocked(), nil
}

// SubmitGuesses applies the operative's ordered guesses, one at a time, until
// the budget runs out, a non-own word is revealed or the game ends. Words past
// that point are ignored. An empty list passes the turn. A word that is not an
// unrevealed board word forfeits the turn with ErrIllegalGuess; reveals made
// before it stand.
func (g *Game) SubmitGuesses(playerID string, words []string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkTurnLocked(playerID, model.AwaitingGuess); err != nil {
		return g.outcomeLocked(), err
	}

	if len(words) == 0 {
		g.forfeits[playerID] = 0
		g.appendLocked(model.GameEvent{
			Kind:     model.EventTurnPassed,
			Team:     g.turnTeam,
			Role:     model.Operative,
			PlayerID: playerID,
		})
		g.endTurnLocked()
		out := g.outcomeLocked()
		out.TurnEnded = true
		return out, nil
	}

	team := g.turnTeam
	var revealed []Reveal
	for _, word := range words {
		if g.budget == 0 {
			break
		}

		idx := g.board.Index(word)
		if idx < 0 || g.board.Revealed[idx] {
			g.appendLocked(model.GameEvent{
				Kind:     model.EventGuessRejected,
				Team:     team,
				Role:     model.Operative,
				PlayerID: playerID,
				Word:     word,
			})
			out := g.forfeitLocked(playerID, model.CauseIllegalGuess)
			out.Revealed = revealed
			return out, fmt.Errorf("%w: %q is not an unrevealed board word", ErrIllegalGuess, word)
		}

		color := g.board.Reveal(idx)
		g.budget--
		revealed = append(revealed, Reveal{Word: g.board.Words[idx], Color: color})
		g.appendLocked(model.GameEvent{
			Kind:     model.EventGuess,
			Team:     team,
			Role:     model.Operative,
			PlayerID: playerID,
			Word:     g.board.Words[idx],
			Color:    &color,
		})

		if color == board.Assassin {
			g.completeLocked(team.Other(), model.EndAssassin)
			return g.withReveals(revealed), nil
		}

		owner, isTeam := model.TeamOf(color)
		if isTeam && g.board.Remaining(owner.Color()) == 0 {
			g.completeLocked(owner, model.EndAllWordsFound)
			return g.withReveals(revealed), nil
		}
		if owner != team {
			break
		}
	}

	g.forfeits[playerID] = 0
	g.endTurnLocked()
	out := g.withReveals(revealed)
	out.TurnEnded = true
	return out, nil
}

// Forfeit forfeits the current turn of playerID, e.g. after a missed deadline
// or an unparseable reply. Only the awaited player can forfeit.
func (g *Game) Forfeit(playerID string, cause model.ForfeitCause) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == model.Completed {
		return g.outcomeLocked(), ErrGameOver
	}
	if g.roster.Player(g.awaitedSeatLocked()) != playerID {
		return g.outcomeLocked(), ErrNotYourTurn
	}
	return g.forfeitLocked(playerID, cause), nil
}

// Abandon completes the game without a winner. It is used when the arena
// shuts down mid-game. Abandoning a completed game is a no-op.
func (g *Game) Abandon() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != model.Completed {
		g.completeLocked("", model.EndAbandoned)
	}
}

// Record returns a deep copy of the full game state.
func (g *Game) Record() *model.GameRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec := &model.GameRecord{
		ID:       g.id,
		Board:    g.board.Clone(),
		Roster:   g.roster,
		Phase:    g.phase,
		TurnTeam: g.turnTeam,
		Turn:     g.turn,
		Remaining: map[model.Team]int{
			model.Red:  g.board.Remaining(board.Red),
			model.Blue: g.board.Remaining(board.Blue),
		},
		Winner:    g.winner,
		EndReason: g.endReason,
		Flagged:   g.flaggedLocked(),
		StartedAt: g.startedAt,
		Events:    slices.Clone(g.events),
	}
	if g.clue != nil {
		c := *g.clue
		rec.Clue = &c
	}
	if !g.endedAt.IsZero() {
		t := g.endedAt
		rec.EndedAt = &t
	}
	return rec
}

func (g *Game) awaitedSeatLocked() model.Seat {
	role := model.Spymaster
	if g.phase == model.AwaitingGuess {
		role = model.Operative
	}
	return model.Seat{Team: g.turnTeam, Role: role}
}

func (g *Game) checkTurnLocked(playerID string, want model.Phase) error {
	if g.phase == model.Completed {
		return ErrGameOver
	}
	if g.phase != want {
		return ErrWrongPhase
	}
	if g.roster.Player(g.awaitedSeatLocked()) != playerID {
		return ErrNotYourTurn
	}
	return nil
}

func (g *Game) forfeitLocked(playerID string, cause model.ForfeitCause) Outcome {
	seat := g.awaitedSeatLocked()
	g.forfeits[playerID]++
	g.appendLocked(model.GameEvent{
		Kind:     model.EventTurnForfeited,
		Team:     seat.Team,
		Role:     seat.Role,
		PlayerID: playerID,
		Cause:    cause,
	})

	if g.forfeits[playerID] >= g.maxForfeits {
		g.flagged[playerID] = true
		g.completeLocked(seat.Team.Other(), model.EndForfeit)
		out := g.outcomeLocked()
		out.Forfeited = true
		return out
	}

	g.endTurnLocked()
	out := g.outcomeLocked()
	out.TurnEnded = true
	out.Forfeited = true
	return out
}

func (g *Game) endTurnLocked() {
	g.turnTeam = g.turnTeam.Other()
	g.phase = model.AwaitingClue
	g.clue = nil
	g.budget = 0
	g.turn++
	g.turnStartedAt = g.now()
}

func (g *Game) completeLocked(winner model.Team, reason model.EndReason) {
	g.phase = model.Completed
	g.winner = winner
	g.endReason = reason
	g.budget = 0
	g.endedAt = g.now()
	g.appendLocked(model.GameEvent{
		Kind:   model.EventGameCompleted,
		Winner: winner,
		Reason: string(reason),
	})
}

func (g *Game) appendLocked(e model.GameEvent) {
	e.Seq = len(g.events) + 1
	e.Turn = g.turn
	if e.At.IsZero() {
		e.At = g.now()
	}
	g.events = append(g.events, e)
}

func (g *Game) outcomeLocked() Outcome {
	return Outcome{
		Phase:  g.phase,
		Done:   g.phase == model.Completed,
		Winner: g.winner,
	}
}

func (g *Game) withReveals(r []Reveal) Outcome {
	out := g.outcomeLocked()
	out.Revealed = r
	return out
}

func (g *Game) flaggedLocked() []string {
	out := lo.Keys(g.flagged)
	slices.Sort(out)
	return out
}

package game

import (
	"slices"
	"time"

	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/model"
)

// View is the board as one seat is allowed to see it.
type View struct {
	GameID      string             `json:"game_id"`
	Seat        model.Seat         `json:"seat"`
	Phase       model.Phase        `json:"phase"`
	TurnTeam    model.Team         `json:"turn_team"`
	Turn        int                `json:"turn"`
	Words       []string           `json:"words"`
	Revealed    []bool             `json:"revealed"`
	Colors      []*board.Color     `json:"colors"`
	Clue        *model.Clue        `json:"clue,omitempty"`
	GuessesLeft int                `json:"guesses_left"`
	Remaining   map[model.Team]int `json:"remaining"`
}

// ViewFor builds the view of playerID. Spymasters see every color; operatives
// only see colors of revealed words and the current clue.
func (g *Game) ViewFor(playerID string) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seat, ok := g.roster.SeatOf(playerID)
	if !ok {
		return View{}, ErrNotInGame
	}

	v := View{
		GameID:   g.id,
		Seat:     seat,
		Phase:    g.phase,
		TurnTeam: g.turnTeam,
		Turn:     g.turn,
		Words:    slices.Clone(g.board.Words[:]),
		Revealed: slices.Clone(g.board.Revealed[:]),
		Remaining: map[model.Team]int{
			model.Red:  g.board.Remaining(board.Red),
			model.Blue: g.board.Remaining(board.Blue),
		},
		GuessesLeft: g.budget,
	}
	if g.clue != nil {
		c := *g.clue
		v.Clue = &c
	}
	if seat.Role == model.Spymaster {
		v.Colors = allColors(g.board)
	} else {
		v.Colors = g.board.Public()
	}
	return v, nil
}

// Log is a game record scrubbed for one requester.
type Log struct {
	ID        string               `json:"id"`
	Roster    model.Roster         `json:"roster"`
	Phase     model.Phase          `json:"phase"`
	TurnTeam  model.Team           `json:"turn_team"`
	Turn      int                  `json:"turn"`
	Clue      *model.Clue          `json:"clue,omitempty"`
	Remaining map[model.Team]int   `json:"remaining"`
	Winner    model.Team           `json:"winner,omitempty"`
	EndReason model.EndReason      `json:"end_reason,omitempty"`
	Words     []string             `json:"words"`
	Revealed  []bool               `json:"revealed"`
	Colors    []*board.Color       `json:"colors"`
	Ratings   []model.RatingChange `json:"ratings,omitempty"`
	StartedAt time.Time            `json:"started_at"`
	EndedAt   *time.Time           `json:"ended_at,omitempty"`
	Events    []model.GameEvent    `json:"events"`
}

// Log returns the live game scrubbed for requesterID.
func (g *Game) Log(requesterID string) Log {
	return Scrub(g.Record(), requesterID)
}

// Scrub hides what requesterID may not know. While the game is in progress
// only its spymasters see the color key. Rejected clues are only detailed to
// the spymaster who gave them and rejected guess words only to the operative
// who made them, also after the game ends.
func Scrub(rec *model.GameRecord, requesterID string) Log {
	l := Log{
		ID:        rec.ID,
		Roster:    rec.Roster,
		Phase:     rec.Phase,
		TurnTeam:  rec.TurnTeam,
		Turn:      rec.Turn,
		Clue:      rec.Clue,
		Remaining: rec.Remaining,
		Winner:    rec.Winner,
		EndReason: rec.EndReason,
		Words:     slices.Clone(rec.Board.Words[:]),
		Revealed:  slices.Clone(rec.Board.Revealed[:]),
		Ratings:   rec.Ratings,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
	}

	seat, seated := rec.Roster.SeatOf(requesterID)
	if rec.Done() || (seated && seat.Role == model.Spymaster) {
		l.Colors = allColors(rec.Board)
	} else {
		l.Colors = rec.Board.Public()
	}

	l.Events = make([]model.GameEvent, len(rec.Events))
	for i, e := range rec.Events {
		if (e.Kind == model.EventClueRejected || e.Kind == model.EventGuessRejected) && e.PlayerID != requesterID {
			e.Word = ""
			e.Count = nil
			e.Reason = ""
		}
		l.Events[i] = e
	}
	return l
}

func allColors(b *board.Board) []*board.Color {
	out := make([]*board.Color, board.Size)
	for i := range b.Colors {
		c := b.Colors[i]
		out[i] = &c
	}
	return out
}

package botsim_test

import (
	"math/rand/v2"
	"testing"

	"github.com/okian/codenames/internal/botsim"
	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func view(seat model.Seat, guessesLeft int) game.View {
	words := board.DefaultWords()[:board.Size]
	revealed := make([]bool, board.Size)
	for i := 0; i < 20; i++ {
		revealed[i] = true
	}
	return game.View{
		GameID:      "g1",
		Seat:        seat,
		Phase:       model.AwaitingGuess,
		Words:       words,
		Revealed:    revealed,
		GuessesLeft: guessesLeft,
		Remaining:   map[model.Team]int{model.Red: 3, model.Blue: 2},
	}
}

func TestRandomStrategy(t *testing.T) {
	Convey("Given a seeded random strategy", t, func() {
		s := botsim.NewRandom(rand.New(rand.NewPCG(7, 11)))

		Convey("Its clues pass the arena's clue rules", func() {
			v := view(model.Seat{Team: model.Red, Role: model.Spymaster}, 0)
			unrevealed := v.Words[20:]
			for range 20 {
				word, count := s.Clue(v)
				So(word, ShouldNotBeEmpty)
				So(count, ShouldEqual, 1)
				So(game.RuleValidator{StemCheck: true}.ValidateClue(word, count, unrevealed, 3), ShouldBeNil)
			}
		})

		Convey("A spymaster with nothing left gives a zero clue", func() {
			v := view(model.Seat{Team: model.Red, Role: model.Spymaster}, 0)
			v.Remaining[model.Red] = 0
			_, count := s.Clue(v)
			So(count, ShouldEqual, 0)
		})

		Convey("Its guesses are distinct unrevealed words within the budget", func() {
			v := view(model.Seat{Team: model.Blue, Role: model.Operative}, 2)
			for range 20 {
				guesses := s.Guess(v)
				So(len(guesses), ShouldBeBetweenOrEqual, 1, 2)
				So(lo.Uniq(guesses), ShouldResemble, guesses)
				for _, g := range guesses {
					So(v.Words[20:], ShouldContain, g)
				}
			}
		})

		Convey("A fully revealed board yields an empty guess list", func() {
			v := view(model.Seat{Team: model.Blue, Role: model.Operative}, 2)
			for i := range v.Revealed {
				v.Revealed[i] = true
			}
			So(s.Guess(v), ShouldBeEmpty)
		})
	})
}

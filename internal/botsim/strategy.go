package botsim

import (
	"math/rand/v2"

	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/game"
)

// Strategy picks the moves of a bot.
type Strategy interface {
	Clue(v game.View) (word string, count int)
	Guess(v game.View) []string
}

// Random gives legal one-word clues for a single word and guesses unrevealed
// words at random. It never passes.
type Random struct {
	rng        *rand.Rand
	vocabulary []string
	validator  game.RuleValidator
}

// NewRandom returns a Random strategy drawing clues from the default word list.
func NewRandom(rng *rand.Rand) *Random {
	return &Random{
		rng:        rng,
		vocabulary: board.DefaultWords(),
		validator:  game.RuleValidator{StemCheck: true},
	}
}

// Clue returns the first vocabulary word, in random order, that the arena
// would accept. It returns an empty word when none is legal.
func (r *Random) Clue(v game.View) (string, int) {
	own := v.Remaining[v.Seat.Team]
	count := min(1, own)
	unrevealed := unrevealedWords(v)
	for _, i := range r.rng.Perm(len(r.vocabulary)) {
		w := r.vocabulary[i]
		if r.validator.ValidateClue(w, count, unrevealed, own) == nil {
			return w, count
		}
	}
	return "", count
}

// Guess returns between one and GuessesLeft distinct unrevealed words.
func (r *Random) Guess(v game.View) []string {
	unrevealed := unrevealedWords(v)
	if len(unrevealed) == 0 {
		return []string{}
	}
	limit := min(max(v.GuessesLeft, 1), len(unrevealed))
	n := 1 + r.rng.IntN(limit)
	picks := r.rng.Perm(len(unrevealed))[:n]
	out := make([]string, 0, n)
	for _, i := range picks {
		out = append(out, unrevealed[i])
	}
	return out
}

func unrevealedWords(v game.View) []string {
	out := make([]string, 0, len(v.Words))
	for i, w := range v.Words {
		if i < len(v.Revealed) && !v.Revealed[i] {
			out = append(out, w)
		}
	}
	return out
}

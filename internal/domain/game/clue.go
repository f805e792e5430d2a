package game

import (
	"fmt"
	"strings"

	"github.com/okian/codenames/internal/domain/board"
)

// ClueValidator decides whether a clue is legal for the current board.
// unrevealed holds every word that may still be guessed; ownRemaining is the
// number of unrevealed words of the clue-giving team.
type ClueValidator interface {
	ValidateClue(word string, count int, unrevealed []string, ownRemaining int) error
}

// RuleValidator applies the exact-match and substring rules, plus an
// optional suffix-stripping stem comparison.
type RuleValidator struct {
	StemCheck bool
}

// ValidateClue implements ClueValidator.
func (v RuleValidator) ValidateClue(word string, count int, unrevealed []string, ownRemaining int) error {
	w := strings.ToLower(strings.TrimSpace(word))
	switch {
	case w == "":
		return fmt.Errorf("%w: empty clue", ErrIllegalClue)
	case strings.ContainsAny(w, " \t\n"):
		return fmt.Errorf("%w: %q is more than one word", ErrIllegalClue, word)
	case strings.Contains(w, "-"):
		return fmt.Errorf("%w: %q is hyphenated", ErrIllegalClue, word)
	case !board.IsWord(w):
		return fmt.Errorf("%w: %q is not alphabetic", ErrIllegalClue, word)
	}

	for _, b := range unrevealed {
		switch {
		case w == b:
			return fmt.Errorf("%w: %q is on the board", ErrIllegalClue, word)
		case strings.Contains(b, w), strings.Contains(w, b):
			return fmt.Errorf("%w: %q overlaps board word %q", ErrIllegalClue, word, b)
		case v.StemCheck && stem(w) == stem(b):
			return fmt.Errorf("%w: %q shares a stem with board word %q", ErrIllegalClue, word, b)
		}
	}

	if count < 0 || count > ownRemaining+1 {
		return fmt.Errorf("%w: count %d outside 0..%d", ErrIllegalClue, count, ownRemaining+1)
	}
	return nil
}

var suffixes = []struct{ from, to string }{
	{"ies", "y"}, {"ing", ""}, {"ers", ""}, {"ed", ""}, {"es", ""},
	{"er", ""}, {"ly", ""}, {"s", ""}, {"e", ""},
}

// stem strips one common English suffix and a doubled final consonant.
func stem(w string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(w, s.from) && len(w)-len(s.from) >= 3 {
			w = strings.TrimSuffix(w, s.from) + s.to
			break
		}
	}
	if n := len(w); n >= 4 && w[n-1] == w[n-2] && !strings.ContainsRune("aeiou", rune(w[n-1])) {
		w = w[:n-1]
	}
	return w
}

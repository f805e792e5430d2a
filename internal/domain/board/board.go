// Package board generates and tracks Codenames boards.
package board

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
)

// Board layout. Red always opens and therefore holds the extra word.
const (
	Size          = 25
	StartingWords = 9
	SecondWords   = 8
	NeutralWords  = 7
	AssassinWords = 1
	StartingColor = Red
	SecondColor   = Blue
)

// Board is an ordered set of 25 words with their hidden colors and reveal
// flags. It is not safe for concurrent use; the owning game serializes access.
type Board struct {
	Words    [Size]string `json:"words"`
	Colors   [Size]Color  `json:"colors"`
	Revealed [Size]bool   `json:"revealed"`
}

// Generate samples Size distinct words from corpus without replacement and
// assigns colors by a random partition: 9 red, 8 blue, 7 neutral, 1 assassin.
func Generate(corpus []string, rng *rand.Rand) (*Board, error) {
	words := Normalize(corpus)
	if len(words) < Size {
		return nil, fmt.Errorf("%w: have %d distinct words, need %d", ErrInsufficientCorpus, len(words), Size)
	}

	b := &Board{}
	for i, idx := range rng.Perm(len(words))[:Size] {
		b.Words[i] = words[idx]
	}

	key := colorKey()
	rng.Shuffle(len(key), func(i, j int) { key[i], key[j] = key[j], key[i] })
	copy(b.Colors[:], key)
	return b, nil
}

// New builds a board from explicit words and colors and checks the invariants.
func New(words []string, colors []Color) (*Board, error) {
	if len(words) != Size || len(colors) != Size {
		return nil, fmt.Errorf("%w: need %d words and colors, got %d and %d", ErrInvalidBoard, Size, len(words), len(colors))
	}
	b := &Board{}
	for i := range words {
		b.Words[i] = strings.ToLower(strings.TrimSpace(words[i]))
		b.Colors[i] = colors[i]
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func colorKey() []Color {
	key := make([]Color, 0, Size)
	key = append(key, lo.Times(StartingWords, func(int) Color { return StartingColor })...)
	key = append(key, lo.Times(SecondWords, func(int) Color { return SecondColor })...)
	key = append(key, lo.Times(NeutralWords, func(int) Color { return Neutral })...)
	key = append(key, Assassin)
	return key
}

// Validate checks distinct non-empty words and the fixed color counts.
func (b *Board) Validate() error {
	if len(lo.Uniq(b.Words[:])) != Size || lo.Contains(b.Words[:], "") {
		return fmt.Errorf("%w: words must be distinct and non-empty", ErrInvalidBoard)
	}
	counts := lo.CountValues(b.Colors[:])
	if counts[StartingColor] != StartingWords || counts[SecondColor] != SecondWords ||
		counts[Neutral] != NeutralWords || counts[Assassin] != AssassinWords {
		return fmt.Errorf("%w: color counts %v", ErrInvalidBoard, counts)
	}
	return nil
}

// Index returns the position of word on the board, or -1.
func (b *Board) Index(word string) int {
	word = strings.ToLower(strings.TrimSpace(word))
	for i, w := range b.Words {
		if w == word {
			return i
		}
	}
	return -1
}

// Reveal flips the reveal flag of position i and returns its color.
// Revealing is monotonic; revealing twice is a no-op.
func (b *Board) Reveal(i int) Color {
	b.Revealed[i] = true
	return b.Colors[i]
}

// Remaining counts unrevealed words of color c.
func (b *Board) Remaining(c Color) int {
	n := 0
	for i := range b.Words {
		if !b.Revealed[i] && b.Colors[i] == c {
			n++
		}
	}
	return n
}

// RevealedCount counts revealed words.
func (b *Board) RevealedCount() int {
	return lo.Count(b.Revealed[:], true)
}

// Unrevealed lists the words that may still be guessed, in board order.
func (b *Board) Unrevealed() []string {
	out := make([]string, 0, Size)
	for i, w := range b.Words {
		if !b.Revealed[i] {
			out = append(out, w)
		}
	}
	return out
}

// Clone returns a copy detached from b.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// Public returns the board as an operative sees it: colors only for revealed
// words, nil for the rest.
func (b *Board) Public() []*Color {
	out := make([]*Color, Size)
	for i := range b.Words {
		if b.Revealed[i] {
			c := b.Colors[i]
			out[i] = &c
		}
	}
	return out
}

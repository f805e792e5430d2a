package board

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

//go:embed words.txt
var embeddedWords string

// DefaultWords returns the embedded word list.
func DefaultWords() []string {
	words, _ := ReadWords(strings.NewReader(embeddedWords))
	return words
}

// LoadWords reads a word list file, one word per line. Blank lines and lines
// starting with # are skipped. An empty path yields the embedded list.
func LoadWords(path string) ([]string, error) {
	if path == "" {
		return DefaultWords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadWords(f)
}

// ReadWords parses a word list from r.
func ReadWords(r io.Reader) ([]string, error) {
	var raw []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return Normalize(raw), nil
}

// Normalize lower-cases the corpus, drops entries that are not a single
// alphabetic token and removes duplicates, keeping first occurrences.
func Normalize(corpus []string) []string {
	words := lo.Map(corpus, func(w string, _ int) string {
		return strings.ToLower(strings.TrimSpace(w))
	})
	words = lo.Filter(words, func(w string, _ int) bool {
		return IsWord(w)
	})
	return lo.Uniq(words)
}

// IsWord reports whether s is a non-empty run of letters.
func IsWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

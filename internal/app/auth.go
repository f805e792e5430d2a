package service

import (
	"crypto/subtle"
	"fmt"
	"regexp"
)

var playerIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidPlayerID reports whether id can name a player.
func ValidPlayerID(id string) bool { return playerIDPattern.MatchString(id) }

// Verifier checks that key proves the identity playerID.
type Verifier interface {
	Verify(playerID, key string) error
}

// KeyTable is a static player id to key table. An empty table accepts any
// non-empty key, which leaves registration open.
type KeyTable map[string]string

// Verify implements Verifier.
func (t KeyTable) Verify(playerID, key string) error {
	if !ValidPlayerID(playerID) {
		return fmt.Errorf("%w: %q", ErrInvalidPlayerID, playerID)
	}
	if key == "" {
		return fmt.Errorf("%w: missing key", ErrUnauthorized)
	}
	if len(t) == 0 {
		return nil
	}
	want, ok := t[playerID]
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(key)) != 1 {
		return fmt.Errorf("%w: bad key for %s", ErrUnauthorized, playerID)
	}
	return nil
}

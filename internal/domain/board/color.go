package board

import "fmt"

// Color is the hidden assignment of a board word.
type Color int

const (
	Neutral Color = iota
	Red
	Blue
	Assassin
)

var colorNames = [...]string{"neutral", "red", "blue", "assassin"}

func (c Color) String() string {
	if c < Neutral || c > Assassin {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// MarshalText encodes the color by name.
func (c Color) MarshalText() ([]byte, error) {
	if c < Neutral || c > Assassin {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColor, int(c))
	}
	return []byte(colorNames[c]), nil
}

// UnmarshalText decodes a color name.
func (c *Color) UnmarshalText(b []byte) error {
	for i, name := range colorNames {
		if name == string(b) {
			*c = Color(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownColor, string(b))
}

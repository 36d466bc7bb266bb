package initiation

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the confirmation ladder.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ThreeState
	FiveState
	SevenState
)

// ErrUnknownMode is returned for unrecognised mode names.
var ErrUnknownMode = errors.New("invalid initiation mode")

var modeNames = map[Mode]string{
	ThreeState: "3-state",
	FiveState:  "5-state",
	SevenState: "7-state",
}

// Modes lists the supported modes in ascending ladder length.
func Modes() []Mode {
	return []Mode{ThreeState, FiveState, SevenState}
}

// ParseMode accepts "3-state", "5-state" or "7-state" (case-insensitive,
// surrounding whitespace ignored).
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeUnknown, fmt.Errorf("%w %q: choose '3-state', '5-state', or '7-state'", ErrUnknownMode, s)
}

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes the mode name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name via ParseMode.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

package initiation

import "fmt"

// State is a rung of the confirmation ladder.
type State uint8

const (
	StateUnknown State = iota
	Pos1
	Pos2
	Tentative1
	Tentative2
	Tentative3
	Firm
)

var stateNames = [...]string{
	StateUnknown: "Unknown",
	Pos1:         "Pos1",
	Pos2:         "Pos2",
	Tentative1:   "Tentative1",
	Tentative2:   "Tentative2",
	Tentative3:   "Tentative3",
	Firm:         "Firm",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) && State(i) != StateUnknown {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown track state %q", b)
}

// Category groups states that share an eviction threshold.
type Category uint8

const (
	CategoryPos Category = iota
	CategoryTentative
	CategoryFirm
	numCategories
)

func (c Category) String() string {
	switch c {
	case CategoryPos:
		return "Pos"
	case CategoryTentative:
		return "Tentative"
	case CategoryFirm:
		return "Firm"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// Category returns the eviction category of s. StateUnknown is treated as
// Pos so that a malformed track is evicted as soon as possible.
func (s State) Category() Category {
	switch s {
	case Tentative1, Tentative2, Tentative3:
		return CategoryTentative
	case Firm:
		return CategoryFirm
	default:
		return CategoryPos
	}
}

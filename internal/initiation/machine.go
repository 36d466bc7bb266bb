package initiation

import (
	"fmt"

	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/trackid"
)

// profile is the per-mode ladder and threshold table.
type profile struct {
	ladder []State
	firm   int
	evict  [numCategories]int
}

var profiles = map[Mode]profile{
	ThreeState: {
		ladder: []State{Pos1, Tentative1},
		firm:   3,
		evict:  [numCategories]int{CategoryPos: 1, CategoryTentative: 2, CategoryFirm: 3},
	},
	FiveState: {
		ladder: []State{Pos1, Pos2, Tentative1, Tentative2},
		firm:   5,
		evict:  [numCategories]int{CategoryPos: 1, CategoryTentative: 3, CategoryFirm: 5},
	},
	SevenState: {
		ladder: []State{Pos1, Pos2, Tentative1, Tentative2, Tentative3},
		firm:   7,
		evict:  [numCategories]int{CategoryPos: 1, CategoryTentative: 3, CategoryFirm: 5},
	},
}

// Machine applies hit and miss updates to tracks for one Mode. It holds no
// per-track state and is safe to share.
type Machine struct {
	mode Mode
	p    profile
}

// NewMachine returns the state machine for mode.
func NewMachine(mode Mode) (*Machine, error) {
	p, ok := profiles[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(mode))
	}
	return &Machine{mode: mode, p: p}, nil
}

// Mode returns the machine's mode.
func (m *Machine) Mode() Mode { return m.mode }

// Ladder returns a copy of the provisional ladder.
func (m *Machine) Ladder() []State {
	return append([]State(nil), m.p.ladder...)
}

// FirmThreshold is the number of consecutive hits that makes a track Firm.
func (m *Machine) FirmThreshold() int { return m.p.firm }

// EvictionThreshold is the number of consecutive misses after which a track
// in state s is dropped.
func (m *Machine) EvictionThreshold(s State) int {
	return m.p.evict[s.Category()]
}

// StateFor returns the state of a track that has accumulated hits
// consecutive hits. hits must be at least 1.
func (m *Machine) StateFor(hits int) State {
	if hits >= m.p.firm {
		return Firm
	}
	if hits < 1 {
		return StateUnknown
	}
	return m.p.ladder[min(hits, len(m.p.ladder))-1]
}

// Start creates a track from its first detection.
func (m *Machine) Start(id trackid.ID, slot int, first measurement.Measurement) *Track {
	state := m.StateFor(1)
	return &Track{
		ID:      id,
		Slot:    slot,
		State:   state,
		Hits:    1,
		History: []Entry{{Measurement: first, State: state}},
	}
}

// Hit records an associated detection. It reports whether this hit made the
// track Firm.
func (m *Machine) Hit(t *Track, meas measurement.Measurement) (confirmed bool) {
	wasFirm := t.State == Firm
	t.Hits++
	t.Misses = 0
	t.State = m.StateFor(t.Hits)
	t.History = append(t.History, Entry{Measurement: meas, State: t.State})
	return !wasFirm && t.State == Firm
}

// Miss records a processing step in which the track received no detection.
// It reports whether the track has reached its eviction threshold.
func (m *Machine) Miss(t *Track) (evict bool) {
	t.Misses++
	return m.Evictable(t)
}

// Evictable reports whether t has missed enough consecutive steps to be
// dropped in its current state.
func (m *Machine) Evictable(t *Track) bool {
	return t.Misses >= m.EvictionThreshold(t.State)
}

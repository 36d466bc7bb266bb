package initiation

import (
	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/trackid"
)

// Entry is one associated detection and the state the track held after it.
type Entry struct {
	Measurement measurement.Measurement `json:"measurement"`
	State       State                   `json:"state"`
}

// Track is a candidate target under initiation. History is never empty.
type Track struct {
	ID      trackid.ID `json:"id"`
	Slot    int        `json:"slot"`
	State   State      `json:"state"`
	Hits    int        `json:"hits"`
	Misses  int        `json:"misses"`
	History []Entry    `json:"history"`
}

// Last returns the most recent associated detection.
func (t *Track) Last() measurement.Measurement {
	return t.History[len(t.History)-1].Measurement
}

// Clone returns a deep copy of t.
func (t *Track) Clone() Track {
	c := *t
	c.History = make([]Entry, len(t.History))
	copy(c.History, t.History)
	return c
}

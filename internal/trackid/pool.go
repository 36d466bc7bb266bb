// Package trackid manages the reusable numeric identifiers handed to tracks.
//
// The pool is an append-only sequence of slots. Allocation always reuses the
// lowest-index free slot before growing, so identifiers stay small and are
// recycled once a track is evicted.
package trackid

import (
	"errors"
	"fmt"
)

// ID is a track identifier. Valid IDs start at 1.
type ID int

// Status is the occupancy of a slot.
type Status uint8

const (
	Free Status = iota
	Occupied
)

func (s Status) String() string {
	switch s {
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// MarshalText encodes the status as its lower-case name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "free" or "occupied".
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "free":
		*s = Free
	case "occupied":
		*s = Occupied
	default:
		return fmt.Errorf("unknown slot status %q", b)
	}
	return nil
}

// Slot is one entry of the pool.
type Slot struct {
	ID     ID     `json:"id"`
	Status Status `json:"status"`
}

// ErrInvalidRelease is returned when a slot index is out of range or the
// slot is already free. It indicates a bookkeeping bug in the caller.
var ErrInvalidRelease = errors.New("invalid track id release")

// Pool hands out track IDs. It is not safe for concurrent use; the owning
// tracker serialises access.
type Pool struct {
	slots []Slot
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Allocate claims the first free slot in ascending index order, or appends
// a new slot with ID len(slots)+1. It returns the ID and the slot index.
func (p *Pool) Allocate() (ID, int) {
	for i := range p.slots {
		if p.slots[i].Status == Free {
			p.slots[i].Status = Occupied
			return p.slots[i].ID, i
		}
	}
	id := ID(len(p.slots) + 1)
	p.slots = append(p.slots, Slot{ID: id, Status: Occupied})
	return id, len(p.slots) - 1
}

// Release frees the slot at index. Releasing an index that was never
// allocated, or releasing a slot twice, leaves the pool untouched and returns
// an error wrapping ErrInvalidRelease.
func (p *Pool) Release(index int) error {
	if index < 0 || index >= len(p.slots) {
		return fmt.Errorf("%w: slot %d out of range [0,%d)", ErrInvalidRelease, index, len(p.slots))
	}
	if p.slots[index].Status != Occupied {
		return fmt.Errorf("%w: slot %d (id %d) is already free", ErrInvalidRelease, index, p.slots[index].ID)
	}
	p.slots[index].Status = Free
	return nil
}

// Slots returns a copy of the slot table.
func (p *Pool) Slots() []Slot {
	out := make([]Slot, len(p.slots))
	copy(out, p.slots)
	return out
}

// Len returns the number of slots ever created.
func (p *Pool) Len() int {
	return len(p.slots)
}

// Occupied returns the number of slots currently in use.
func (p *Pool) Occupied() int {
	n := 0
	for _, s := range p.slots {
		if s.Status == Occupied {
			n++
		}
	}
	return n
}

// Reset drops every slot.
func (p *Pool) Reset() {
	p.slots = nil
}

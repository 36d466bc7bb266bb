// Package tracker associates incoming detections with candidate tracks and
// manages their lifecycle: creation, hit and miss updates, confirmation and
// eviction.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/trackinit/internal/gating"
	"github.com/banshee-data/trackinit/internal/initiation"
	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/banshee-data/trackinit/internal/trackid"
)

// ErrInternal wraps bookkeeping failures that indicate a bug rather than bad
// input.
var ErrInternal = errors.New("tracker internal error")

// Stats counts lifecycle events since the manager was created or reset.
type Stats struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Confirmed int `json:"confirmed"`
	Evicted   int `json:"evicted"`
}

// Result is the outcome of processing a measurement stream.
type Result struct {
	Params  Params             `json:"params"`
	Tracks  []initiation.Track `json:"tracks"`
	Slots   []trackid.Slot     `json:"slots"`
	FirmIDs []trackid.ID       `json:"firm_ids"`
	Stats   Stats              `json:"stats"`
}

// Manager holds one active track table. Process serialises updates; the
// read accessors return deep copies.
type Manager struct {
	params     Params
	thresholds gating.Thresholds
	machine    *initiation.Machine

	mu     sync.RWMutex
	pool   *trackid.Pool
	tracks []*initiation.Track // creation order
	firm   map[trackid.ID]struct{}
	stats  Stats
}

// NewManager validates p and returns an empty manager.
func NewManager(p Params) (*Manager, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	machine, err := initiation.NewMachine(p.Mode)
	if err != nil {
		return nil, err
	}
	return &Manager{
		params:     p,
		thresholds: p.Thresholds(),
		machine:    machine,
		pool:       trackid.NewPool(),
		firm:       make(map[trackid.ID]struct{}),
	}, nil
}

// Params returns the parameters the manager was built with.
func (m *Manager) Params() Params {
	return m.params
}

// Process folds one measurement into the track table.
func (m *Manager) Process(meas measurement.Measurement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processLocked(meas)
}

// ProcessBatch folds ms into the table while holding the lock, so no other
// update interleaves with the batch. It returns how many measurements were
// processed; ctx is checked between measurements.
func (m *Manager) ProcessBatch(ctx context.Context, ms []measurement.Measurement) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, meas := range ms {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := m.processLocked(meas); err != nil {
			return i, err
		}
	}
	return len(ms), nil
}

func (m *Manager) processLocked(meas measurement.Measurement) error {
	m.stats.Processed++

	var updated *initiation.Track
	for _, t := range m.tracks {
		if gating.Gate(meas, t.Last(), m.thresholds) {
			updated = t
			if m.machine.Hit(t, meas) {
				m.firm[t.ID] = struct{}{}
				m.stats.Confirmed++
				monitoring.Logf("[tracker] track %d confirmed after %d hits", t.ID, t.Hits)
			}
			monitoring.Debugf("[tracker] t=%.3f associated with track %d (%s, hits=%d)",
				meas.Timestamp, t.ID, t.State, t.Hits)
			break
		}
	}

	if updated == nil {
		id, slot := m.pool.Allocate()
		updated = m.machine.Start(id, slot, meas)
		m.tracks = append(m.tracks, updated)
		m.stats.Created++
		if updated.State == initiation.Firm {
			m.firm[id] = struct{}{}
			m.stats.Confirmed++
		}
		monitoring.Debugf("[tracker] t=%.3f started track %d in slot %d", meas.Timestamp, id, slot)
	}

	var evict []*initiation.Track
	for _, t := range m.tracks {
		if t == updated {
			continue
		}
		if m.machine.Miss(t) {
			evict = append(evict, t)
		}
	}
	return m.evict(evict)
}

// evict releases the slots of the given tracks and removes them from the
// table. A release failure leaves the remaining tracks in place.
func (m *Manager) evict(evict []*initiation.Track) error {
	if len(evict) == 0 {
		return nil
	}
	gone := make(map[*initiation.Track]struct{}, len(evict))
	var err error
	for _, t := range evict {
		if relErr := m.pool.Release(t.Slot); relErr != nil {
			err = fmt.Errorf("%w: evicting track %d: %w", ErrInternal, t.ID, relErr)
			break
		}
		gone[t] = struct{}{}
		m.stats.Evicted++
		monitoring.Debugf("[tracker] evicted track %d (%s, misses=%d)", t.ID, t.State, t.Misses)
	}

	kept := m.tracks[:0]
	for _, t := range m.tracks {
		if _, ok := gone[t]; !ok {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(m.tracks); i++ {
		m.tracks[i] = nil
	}
	m.tracks = kept
	return err
}

// Run processes ms in order. If ctx is cancelled between measurements it
// returns the partial result together with ctx.Err().
func (m *Manager) Run(ctx context.Context, ms []measurement.Measurement) (Result, error) {
	for _, meas := range ms {
		if err := ctx.Err(); err != nil {
			return m.Snapshot(), err
		}
		if err := m.Process(meas); err != nil {
			return m.Snapshot(), err
		}
	}
	return m.Snapshot(), nil
}

// Snapshot returns a deep copy of the current table.
func (m *Manager) Snapshot() Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	firm := make([]trackid.ID, 0, len(m.firm))
	for id := range m.firm {
		firm = append(firm, id)
	}
	sort.Slice(firm, func(i, j int) bool { return firm[i] < firm[j] })

	return Result{
		Params:  m.params,
		Tracks:  m.activeTracksLocked(),
		Slots:   m.pool.Slots(),
		FirmIDs: firm,
		Stats:   m.stats,
	}
}

// ActiveTracks returns copies of the active tracks in creation order.
func (m *Manager) ActiveTracks() []initiation.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeTracksLocked()
}

func (m *Manager) activeTracksLocked() []initiation.Track {
	out := make([]initiation.Track, len(m.tracks))
	for i, t := range m.tracks {
		out[i] = t.Clone()
	}
	return out
}

// Slots returns a copy of the ID pool.
func (m *Manager) Slots() []trackid.Slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool.Slots()
}

// Track returns a copy of the active track with the given id.
func (m *Manager) Track(id trackid.ID) (initiation.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tracks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return initiation.Track{}, false
}

// Stats returns the lifecycle counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Reset clears all tracks, slots and counters.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = nil
	m.pool.Reset()
	m.firm = make(map[trackid.ID]struct{})
	m.stats = Stats{}
}

// Initialize runs a fresh manager over ms.
func Initialize(ctx context.Context, ms []measurement.Measurement, p Params) (Result, error) {
	mgr, err := NewManager(p)
	if err != nil {
		return Result{}, err
	}
	return mgr.Run(ctx, ms)
}

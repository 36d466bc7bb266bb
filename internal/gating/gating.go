// Package gating decides whether a new detection may be associated with a
// track, given the track's most recent detection. A detection is admissible
// only when the Doppler, range and time gates all pass.
package gating

import (
	"math"

	"github.com/banshee-data/trackinit/internal/geometry"
	"github.com/banshee-data/trackinit/internal/measurement"
)

// Thresholds holds the three gate widths.
type Thresholds struct {
	Doppler float64 `json:"doppler_threshold"` // strict upper bound on |Δdoppler|
	Range   float64 `json:"range_threshold"`   // strict upper bound on Cartesian separation
	Time    float64 `json:"time_threshold"`    // inclusive upper bound on Δt
}

// Decision records the outcome of each gate for one candidate/track pair.
type Decision struct {
	DopplerOK bool
	RangeOK   bool
	TimeOK    bool

	DopplerDelta float64
	Distance     float64
	TimeDelta    float64
}

// Accepted reports whether every gate passed.
func (d Decision) Accepted() bool {
	return d.DopplerOK && d.RangeOK && d.TimeOK
}

// Evaluate runs all three gates of candidate against last.
//
// The time gate is one-sided: a candidate older than last passes as long as
// the difference does not exceed th.Time. Feeding a time-ordered stream is
// the caller's job.
func Evaluate(candidate, last measurement.Measurement, th Thresholds) Decision {
	d := Decision{
		DopplerDelta: math.Abs(candidate.Doppler - last.Doppler),
		Distance:     geometry.Distance(candidate.Position(), last.Position()),
		TimeDelta:    candidate.Timestamp - last.Timestamp,
	}
	d.DopplerOK = d.DopplerDelta < th.Doppler
	d.RangeOK = d.Distance < th.Range
	d.TimeOK = d.TimeDelta <= th.Time
	return d
}

// Gate reports whether candidate may be associated with a track whose most
// recent detection is last.
func Gate(candidate, last measurement.Measurement, th Thresholds) bool {
	return Evaluate(candidate, last, th).Accepted()
}

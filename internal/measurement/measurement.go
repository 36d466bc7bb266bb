// Package measurement defines the point detection consumed by the track
// initiator and the loaders that produce ordered detection streams: CSV
// files, the sensor line protocol, and PCAP captures of that protocol.
package measurement

import (
	"math"

	"github.com/banshee-data/trackinit/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultDoppler is assigned to detections whose source carries no Doppler
// value.
const DefaultDoppler = 1.0

// Measurement is a single sensor detection. Angles are in degrees.
type Measurement struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Range     float64 `json:"range"`
	Doppler   float64 `json:"doppler"`
	Timestamp float64 `json:"timestamp"`
}

// Position returns the detection in Cartesian sensor coordinates.
func (m Measurement) Position() r3.Vec {
	return geometry.ToCartesian(m.Azimuth, m.Elevation, m.Range)
}

// IsFinite reports whether every field is a finite number.
func (m Measurement) IsFinite() bool {
	for _, v := range [...]float64{m.Azimuth, m.Elevation, m.Range, m.Doppler, m.Timestamp} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

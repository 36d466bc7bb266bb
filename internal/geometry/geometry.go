// Package geometry converts sensor-frame spherical detections into
// Cartesian positions so that separations can be measured.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ToCartesian converts azimuth and elevation (degrees) and slant range into a
// Cartesian position in the sensor frame.
//
//	x = r·cos(el)·cos(az)
//	y = r·cos(el)·sin(az)
//	z = r·sin(el)
func ToCartesian(azimuthDeg, elevationDeg, rng float64) r3.Vec {
	az := DegToRad(azimuthDeg)
	el := DegToRad(elevationDeg)
	cosEl := math.Cos(el)
	return r3.Vec{
		X: rng * cosEl * math.Cos(az),
		Y: rng * cosEl * math.Sin(az),
		Z: rng * math.Sin(el),
	}
}

// Distance returns the Euclidean separation between two positions.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

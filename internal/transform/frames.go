// Package transform converts SGP4 output (TEME, km) into topocentric
// altitude/azimuth for a ground facility.
//
// TEME to ECEF uses a GMST-only rotation (polar motion and the equation of
// the equinoxes are ignored). The resulting error is tens of meters, far
// below what matters for a beam that is degrees wide.
package transform

import "math"

// Vector is a Cartesian position.
type Vector struct {
	X, Y, Z float64
}

// Norm returns the vector length.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Finite reports whether no component is NaN or infinite.
func (v Vector) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// TEMEToECEF rotates a TEME position (km) about Z by gmst radians and
// returns ECEF meters.
func TEMEToECEF(teme Vector, gmst float64) Vector {
	cosG, sinG := math.Cos(gmst), math.Sin(gmst)
	return Vector{
		X: (teme.X*cosG + teme.Y*sinG) * 1000,
		Y: (-teme.X*sinG + teme.Y*cosG) * 1000,
		Z: teme.Z * 1000,
	}
}

// OrbitalRadiusOK reports whether an ECEF position (meters) is finite and
// between 6200 km and 50000 km from the geocenter, which covers LEO
// through GEO and rejects decayed or diverged propagations.
func OrbitalRadiusOK(ecef Vector) bool {
	if !ecef.Finite() {
		return false
	}
	r := ecef.Norm()
	return r >= 6200e3 && r <= 50000e3
}

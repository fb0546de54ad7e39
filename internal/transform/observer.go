package transform

import (
	"math"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// Observer is a ground site with its ECEF position and rotation terms
// precomputed, so it can be shared read-only across goroutines.
type Observer struct {
	ECEF                           Vector
	sinLat, cosLat, sinLon, cosLon float64
}

// NewObserver builds an Observer from geodetic degrees and meters above the
// ellipsoid.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	// Prime-vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Observer{
		ECEF: Vector{
			X: (n + altM) * cosLat * cosLon,
			Y: (n + altM) * cosLat * sinLon,
			Z: (n*(1-wgs84E2) + altM) * sinLat,
		},
		sinLat: sinLat, cosLat: cosLat,
		sinLon: sinLon, cosLon: cosLon,
	}
}

// ObserverFor returns the Observer at a facility.
func ObserverFor(f models.Facility) Observer {
	return NewObserver(f.Coordinates.Latitude, f.Coordinates.Longitude, f.ElevationM)
}

// Look returns the altitude, azimuth and range from the observer to an ECEF
// point (meters), via the South-East-Zenith frame (Vallado 4.4).
func (o Observer) Look(target Vector) models.Position {
	rx := target.X - o.ECEF.X
	ry := target.Y - o.ECEF.Y
	rz := target.Z - o.ECEF.Z

	south := o.sinLat*o.cosLon*rx + o.sinLat*o.sinLon*ry - o.cosLat*rz
	east := -o.sinLon*rx + o.cosLon*ry
	zenith := o.cosLat*o.cosLon*rx + o.cosLat*o.sinLon*ry + o.sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return models.Position{Altitude: 90}
	}

	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return models.Position{
		Altitude:   math.Asin(zenith/rng) * 180 / math.Pi,
		Azimuth:    az * 180 / math.Pi,
		DistanceKm: rng / 1000,
	}
}

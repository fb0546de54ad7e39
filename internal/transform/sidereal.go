package transform

import (
	"math"
	"time"
)

const (
	jdJ2000        = 2451545.0
	secondsPerDay  = 86400.0
	daysPerCentury = 36525.0
)

// JulianDate returns the Julian Date of a UTC instant, including the
// fractional second.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	if m <= 2 {
		y--
		m += 12
	}
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	dayFrac := (float64(t.Hour())*3600 + float64(t.Minute())*60 + float64(t.Second()) +
		float64(t.Nanosecond())/1e9) / secondsPerDay

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + float64(t.Day()) + b - 1524.5 + dayFrac
}

// GMST returns Greenwich Mean Sidereal Time in radians, [0, 2π), using the
// IAU-82 polynomial (Vallado Eq. 3-47) with UT1 approximated by UTC.
func GMST(t time.Time) float64 {
	tc := (JulianDate(t) - jdJ2000) / daysPerCentury

	sec := 67310.54841 +
		(876600*3600+8640184.812866)*tc +
		0.093104*tc*tc -
		6.2e-6*tc*tc*tc

	sec = math.Mod(sec, secondsPerDay)
	if sec < 0 {
		sec += secondsPerDay
	}
	return sec / secondsPerDay * 2 * math.Pi
}

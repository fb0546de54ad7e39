package geometry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

var t0 = time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)

func at(alt, az float64) models.PositionTime {
	return models.PositionTime{Time: t0, Position: models.Position{Altitude: alt, Azimuth: az}}
}

func TestSeparation(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Position
		want float64
	}{
		{"identical", models.Position{Altitude: 45, Azimuth: 180}, models.Position{Altitude: 45, Azimuth: 180}, 0},
		{"altitude only", models.Position{Altitude: 45, Azimuth: 180}, models.Position{Altitude: 55, Azimuth: 180}, 10},
		{"azimuth on horizon", models.Position{Altitude: 0, Azimuth: 10}, models.Position{Altitude: 0, Azimuth: 100}, 90},
		{"azimuth wraps at north", models.Position{Altitude: 0, Azimuth: 359}, models.Position{Altitude: 0, Azimuth: 1}, 2},
		{"zenith ignores azimuth", models.Position{Altitude: 90, Azimuth: 0}, models.Position{Altitude: 90, Azimuth: 270}, 0},
		{"zenith to horizon", models.Position{Altitude: 90, Azimuth: 37}, models.Position{Altitude: 0, Azimuth: 200}, 90},
		{"opposite horizon points", models.Position{Altitude: 0, Azimuth: 0}, models.Position{Altitude: 0, Azimuth: 180}, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Separation(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Separation = %.9f, want %.9f", got, tt.want)
			}
			if back := Separation(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
				t.Errorf("not symmetric: %.9f vs %.9f", got, back)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	antenna := at(45, 180)

	tests := []struct {
		name         string
		object       models.PositionTime
		beamRadius   float64
		minAlt       float64
		wantHorizon  bool
		wantMainBeam bool
	}{
		{"on boresight", at(45, 180), 1.5, 0, true, true},
		{"ten degrees off", at(55, 180), 1.5, 0, true, false},
		{"exactly on beam edge", at(46.5, 180), 1.5, 0, true, true},
		{"just past beam edge", at(46.6, 180), 1.5, 0, true, false},
		{"exactly at min altitude", at(10, 0), 1.5, 10, true, false},
		{"below min altitude", at(9.99, 0), 1.5, 10, false, false},
		{"a hair below min altitude", at(9.9999999995, 0), 1.5, 10, false, false},
		{"below horizon never in beam", at(-1, 180), 1.5, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Classify(antenna, tt.object, tt.beamRadius, tt.minAlt)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if s.Horizon != tt.wantHorizon {
				t.Errorf("Horizon = %v, want %v (alt=%.3f)", s.Horizon, tt.wantHorizon, tt.object.Position.Altitude)
			}
			if s.MainBeam != tt.wantMainBeam {
				t.Errorf("MainBeam = %v, want %v (sep=%.6f)", s.MainBeam, tt.wantMainBeam, s.Separation)
			}
			if !s.Time.Equal(tt.object.Time) {
				t.Errorf("sample time = %v, want %v", s.Time, tt.object.Time)
			}
		})
	}
}

func TestClassifyBeamCenteredBelowCutoff(t *testing.T) {
	// Boresight at 2 degrees, cutoff at 5: an object on boresight is in the
	// beam geometrically but below the cutoff, so it is neither.
	s, err := Classify(at(2, 90), at(2, 90), 1.5, 5)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if s.Horizon || s.MainBeam {
		t.Errorf("got horizon=%v mainBeam=%v, want both false", s.Horizon, s.MainBeam)
	}
}

func TestClassifyTimestampMismatch(t *testing.T) {
	obj := at(45, 180)
	obj.Time = t0.Add(time.Second)

	_, err := Classify(at(45, 180), obj, 1.5, 0)
	if !errors.Is(err, ErrTimestampMismatch) {
		t.Fatalf("err = %v, want ErrTimestampMismatch", err)
	}
}

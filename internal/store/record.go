package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/interference"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Record is one persisted engine run.
type Record struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	Reservation models.Reservation     `json:"reservation"`
	Settings    engine.RuntimeSettings `json:"settings"`
	MainBeam    []Window               `json:"main_beam"`
	Horizon     []Window               `json:"horizon"`
	Failures    []Failure              `json:"failures"`
	Cancelled   bool                   `json:"cancelled,omitempty"`
}

// Window is a stored OverheadWindow.
type Window struct {
	ObjectID    int                   `json:"object_id"`
	ObjectName  string                `json:"object_name"`
	Begin       time.Time             `json:"begin"`
	End         time.Time             `json:"end"`
	MaxAltitude float64               `json:"max_altitude"`
	Positions   []models.PositionTime `json:"positions"`

	Interference *interference.Assessment `json:"interference,omitempty"`
}

// Failure is a stored engine.Failure.
type Failure struct {
	ObjectID   int    `json:"object_id"`
	ObjectName string `json:"object_name"`
	Reason     string `json:"reason"`
}

// Summary is the list view of a Record.
type Summary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Facility        string    `json:"facility"`
	Begin           time.Time `json:"begin"`
	End             time.Time `json:"end"`
	MainBeamWindows int       `json:"main_beam_windows"`
	HorizonWindows  int       `json:"horizon_windows"`
	Failures        int       `json:"failures"`
}

// NewRecord captures the results of one run under a fresh ID.
func NewRecord(res models.Reservation, settings engine.RuntimeSettings, mainBeam, horizon engine.Result, cancelled bool) Record {
	return Record{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Reservation: res,
		Settings:    settings,
		MainBeam:    windows(mainBeam.Windows),
		Horizon:     windows(horizon.Windows),
		Failures:    failures(mainBeam.Failures),
		Cancelled:   cancelled,
	}
}

// SetInterference attaches assessments aligned with MainBeam; nil entries
// leave a window unassessed.
func (r *Record) SetInterference(as []*interference.Assessment) {
	for i, a := range as {
		if i < len(r.MainBeam) {
			r.MainBeam[i].Interference = a
		}
	}
}

// Summary returns the list view.
func (r Record) Summary() Summary {
	return Summary{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		Facility:        r.Reservation.Facility.Name,
		Begin:           r.Reservation.Window.Begin,
		End:             r.Reservation.Window.End,
		MainBeamWindows: len(r.MainBeam),
		HorizonWindows:  len(r.Horizon),
		Failures:        len(r.Failures),
	}
}

func windows(ws []engine.OverheadWindow) []Window {
	out := make([]Window, len(ws))
	for i, w := range ws {
		out[i] = Window{
			ObjectID:    w.Object.ID,
			ObjectName:  w.Object.Name,
			Begin:       w.Begin(),
			End:         w.End(),
			MaxAltitude: w.Peak().Position.Altitude,
			Positions:   w.Positions,
		}
	}
	return out
}

func failures(fs []engine.Failure) []Failure {
	out := make([]Failure, len(fs))
	for i, f := range fs {
		out[i] = Failure{ObjectID: f.Object.ID, ObjectName: f.Object.Name, Reason: f.Reason()}
	}
	return out
}

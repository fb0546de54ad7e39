package engine

import "github.com/NSF-Swift/satellite-overhead/internal/models"

// merge flattens the slots into a Result of one kind. Windows follow object
// input order, then time; objects without windows are omitted. An object
// that failed after emitting windows appears in both lists.
func merge(objects []models.TrackedObject, slots []slot, kind Kind) Result {
	res := Result{Kind: kind, Windows: []OverheadWindow{}, Failures: []Failure{}}
	for i, s := range slots {
		runs := s.mainBeam
		if kind == Horizon {
			runs = s.horizon
		}
		for _, positions := range runs {
			res.Windows = append(res.Windows, OverheadWindow{Index: i, Object: objects[i], Positions: positions})
		}
		if s.err != nil {
			res.Failures = append(res.Failures, Failure{Index: i, Object: objects[i], Err: s.err})
		}
	}
	return res
}

// Package tle reads, fetches and caches two-line element sets.
package tle

import "time"

// Entry is one object's two-line element set.
type Entry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange is the span of element epochs in a set of entries.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Epochs returns the minimum and maximum epoch of entries. The zero range is
// returned for an empty slice.
func Epochs(entries []Entry) EpochRange {
	if len(entries) == 0 {
		return EpochRange{}
	}
	r := EpochRange{Min: entries[0].Epoch, Max: entries[0].Epoch}
	for _, e := range entries[1:] {
		if e.Epoch.Before(r.Min) {
			r.Min = e.Epoch
		}
		if e.Epoch.After(r.Max) {
			r.Max = e.Epoch
		}
	}
	return r
}

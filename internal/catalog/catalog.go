// Package catalog assembles the tracked-object population from element sets
// and optional downlink frequency data.
package catalog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/tle"
)

// Catalog is an immutable snapshot of the population.
type Catalog struct {
	Source   string
	LoadedAt time.Time
	Epochs   tle.EpochRange
	Objects  []models.TrackedObject
}

// Load parses the TLE file at tlePath and, when freqPath is non-empty,
// attaches the frequency rows to matching objects.
func Load(tlePath, freqPath string, logger *slog.Logger) (*Catalog, error) {
	entries, err := tle.ParseFile(tlePath, logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no element sets in %s", tlePath)
	}

	var freqs map[int]Downlink
	if freqPath != "" {
		if freqs, err = LoadFrequencies(freqPath, logger); err != nil {
			return nil, err
		}
	}

	objects := Build(entries, freqs)
	logger.Info("catalog loaded",
		"source", tlePath,
		"objects", len(objects),
		"with_frequency", len(freqs),
	)
	return &Catalog{
		Source:   tlePath,
		LoadedAt: time.Now().UTC(),
		Epochs:   tle.Epochs(entries),
		Objects:  objects,
	}, nil
}

// Build turns element sets into tracked objects in file order. Duplicate
// NORAD IDs keep the first entry.
func Build(entries []tle.Entry, freqs map[int]Downlink) []models.TrackedObject {
	seen := make(map[int]bool, len(entries))
	objects := make([]models.TrackedObject, 0, len(entries))
	for _, e := range entries {
		if seen[e.NORADID] {
			continue
		}
		seen[e.NORADID] = true

		obj := models.TrackedObject{ID: e.NORADID, Name: e.Name, Elements: e}
		if d, ok := freqs[e.NORADID]; ok {
			obj.Frequency = &d.Range
			obj.EIRPDBW = d.EIRPDBW
		}
		objects = append(objects, obj)
	}
	return objects
}

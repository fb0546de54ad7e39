// Package frequency drops objects that cannot transmit inside the observed
// band before the engine runs.
package frequency

import (
	"strings"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Filter returns the objects that may interfere with an observation in
// band. Objects without frequency data are kept, since they cannot be ruled
// out. Objects marked inactive are dropped. A zero band keeps every object
// that is not inactive.
func Filter(objects []models.TrackedObject, band models.FrequencyRange) []models.TrackedObject {
	out := make([]models.TrackedObject, 0, len(objects))
	for _, obj := range objects {
		if Interferes(obj, band) {
			out = append(out, obj)
		}
	}
	return out
}

// Interferes reports whether obj passes the filter for band.
func Interferes(obj models.TrackedObject, band models.FrequencyRange) bool {
	f := obj.Frequency
	if f == nil {
		return true
	}
	if strings.EqualFold(f.Status, "inactive") {
		return false
	}
	if band.Frequency == 0 && band.Bandwidth == 0 {
		return true
	}
	return f.Overlaps(band)
}

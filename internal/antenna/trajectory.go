package antenna

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// LoadTrajectory reads a CSV file of time,altitude,azimuth rows. Times are
// RFC 3339. A first row whose time does not parse is taken as a header.
func LoadTrajectory(path string) ([]models.PositionTime, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory: %w", err)
	}
	defer f.Close()
	return ReadTrajectory(f)
}

// ReadTrajectory parses trajectory CSV from r.
func ReadTrajectory(r io.Reader) ([]models.PositionTime, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var out []models.PositionTime
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: %w", row, err)
		}

		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(rec[0]))
		if err != nil {
			if row == 1 {
				continue
			}
			return nil, fmt.Errorf("trajectory row %d: time: %w", row, err)
		}
		alt, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: altitude: %w", row, err)
		}
		az, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: azimuth: %w", row, err)
		}
		out = append(out, models.PositionTime{Time: t.UTC(), Position: models.Position{Altitude: alt, Azimuth: az}})
	}
	if len(out) == 0 {
		return nil, errors.New("trajectory has no samples")
	}
	return out, nil
}

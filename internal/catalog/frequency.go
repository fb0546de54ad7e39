package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/NSF-Swift/satellite-overhead/internal/models"
)

// Downlink is one row of the frequency file.
type Downlink struct {
	Range   models.FrequencyRange
	EIRPDBW *float64
}

// LoadFrequencies reads a CSV file of downlink bands keyed by NORAD ID.
func LoadFrequencies(path string, logger *slog.Logger) (map[int]Downlink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frequency file: %w", err)
	}
	defer f.Close()
	return ParseFrequencies(f, logger)
}

// ParseFrequencies reads CSV with a header naming at least the id and
// frequency columns; bandwidth, status and eirp_dbw are optional. Columns are matched
// case-insensitively and may appear in any order. Rows with a bad ID or
// frequency are skipped. When an ID appears twice the first row wins.
func ParseFrequencies(r io.Reader, logger *slog.Logger) (map[int]Downlink, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("frequency file is empty")
		}
		return nil, fmt.Errorf("reading frequency header: %w", err)
	}

	cols := map[string]int{"id": -1, "frequency": -1, "bandwidth": -1, "status": -1, "eirp_dbw": -1}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	if cols["id"] < 0 || cols["frequency"] < 0 {
		return nil, fmt.Errorf("frequency header %v must name id and frequency columns", header)
	}

	field := func(rec []string, col string) string {
		i := cols[col]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := make(map[int]Downlink)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading frequency line %d: %w", line, err)
		}

		id, err := strconv.Atoi(field(rec, "id"))
		if err != nil {
			logger.Warn("skipping frequency row", "line", line, "error", "bad id")
			continue
		}
		freq, err := strconv.ParseFloat(field(rec, "frequency"), 64)
		if err != nil {
			logger.Warn("skipping frequency row", "line", line, "object_id", id, "error", "bad frequency")
			continue
		}
		var bw float64
		if s := field(rec, "bandwidth"); s != "" {
			if bw, err = strconv.ParseFloat(s, 64); err != nil || bw < 0 {
				logger.Warn("ignoring bandwidth", "line", line, "object_id", id, "value", s)
				bw = 0
			}
		}

		var eirp *float64
		if s := field(rec, "eirp_dbw"); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				eirp = &v
			} else {
				logger.Warn("ignoring eirp", "line", line, "object_id", id, "value", s)
			}
		}

		if _, dup := out[id]; dup {
			continue
		}
		out[id] = Downlink{
			Range: models.FrequencyRange{
				Frequency: freq,
				Bandwidth: bw,
				Status:    strings.ToLower(field(rec, "status")),
			},
			EIRPDBW: eirp,
		}
	}
	return out, nil
}

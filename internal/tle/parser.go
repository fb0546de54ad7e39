package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Parse reads element sets from r. Both the 3-line NORAD format (name line
// followed by lines 1 and 2) and bare 2-line sets are accepted. Malformed
// sets are skipped with a warning.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	var name string
	for i := 0; i < len(lines); {
		line := lines[i]
		if !strings.HasPrefix(line, "1 ") {
			if strings.HasPrefix(line, "2 ") {
				logger.Warn("skipping orphan TLE line 2", "line_index", i)
				name = ""
			} else {
				name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
			}
			i++
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "2 ") {
			logger.Warn("skipping TLE line 1 without line 2", "line_index", i, "name", name)
			name = ""
			i++
			continue
		}

		entry, err := parseSet(name, line, lines[i+1])
		if err != nil {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name, "error", err)
		} else {
			entries = append(entries, entry)
		}
		name = ""
		i += 2
	}

	return entries, nil
}

// ParseFile reads element sets from a file on disk.
func ParseFile(path string, logger *slog.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening TLE file: %w", err)
	}
	defer f.Close()
	return Parse(f, logger)
}

func parseSet(name, line1, line2 string) (Entry, error) {
	if err := ValidateLines(line1, line2); err != nil {
		return Entry{}, err
	}

	// NORAD catalog number: columns 3-7.
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}

	// Epoch: columns 19-32.
	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// parseEpoch converts a YYDDD.DDDDDDDD epoch to UTC. Years 57-99 are 19xx,
// 00-56 are 20xx.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day 1 is January 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}

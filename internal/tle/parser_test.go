package tle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseThreeLineSets(t *testing.T) {
	entries, err := Parse(strings.NewReader(issSet+starlinkSet), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	iss := entries[0]
	if iss.NORADID != 25544 || iss.Name != "ISS (ZARYA)" {
		t.Errorf("entry 0 = %d %q", iss.NORADID, iss.Name)
	}
	// Day 100.5 of 2024 is April 9, 12:00 UTC (leap year).
	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !iss.Epoch.Equal(wantEpoch) {
		t.Errorf("epoch = %v, want %v", iss.Epoch, wantEpoch)
	}
	if !strings.HasPrefix(iss.Line1, "1 25544") || !strings.HasPrefix(iss.Line2, "2 25544") {
		t.Errorf("lines not preserved: %q / %q", iss.Line1, iss.Line2)
	}
}

func TestParseTwoLineAndMalformed(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(issSet), "\n")
	input := strings.Join([]string{
		lines[1], lines[2], // bare 2-line set
		"BROKEN",
		"1 ABCDEU 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005",
		"2 ABCDE  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09",
		"0 STARLINK-1007",
		strings.Split(starlinkSet, "\n")[1],
		strings.Split(starlinkSet, "\n")[2],
	}, "\r\n")

	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].NORADID != 25544 || entries[0].Name != "" {
		t.Errorf("entry 0 = %d %q, want 25544 with no name", entries[0].NORADID, entries[0].Name)
	}
	if entries[1].Name != "STARLINK-1007" {
		t.Errorf("entry 1 name = %q, want STARLINK-1007", entries[1].Name)
	}
}

func TestParseEpochCentury(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"57001.00000000", 1957},
		{"99365.00000000", 1999},
		{"00001.00000000", 2000},
		{"56001.00000000", 2056},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if err != nil {
			t.Fatalf("parseEpoch(%q): %v", tt.in, err)
		}
		if got.Year() != tt.want {
			t.Errorf("parseEpoch(%q) year = %d, want %d", tt.in, got.Year(), tt.want)
		}
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.tle")
	if err := os.WriteFile(path, []byte(issSet), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(path, testLogger)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.tle"), testLogger); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEpochs(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(48 * time.Hour)
	r := Epochs([]Entry{{Epoch: b}, {Epoch: a}, {Epoch: a.Add(time.Hour)}})
	if !r.Min.Equal(a) || !r.Max.Equal(b) {
		t.Errorf("Epochs = %v..%v, want %v..%v", r.Min, r.Max, a, b)
	}
	if got := Epochs(nil); !got.Min.IsZero() || !got.Max.IsZero() {
		t.Errorf("Epochs(nil) = %v, want zero", got)
	}
}

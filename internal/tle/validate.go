package tle

import (
	"fmt"
	"strconv"
	"strings"
)

// LineLength is the fixed width of a TLE data line.
const LineLength = 69

// ValidateLines checks an element set's layout, checksums and every numeric
// field SGP4 initialization reads. go-satellite exits the process on a field
// it cannot parse, so element sets must pass this before reaching it.
func ValidateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != LineLength {
		return fmt.Errorf("line1 length %d, expected %d", len(line1), LineLength)
	}
	if len(line2) != LineLength {
		return fmt.Errorf("line2 length %d, expected %d", len(line2), LineLength)
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	if strings.TrimSpace(line1[2:7]) != strings.TrimSpace(line2[2:7]) {
		return fmt.Errorf("catalog numbers differ: %q vs %q", line1[2:7], line2[2:7])
	}
	if err := verifyChecksum("line1", line1); err != nil {
		return err
	}
	if err := verifyChecksum("line2", line2); err != nil {
		return err
	}

	fields := []struct {
		name     string
		value    string
		isInt    bool
		optional bool
	}{
		{"catalog number", line1[2:7], true, false},
		{"epoch year", line1[18:20], true, false},
		{"epoch day", line1[20:32], false, false},
		{"mean motion derivative", line1[33:43], false, false},
		{"mean motion second derivative", impliedDecimal(line1[44:52]), false, false},
		{"bstar", impliedDecimal(line1[53:61]), false, false},
		{"element number", line1[64:68], true, true},
		{"inclination", line2[8:16], false, false},
		{"right ascension", line2[17:25], false, false},
		{"eccentricity", "." + line2[26:33], false, false},
		{"argument of perigee", line2[34:42], false, false},
		{"mean anomaly", line2[43:51], false, false},
		{"mean motion", line2[52:63], false, false},
		{"revolution number", line2[63:68], true, true},
	}
	for _, f := range fields {
		v := strings.ReplaceAll(f.value, " ", "")
		var err error
		switch {
		case f.optional && v == "":
		case f.isInt:
			_, err = strconv.Atoi(v)
		default:
			_, err = strconv.ParseFloat(v, 64)
		}
		if err != nil {
			return fmt.Errorf("invalid %s %q", f.name, strings.TrimSpace(f.value))
		}
	}
	return nil
}

// impliedDecimal expands the " 12345-3" exponent notation to " .12345e-3".
func impliedDecimal(s string) string {
	return s[:1] + "." + s[1:6] + "e" + s[6:8]
}

// verifyChecksum applies the mod-10 rule: digits count their value, minus
// signs count one, everything else zero.
func verifyChecksum(name, line string) error {
	sum := 0
	for _, c := range line[:LineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	want := line[LineLength-1]
	if want < '0' || want > '9' || int(want-'0') != sum%10 {
		return fmt.Errorf("%s checksum %c, computed %d", name, want, sum%10)
	}
	return nil
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// WriteText writes a human-readable table of the report.
func WriteText(w io.Writer, r Report) error {
	fmt.Fprintf(w, "Run %s at %s, %s to %s UTC\n", r.RunID, r.Facility,
		r.Begin.UTC().Format(timeLayout), r.End.UTC().Format(timeLayout))
	if r.Cancelled {
		fmt.Fprintln(w, "Run was cancelled; results are partial.")
	}

	fmt.Fprintf(w, "\nMain beam crossings: %d\n", len(r.MainBeam))
	if err := writePasses(w, r.MainBeam); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nAbove horizon: %d\n", len(r.Horizon))
	if err := writePasses(w, r.Horizon); err != nil {
		return err
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures: %d\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %d %s: %s\n", f.ObjectID, f.ObjectName, f.Reason)
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writePasses(w io.Writer, ps []Pass) error {
	if len(ps) == 0 {
		return nil
	}
	levels := false
	for _, p := range ps {
		levels = levels || p.PeakLevel != nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "NORAD\tNAME\tSTART\tEND\tDURATION\tMAX ALT\tAZ AT MAX")
	if levels {
		fmt.Fprint(tw, "\tPEAK LEVEL")
	}
	fmt.Fprintln(tw)
	for _, p := range ps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.2f\t%.2f",
			p.ObjectID, p.ObjectName,
			p.Start.UTC().Format(timeLayout), p.End.UTC().Format(timeLayout),
			time.Duration(p.DurationSeconds*float64(time.Second)),
			p.MaxAltitude, p.AzimuthAtMax)
		switch {
		case p.PeakLevel != nil:
			fmt.Fprintf(tw, "\t%.2f %s", *p.PeakLevel, p.LevelUnits)
		case levels:
			fmt.Fprint(tw, "\t-")
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

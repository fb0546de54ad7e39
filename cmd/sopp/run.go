package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/NSF-Swift/satellite-overhead/internal/antenna"
	"github.com/NSF-Swift/satellite-overhead/internal/config"
	"github.com/NSF-Swift/satellite-overhead/internal/engine"
	"github.com/NSF-Swift/satellite-overhead/internal/frequency"
	"github.com/NSF-Swift/satellite-overhead/internal/interference"
	"github.com/NSF-Swift/satellite-overhead/internal/models"
	"github.com/NSF-Swift/satellite-overhead/internal/propagation"
	"github.com/NSF-Swift/satellite-overhead/internal/recurrence"
	"github.com/NSF-Swift/satellite-overhead/internal/report"
	"github.com/NSF-Swift/satellite-overhead/internal/store"
)

type runOptions struct {
	tleFile       string
	frequencyFile string
	format        string
	publish       bool
	save          bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Find windows for the configured reservation",
		Long: `Loads the catalog, keeps the objects whose downlink may interfere with the
observed band, and reports every main-beam crossing and above-horizon
window during the reservation. A recurrence rule in the configuration
repeats the search for each occurrence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.tleFile, "tle", "", "TLE file (overrides catalog.tle_file)")
	cmd.Flags().StringVar(&opts.frequencyFile, "frequencies", "", "Frequency CSV (overrides catalog.frequency_file)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Publish windows to the configured MQTT broker")
	cmd.Flags().BoolVar(&opts.save, "save", true, "Save runs to the run store")
	return cmd
}

func (a *app) run(ctx context.Context, out io.Writer, opts runOptions) error {
	cfg := a.cfg
	if opts.tleFile != "" {
		cfg.Catalog.TLEFile = opts.tleFile
	}
	if opts.frequencyFile != "" {
		cfg.Catalog.FrequencyFile = opts.frequencyFile
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	reservations, err := reservationsFor(cfg)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg, a.logger)
	if err != nil {
		return err
	}
	objects := frequency.Filter(cat.Objects, cfg.Frequency)
	a.logger.Info("population filtered", "catalog", len(cat.Objects), "candidates", len(objects))

	strategy, err := interference.New(cfg.Interference)
	if err != nil {
		return err
	}
	r := &runner{
		finder:   engine.NewFinder(propagation.NewProvider(cfg.Facility, a.logger), a.logger),
		strategy: strategy,
		out:      out,
		format:   opts.format,
		logger:   a.logger,
	}
	if opts.save {
		runs, err := store.Open(cfg.Storage.Path, cfg.Storage.CacheMaxMiB, a.logger)
		if err != nil {
			return err
		}
		defer runs.Close()
		r.runs = runs
	}
	if opts.publish {
		if cfg.MQTT.Broker == "" {
			return &engine.ConfigurationError{Field: "mqtt.broker", Msg: "required with --publish"}
		}
		pub, err := report.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Timeout)
		if err != nil {
			return err
		}
		defer pub.Close()
		r.pub, r.topic, r.qos = pub, cfg.MQTT.Topic, cfg.MQTT.QoS
	}

	_, err = r.runAll(ctx, objects, reservations, cfg.Antenna.Pointing, cfg.Runtime.Settings())
	return err
}

// reservationsFor expands the configured reservation by its recurrence rule.
func reservationsFor(cfg *config.Config) ([]models.Reservation, error) {
	base := cfg.BaseReservation()
	if cfg.Recurrence == nil {
		return []models.Reservation{base}, nil
	}
	return recurrence.Expand(base, *cfg.Recurrence)
}

// runner evaluates reservations one after another and reports each.
type runner struct {
	finder   *engine.Finder
	strategy interference.Strategy // nil skips quantification
	runs     *store.Store          // nil disables saving
	pub      report.Publisher
	topic    string
	qos      byte
	out      io.Writer
	format   string
	logger   *slog.Logger
}

// runAll stops at the first failed or cancelled reservation and returns the
// records produced so far, including a cancelled partial one.
func (r *runner) runAll(ctx context.Context, objects []models.TrackedObject, reservations []models.Reservation,
	pointing antenna.Pointing, settings engine.RuntimeSettings) ([]store.Record, error) {
	var recs []store.Record
	for i, res := range reservations {
		rec, err := r.runOne(ctx, objects, res, pointing, settings)
		if rec.ID != "" {
			recs = append(recs, rec)
		}
		if err != nil {
			return recs, fmt.Errorf("reservation %d of %d: %w", i+1, len(reservations), err)
		}
	}
	return recs, nil
}

func (r *runner) runOne(ctx context.Context, objects []models.TrackedObject, res models.Reservation,
	pointing antenna.Pointing, settings engine.RuntimeSettings) (store.Record, error) {
	grid, err := engine.GridFor(res, settings)
	if err != nil {
		return store.Record{}, err
	}
	path, err := antenna.Build(ctx, pointing, grid, res.Facility, nil)
	if err != nil {
		return store.Record{}, err
	}

	mainBeam, horizon, runErr := r.finder.FindAll(ctx, objects, res, path, settings)
	cancelled := runErr != nil && ctx.Err() != nil
	if runErr != nil && !cancelled {
		return store.Record{}, runErr
	}

	rec := store.NewRecord(res, settings, mainBeam, horizon, cancelled)
	if r.strategy != nil {
		levels, err := interference.AssessWindows(r.strategy, mainBeam.Windows, path, res.Frequency.Frequency)
		if err != nil {
			r.logger.Warn("interference assessment incomplete", "run_id", rec.ID, "error", err)
		}
		rec.SetInterference(levels)
	}
	if r.runs != nil {
		if err := r.runs.Save(rec); err != nil {
			return store.Record{}, err
		}
	}
	r.logger.Info("reservation evaluated",
		"run_id", rec.ID,
		"begin", res.Window.Begin,
		"main_beam_windows", len(rec.MainBeam),
		"horizon_windows", len(rec.Horizon),
		"failures", len(rec.Failures),
	)

	rep := report.New(rec)
	if r.format == "json" {
		err = report.WriteJSON(r.out, rep)
	} else {
		err = report.WriteText(r.out, rep)
	}
	if err != nil {
		return rec, err
	}

	if r.pub != nil {
		sent, err := report.PublishReport(ctx, r.pub, r.topic, r.qos, rep)
		if err != nil {
			r.logger.Warn("publishing windows failed", "run_id", rec.ID, "sent", sent, "error", err)
		}
	}
	return rec, runErr
}

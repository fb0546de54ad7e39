package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/NSF-Swift/satellite-overhead/internal/api"
	"github.com/NSF-Swift/satellite-overhead/internal/auth"
	"github.com/NSF-Swift/satellite-overhead/internal/catalog"
	"github.com/NSF-Swift/satellite-overhead/internal/interference"
	"github.com/NSF-Swift/satellite-overhead/internal/metrics"
	"github.com/NSF-Swift/satellite-overhead/internal/propagation"
	"github.com/NSF-Swift/satellite-overhead/internal/report"
	"github.com/NSF-Swift/satellite-overhead/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		refresh    time.Duration
		maxSamples int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the window search over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), refresh, maxSamples)
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", 0, "Re-fetch element sets at this interval (0 disables)")
	cmd.Flags().IntVar(&maxSamples, "max-samples", api.DefaultMaxSamples, "Largest time grid accepted per request")
	return cmd
}

func (a *app) serve(ctx context.Context, refresh time.Duration, maxSamples int) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.Validate(); err != nil {
		return err
	}

	catalogs := catalog.NewStore()
	if cat, err := loadCatalog(cfg, logger); err != nil {
		logger.Info("no catalog loaded, starting without one", "error", err)
	} else {
		setCatalog(catalogs, cat)
	}

	runs, err := store.Open(cfg.Storage.Path, cfg.Storage.CacheMaxMiB, logger)
	if err != nil {
		return err
	}
	defer runs.Close()

	strategy, err := interference.New(cfg.Interference)
	if err != nil {
		return err
	}

	opts := api.Options{
		Addr:       cfg.Server.Address,
		Facility:   cfg.Facility,
		Settings:   cfg.Runtime.Settings(),
		RunTimeout: cfg.Server.RunTimeout,
		MaxSamples: maxSamples,
		TrustProxy: cfg.Server.TrustProxy,
		Auth:       auth.Config{Token: cfg.Server.AuthToken},
		Topic:      cfg.MQTT.Topic,
		QoS:        cfg.MQTT.QoS,
		Strategy:   strategy,
	}
	if cfg.MQTT.Broker != "" {
		pub, err := report.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Timeout)
		if err != nil {
			logger.Warn("mqtt unavailable, runs will not be published", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer pub.Close()
			opts.Publisher = pub
		}
	}

	provider := propagation.NewProvider(cfg.Facility, logger)
	srv := api.NewServer(opts, logger, catalogs, runs, provider)

	// Background goroutine to update catalog age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := catalogs.AgeSeconds(); age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if refresh > 0 {
		go a.refreshLoop(ctx, catalogs, provider, refresh)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Address,
			"auth_enabled", opts.Auth.Enabled(),
			"facility", cfg.Facility.Name,
			"refresh", refresh.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// refreshLoop fetches new element sets every interval and swaps the catalog.
// A failed refresh keeps the current catalog. Propagators for element sets
// no longer in the catalog are released after each swap.
func (a *app) refreshLoop(ctx context.Context, catalogs *catalog.Store, provider *propagation.Provider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			path, _, err := fetchElements(ctx, a.cfg, a.logger)
			if err != nil {
				a.logger.Warn("catalog refresh failed", "error", err)
				continue
			}
			cat, err := catalog.Load(path, a.cfg.Catalog.FrequencyFile, a.logger)
			if err != nil {
				a.logger.Warn("refreshed catalog rejected", "path", path, "error", err)
				continue
			}
			setCatalog(catalogs, cat)
			provider.Retain(cat.Objects)
		case <-ctx.Done():
			return
		}
	}
}

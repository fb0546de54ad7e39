package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NSF-Swift/satellite-overhead/internal/catalog"
	"github.com/NSF-Swift/satellite-overhead/internal/config"
	"github.com/NSF-Swift/satellite-overhead/internal/metrics"
	"github.com/NSF-Swift/satellite-overhead/internal/tle"
)

// catalogPath returns the configured TLE file, or the newest cached download.
func catalogPath(cfg *config.Config) (string, error) {
	if cfg.Catalog.TLEFile != "" {
		return cfg.Catalog.TLEFile, nil
	}
	latest, err := tle.NewCache(cfg.Catalog.CacheDir, cfg.Catalog.MaxFiles).Latest()
	if errors.Is(err, tle.ErrNoCachedFile) {
		return "", fmt.Errorf("no TLE file configured and nothing cached in %s; run `sopp tle fetch` first", cfg.Catalog.CacheDir)
	}
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}

func loadCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	path, err := catalogPath(cfg)
	if err != nil {
		return nil, err
	}
	return catalog.Load(path, cfg.Catalog.FrequencyFile, logger)
}

// fetchElements downloads element sets into the cache and returns the new
// file's path and entry count.
func fetchElements(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, int, error) {
	fetcher := tle.NewFetcher(cfg.Catalog.SourceURL, logger, cfg.Catalog.ExtraURLs...)
	data, err := fetcher.Fetch(ctx)
	if err != nil {
		return "", 0, err
	}

	path, err := tle.NewCache(cfg.Catalog.CacheDir, cfg.Catalog.MaxFiles).Save(data, time.Now().UTC())
	if err != nil {
		return "", 0, err
	}
	entries, err := tle.ParseFile(path, logger)
	if err != nil {
		return path, 0, err
	}
	logger.Info("element sets fetched", "source", fetcher.SourceURL(), "path", path, "entries", len(entries))
	return path, len(entries), nil
}

func setCatalog(store *catalog.Store, cat *catalog.Catalog) {
	store.Set(cat)
	metrics.SetCatalogObjects(len(cat.Objects))
	metrics.SetCatalogAge(0)
}

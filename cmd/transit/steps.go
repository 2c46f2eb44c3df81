package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmetro/transit/config"
	"github.com/openmetro/transit/export"
	"github.com/openmetro/transit/feed"
	"github.com/openmetro/transit/load"
	"github.com/openmetro/transit/storage"
)

// The refresh pipeline is download, import, export. Each step is
// usable on its own via its command; refresh chains them with the
// failure policy that only a broken import is fatal.

func runDownload(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.FeedURL == "" {
		return fmt.Errorf("no feed URL configured")
	}

	fetcher := feed.NewFetcher(time.Duration(cfg.RefreshDays)*24*time.Hour, logger)
	return fetcher.Fetch(ctx, cfg.FeedURL, cfg.ArchivePath())
}

func runImport(cfg *config.Config, logger *slog.Logger) error {
	if err := feed.Extract(cfg.ArchivePath(), cfg.FeedDir(), logger); err != nil {
		return err
	}

	if cfg.PostgresDSN != "" {
		return load.ImportPostgres(cfg.FeedDir(), cfg.PostgresDSN, logger)
	}
	return load.ImportSQLite(cfg.FeedDir(), cfg.StorePath(), logger)
}

func runExport(cfg *config.Config, logger *slog.Logger) error {
	store, err := storage.OpenSQLite(cfg.StorePath())
	if err != nil {
		return err
	}
	defer store.Close()

	return export.Run(store, cfg.FlatDir(), logger)
}

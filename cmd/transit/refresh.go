package main

import (
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Runs the full download, import and export pipeline",
	Args:  cobra.NoArgs,
	RunE:  refresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

// refresh tolerates a failed download (the previous archive is still
// importable) and a failed export (the store still serves), but a
// failed import aborts: a half-built store must never replace a good
// one.
func refresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	if cfg.SkipDownload {
		logger.Info("download disabled, using existing archive")
	} else if err := runDownload(cmd.Context(), cfg, logger); err != nil {
		logger.Warn("download failed, continuing with existing archive", "error", err)
	}

	if err := runImport(cfg, logger); err != nil {
		return err
	}

	if err := runExport(cfg, logger); err != nil {
		logger.Warn("export failed, flat-file artifacts not updated", "error", err)
	}

	return nil
}

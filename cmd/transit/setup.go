package main

import (
	"os"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepares the data directory and runs an initial refresh",
	Args:  cobra.NoArgs,
	RunE:  setup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.DataDir, cfg.FeedDir(), cfg.FlatDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return refresh(cmd, args)
}

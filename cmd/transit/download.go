package main

import (
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Downloads the feed archive if the local copy is stale",
	Args:  cobra.NoArgs,
	RunE:  download,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func download(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return runDownload(cmd.Context(), cfg, newLogger())
}

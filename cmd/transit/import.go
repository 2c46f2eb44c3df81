package main

import (
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Extracts the feed archive and rebuilds the store",
	Args:  cobra.NoArgs,
	RunE:  runImportCmd,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return runImport(cfg, newLogger())
}

package main

import (
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Builds flat-file query artifacts from the store",
	Args:  cobra.NoArgs,
	RunE:  runExportCmd,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return runExport(cfg, newLogger())
}

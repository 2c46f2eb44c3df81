package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmetro/transit/config"
)

var rootCmd = &cobra.Command{
	Use:          "transit",
	Short:        "Transit schedule data tool",
	Long:         "Downloads, imports and serves transit schedule feeds",
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	transit "github.com/openmetro/transit"
	"github.com/openmetro/transit/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the query API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	engine, err := transit.Open(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	server := api.NewServer(engine, func() transit.Status {
		return transit.CheckStore(cfg.StorePath(), cfg.RefreshDays)
	}, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr)
	return srv.ListenAndServe()
}

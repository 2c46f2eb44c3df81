package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmetro/transit/storage"
)

var agenciesCmd = &cobra.Command{
	Use:   "agencies",
	Short: "Lists the agencies in the imported feed",
	Args:  cobra.NoArgs,
	RunE:  agencies,
}

func init() {
	rootCmd.AddCommand(agenciesCmd)
}

func agencies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.OpenSQLite(cfg.StorePath())
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.Agencies()
	if err != nil {
		return err
	}

	for _, a := range list {
		fmt.Printf("%s\t%s\t%s\n", a.ID, a.Name, a.Timezone)
	}
	return nil
}

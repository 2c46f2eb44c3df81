package main

import (
	"fmt"

	"github.com/spf13/cobra"

	transit "github.com/openmetro/transit"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reports store availability and feed age",
	Args:  cobra.NoArgs,
	RunE:  status,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func status(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := transit.CheckStore(cfg.StorePath(), cfg.RefreshDays)

	if !st.Available {
		fmt.Println("store: unavailable")
		return nil
	}

	fmt.Println("store: available")
	fmt.Printf("calendar: %v\n", st.HasCalendar)
	if !st.ImportedAt.IsZero() {
		fmt.Printf("imported: %s (%d days ago)\n", st.ImportedAt.Format("2006-01-02"), st.AgeDays)
	}
	fmt.Printf("stale: %v\n", st.Stale)
	return nil
}

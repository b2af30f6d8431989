package cmd

import (
	"fmt"

	"github.com/jrschumacher/fitlink/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(_ *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}

		dbService, err := db.NewService(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = dbService.Close() }()

		switch direction {
		case "down":
			if err := dbService.MigrateDown(); err != nil {
				return err
			}
		case "up":
			if err := dbService.MigrateUp(); err != nil {
				return err
			}
		}

		version, dirty, err := dbService.SchemaVersion()
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

package cmd

import (
	"github.com/jrschumacher/fitlink/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"start"},
	Short:   "Start the fitlink server",
	PreRunE: validConfig,
	RunE: func(_ *cobra.Command, _ []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

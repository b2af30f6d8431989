package cmd

import (
	"os"

	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fitlink",
	Short: "fitlink CLI",
	Long:  `fitlink connects user accounts to wearable-data providers over OAuth2 and keeps their tokens fresh`,
}

func Execute(c *config.Config) {
	cfg = c
	logger.Info("Starting CLI", "env", cfg.AppEnv)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("CLI error", "error", err)
		os.Exit(1)
	}
}

// validConfig fails the command when configuration is incomplete.
func validConfig(*cobra.Command, []string) error {
	return config.Validate(cfg)
}

// Package main is the entry point for the fitlink application
package main

import (
	"github.com/jrschumacher/fitlink/cmd"
	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.AppEnv)

	cmd.Execute(cfg)
}

package main

import (
	"context"
	"errors"
	"os"

	"github.com/mcampolo/reeldeck/internal/services"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	var dropbox *services.DropboxProvider
	if config.Credentials.Dropbox.AppKey != "" {
		dropbox = services.NewDropboxProvider(config.Credentials.Dropbox)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Dropbox:    dropbox,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "reeldeck",
		Usage:    "Curate cloud-storage videos into ordered reels",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

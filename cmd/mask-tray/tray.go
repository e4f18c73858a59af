package main

import (
	"context"

	"github.com/petems/mask-tray/internal/config"
	"github.com/petems/mask-tray/internal/tray"
)

func runTray(ctx context.Context) error {
	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(cfg, cfgPath(), Version, Commit, log)

	application, stop, err := buildApp(ctx, true, trayUI)
	if err != nil {
		return err
	}
	defer stop()

	// Set app reference in tray
	trayUI.SetApp(application)

	log.Info().Msg("MaskTray starting...")

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("Shutting down...")
	return nil
}

func cfgPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

package main

import (
	"log/slog"
	"os"

	"freight-backoffice/internal/app"
	"freight-backoffice/internal/logger"
)

func main() {
	// Replaced by the configured logger once the config is loaded.
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, slog.LevelInfo)))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

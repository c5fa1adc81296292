// Package main starts the DAQ interface web server with the dashboard
// embedded in the binary.
package main

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/app"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/infrastructure"
)

//go:embed all:frontend
var frontendFiles embed.FS

func main() {
	var frontendFS fs.FS
	if sub, err := fs.Sub(frontendFiles, "frontend"); err == nil {
		frontendFS = sub
	} else {
		slog.Warn("frontend embedding failed, running API-only",
			slog.String("error", err.Error()))
	}

	application, err := app.NewApplication(frontendFS)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runErr := application.Run()

	if err := infrastructure.CloseLogFile(); err != nil {
		slog.Error("failed to close log file", slog.String("error", err.Error()))
	}

	if runErr != nil {
		slog.Error("application error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}

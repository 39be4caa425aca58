package main

import (
	"fmt"
	"os"

	"github.com/dkorir/faceattend-go/cmd"
	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logPath := ""
	if settings.Main.Log.Enabled {
		logPath = settings.Main.Log.Path
	}
	logging.Init(logPath, logging.ParseLevel(settings.Main.Log.Level))

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

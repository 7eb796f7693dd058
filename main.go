package main

import (
	"os"

	"github.com/tphakala/dusnap/cmd"
	"github.com/tphakala/dusnap/internal/conf"
	"github.com/tphakala/dusnap/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Error loading configuration", "error", err)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

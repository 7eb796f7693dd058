// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/dusnap/cmd/measure"
	"github.com/tphakala/dusnap/cmd/serve"
	"github.com/tphakala/dusnap/internal/conf"
	"github.com/tphakala/dusnap/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dusnap",
		Short: "Periodic disk-usage snapshots of a monitored directory tree",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		measure.Command(settings),
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Snapshot.HomePath, "home", viper.GetString("snapshot.homepath"), "Monitored home directory")
	rootCmd.PersistentFlags().StringVar(&settings.Snapshot.Command, "command", viper.GetString("snapshot.command"), "External sizing command")
	rootCmd.PersistentFlags().DurationVar(&settings.Snapshot.Timeout, "timeout", viper.GetDuration("snapshot.timeout"), "Per-target sizing process limit")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}

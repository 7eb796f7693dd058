// Package serve implements the long-running service command.
package serve

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/dusnap/internal/api"
	"github.com/tphakala/dusnap/internal/conf"
	"github.com/tphakala/dusnap/internal/datastore"
	"github.com/tphakala/dusnap/internal/logging"
	"github.com/tphakala/dusnap/internal/observability"
	"github.com/tphakala/dusnap/internal/registry"
	"github.com/tphakala/dusnap/internal/usage"
)

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the snapshot service with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(settings)
		},
	}
}

func runService(settings *conf.Settings) error {
	if settings.Snapshot.HomePath == "" {
		return fmt.Errorf("snapshot.homepath must be configured (or pass --home)")
	}
	if info, err := os.Stat(settings.Snapshot.HomePath); err != nil || !info.IsDir() {
		return fmt.Errorf("snapshot.homepath %q is not an existing directory", settings.Snapshot.HomePath)
	}

	log := logging.ForService(settings.Main.Name)
	if log == nil {
		log = slog.Default()
	}

	if settings.Main.Log.Enabled {
		fileLogger, closeLogger, err := logging.NewFileLogger(
			settings.Main.Log.Path, settings.Main.Name, slog.LevelInfo,
			logging.FileLoggerOptions{
				MaxSizeMB:  settings.Main.Log.MaxSize,
				MaxBackups: settings.Main.Log.MaxBackups,
				MaxAgeDays: settings.Main.Log.MaxAge,
			})
		if err != nil {
			log.Warn("Could not open log file, continuing with stdout only", "error", err)
		} else {
			log = fileLogger
			defer closeLogger() //nolint:errcheck // best effort on shutdown
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	reg := registry.NewLocal(settings.Snapshot.HomePath, settings.Snapshot.JobsDir, log)

	sizer := usage.NewSizer(settings.Snapshot.Command, settings.Snapshot.Timeout, log, metrics.Snapshot)
	builder := usage.NewBuilder(reg, sizer, usage.BuilderOptions{
		HomeLabel:       settings.Snapshot.HomeLabel,
		TempLabel:       settings.Snapshot.TempLabel,
		DirectoryPacing: settings.Snapshot.DirectoryPacing,
	}, log, metrics.Snapshot)

	opts := usage.SchedulerOptions{QuietPeriod: settings.Snapshot.QuietPeriod}
	if settings.Output.SQLite.Enabled {
		store, err := datastore.Open(settings.Output.SQLite.Path, log)
		if err != nil {
			log.Warn("Could not open snapshot database, running without persistence", "error", err)
		} else {
			opts.Store = store
			defer store.Close() //nolint:errcheck // best effort on shutdown
		}
	}

	scheduler := usage.NewScheduler(builder, opts, log, metrics.Snapshot)
	scheduler.Start()
	defer scheduler.Stop()

	// Warm the snapshot right away instead of waiting for the first read.
	scheduler.RequestRefresh()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if settings.WebServer.Enabled {
		controller := api.New(scheduler, reg, settings.Snapshot.HomePath, metrics, log)
		go func() {
			if err := controller.Start(settings.WebServer.Host, settings.WebServer.Port); err != nil && !isServerClosed(err) {
				log.Error("HTTP API stopped", "error", err)
				quit <- syscall.SIGTERM
			}
		}()
		defer controller.Shutdown() //nolint:errcheck // best effort on shutdown
	}

	sig := <-quit
	log.Info("Shutting down", "signal", sig.String())
	return nil
}

func isServerClosed(err error) bool {
	return err == http.ErrServerClosed
}

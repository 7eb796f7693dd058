// Package measure implements the one-shot measurement command.
package measure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/dusnap/internal/conf"
	"github.com/tphakala/dusnap/internal/logging"
	"github.com/tphakala/dusnap/internal/registry"
	"github.com/tphakala/dusnap/internal/usage"
)

// Command creates the measure subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "measure",
		Short: "Run a single measurement pass and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(settings)
		},
	}
}

func runOnce(settings *conf.Settings) error {
	if settings.Snapshot.HomePath == "" {
		return fmt.Errorf("snapshot.homepath must be configured (or pass --home)")
	}

	log := logging.ForService(settings.Main.Name)
	if log == nil {
		log = slog.Default()
	}

	reg := registry.NewLocal(settings.Snapshot.HomePath, settings.Snapshot.JobsDir, log)
	sizer := usage.NewSizer(settings.Snapshot.Command, settings.Snapshot.Timeout, log, nil)
	builder := usage.NewBuilder(reg, sizer, usage.BuilderOptions{
		HomeLabel:       settings.Snapshot.HomeLabel,
		TempLabel:       settings.Snapshot.TempLabel,
		DirectoryPacing: settings.Snapshot.DirectoryPacing,
	}, log, nil)

	dirs, jobs, err := builder.RunPass(context.Background(), &usage.Snapshot{})
	if err != nil {
		return fmt.Errorf("measurement pass failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DIRECTORY\tPATH\tSIZE")
	for _, d := range dirs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.DisplayName, d.Path, d.Size)
	}
	if len(jobs) > 0 {
		fmt.Fprintln(w, "\nJOB\tPATH\tSIZE")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", j.FullName, j.Path, j.Size)
		}
	}
	return w.Flush()
}

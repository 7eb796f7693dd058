package usage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/dusnap/internal/errors"
	"github.com/tphakala/dusnap/internal/observability/metrics"
)

// Builder orchestrates one full measurement pass: it resolves the target
// list, measures every target through the Sizer and reconciles the results
// against the previous snapshot's collections.
type Builder struct {
	registry Registry
	sizer    *Sizer
	pacing   time.Duration // sleep between directory measurements
	homeLbl  string
	tempLbl  string
	log      *slog.Logger
	metrics  *metrics.SnapshotMetrics
}

// BuilderOptions configure a Builder.
type BuilderOptions struct {
	HomeLabel string
	TempLabel string
	// DirectoryPacing is the sleep after each directory measurement. It
	// bounds sustained I/O at the cost of snapshot freshness; job targets
	// are not paced because the scheduler already serializes passes.
	DirectoryPacing time.Duration
}

// NewBuilder creates a Builder over the given registry and sizer.
func NewBuilder(registry Registry, sizer *Sizer, opts BuilderOptions, log *slog.Logger, m *metrics.SnapshotMetrics) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if opts.HomeLabel == "" {
		opts.HomeLabel = "HOME"
	}
	if opts.TempLabel == "" {
		opts.TempLabel = "tmpdir"
	}
	return &Builder{
		registry: registry,
		sizer:    sizer,
		pacing:   opts.DirectoryPacing,
		homeLbl:  opts.HomeLabel,
		tempLbl:  opts.TempLabel,
		log:      log,
		metrics:  m,
	}
}

type target struct {
	label string
	path  string
}

// RunPass executes one measurement pass against the previous snapshot and
// returns the next directory and job collections. It returns an error only
// when a collaborator is unavailable; individual measurement failures are
// absorbed as unknown sizes.
func (b *Builder) RunPass(ctx context.Context, prev *Snapshot) (dirs []DirectoryItem, jobs []JobItem, err error) {
	root := b.registry.RootDir()

	// This write is what blocks if the filesystem is frozen; reads must
	// never be the operation holding up a freeze.
	if touchErr := TouchHome(root); touchErr != nil {
		return nil, nil, errors.New(touchErr).
			Component("usage").
			Category(errors.CategoryFileIO).
			Context("operation", "touch-home").
			Context("path", root).
			Build()
	}

	jobs, err = b.buildJobs(ctx, prev.Jobs)
	if err != nil {
		return nil, nil, err
	}

	dirs, err = b.buildDirectories(ctx, root, prev.Directories)
	if err != nil {
		return nil, nil, err
	}

	return dirs, jobs, nil
}

func (b *Builder) buildJobs(ctx context.Context, prev []JobItem) ([]JobItem, error) {
	refs, err := b.registry.Jobs()
	if err != nil {
		return nil, errors.New(err).
			Component("usage").
			Category(errors.CategoryRegistry).
			Context("operation", "list-jobs").
			Build()
	}

	fresh := make([]JobItem, 0, len(refs))
	for _, ref := range refs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fresh = append(fresh, JobItem{
			FullName:    ref.FullName,
			DisplayName: ref.DisplayName,
			Path:        ref.RootDir,
			Size:        b.sizer.Measure(ctx, ref.RootDir),
		})
	}

	keep := func(item JobItem) bool { return b.registry.IsTracked(item.FullName) }
	return Reconcile(prev, fresh, keep, nil), nil
}

func (b *Builder) buildDirectories(ctx context.Context, root string, prev []DirectoryItem) ([]DirectoryItem, error) {
	targets := b.directoryTargets(root)

	inTargets := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		inTargets[t.path] = struct{}{}
	}

	fresh := make([]DirectoryItem, 0, len(targets))
	for _, t := range targets {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fresh = append(fresh, DirectoryItem{
			DisplayName: t.label,
			Path:        t.path,
			Size:        b.sizer.Measure(ctx, t.path),
		})
		// Keep load average nice and low between directory targets.
		if b.pacing > 0 {
			select {
			case <-time.After(b.pacing):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	keep := func(item DirectoryItem) bool {
		_, ok := inTargets[item.Path]
		return ok
	}
	return Reconcile(prev, fresh, keep, nil), nil
}

// directoryTargets enumerates the home root, its direct subdirectories and
// the platform temp directory, deduplicated by path. Enumeration order is
// deterministic (ReadDir sorts by name) and the last label for a path wins.
func (b *Builder) directoryTargets(root string) []target {
	targets := []target{{label: b.homeLbl, path: root}}

	entries, err := os.ReadDir(root)
	if err != nil {
		b.log.Warn("Could not list home subdirectories", "path", root, "error", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			targets = append(targets, target{
				label: b.homeLbl + "/" + entry.Name(),
				path:  filepath.Join(root, entry.Name()),
			})
		}
	}

	targets = append(targets, target{label: b.tempLbl, path: os.TempDir()})

	// Dedupe by path, keeping first position but last label.
	index := make(map[string]int, len(targets))
	deduped := targets[:0]
	for _, t := range targets {
		if i, seen := index[t.path]; seen {
			deduped[i].label = t.label
			continue
		}
		index[t.path] = len(deduped)
		deduped = append(deduped, t)
	}
	return deduped
}

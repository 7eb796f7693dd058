// Package registry provides a filesystem-backed job registry: every direct
// subdirectory of the configured jobs directory is a tracked job whose
// private directory is the measurement target.
package registry

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/tphakala/dusnap/internal/errors"
	"github.com/tphakala/dusnap/internal/usage"
)

// DefaultKeepBuilds is how many build directories RotateJob retains.
const DefaultKeepBuilds = 10

// ErrJobNotFound is returned when a named job is not registered.
var ErrJobNotFound = errors.NewStd("job not found")

// Local is a registry rooted in a directory on the local filesystem.
type Local struct {
	root       string // monitored home root
	jobsDir    string // subdirectory of root holding per-job directories
	keepBuilds int
	log        *slog.Logger
}

// NewLocal creates a registry over root, with jobs under root/jobsDir.
func NewLocal(root, jobsDir string, log *slog.Logger) *Local {
	if log == nil {
		log = slog.Default()
	}
	return &Local{
		root:       root,
		jobsDir:    jobsDir,
		keepBuilds: DefaultKeepBuilds,
		log:        log,
	}
}

// RootDir implements usage.Registry.
func (l *Local) RootDir() string {
	return l.root
}

// Jobs implements usage.Registry. It enumerates the job directories in name
// order so measurement passes process targets deterministically.
func (l *Local) Jobs() ([]usage.JobRef, error) {
	jobsPath := filepath.Join(l.root, l.jobsDir)
	entries, err := os.ReadDir(jobsPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No jobs directory means no jobs, not a broken registry.
			return nil, nil
		}
		return nil, errors.New(err).
			Component("registry").
			Category(errors.CategoryRegistry).
			Context("operation", "list-jobs").
			Context("path", jobsPath).
			Build()
	}

	refs := make([]usage.JobRef, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		refs = append(refs, usage.JobRef{
			FullName:    entry.Name(),
			DisplayName: entry.Name(),
			RootDir:     filepath.Join(jobsPath, entry.Name()),
		})
	}
	return refs, nil
}

// IsTracked implements usage.Registry.
func (l *Local) IsTracked(fullName string) bool {
	info, err := os.Stat(filepath.Join(l.root, l.jobsDir, fullName))
	return err == nil && info.IsDir()
}

// RotateJob applies the retention policy to the named job: build
// directories under <job>/builds are removed oldest-first until at most
// keepBuilds remain. Jobs without a builds directory rotate to nothing.
func (l *Local) RotateJob(fullName string) error {
	jobPath := filepath.Join(l.root, l.jobsDir, fullName)
	if info, err := os.Stat(jobPath); err != nil || !info.IsDir() {
		return ErrJobNotFound
	}

	buildsPath := filepath.Join(jobPath, "builds")
	entries, err := os.ReadDir(buildsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.New(err).
			Component("registry").
			Category(errors.CategoryFileIO).
			Context("operation", "rotate-job").
			Context("path", buildsPath).
			Build()
	}

	type build struct {
		name    string
		modTime int64
	}
	builds := make([]build, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		builds = append(builds, build{name: entry.Name(), modTime: info.ModTime().UnixNano()})
	}
	if len(builds) <= l.keepBuilds {
		return nil
	}

	// Oldest first.
	sort.Slice(builds, func(i, j int) bool { return builds[i].modTime < builds[j].modTime })

	for _, b := range builds[:len(builds)-l.keepBuilds] {
		target := filepath.Join(buildsPath, b.name)
		if err := os.RemoveAll(target); err != nil {
			l.log.Warn("Failed to remove rotated build", "job", fullName, "path", target, "error", err)
			continue
		}
		l.log.Debug("Removed rotated build", "job", fullName, "path", target)
	}
	return nil
}

// SetKeepBuilds overrides the number of build directories retained by
// RotateJob.
func (l *Local) SetKeepBuilds(n int) {
	if n > 0 {
		l.keepBuilds = n
	}
}

package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/dusnap/internal/errors"
	"github.com/tphakala/dusnap/internal/observability/metrics"
)

// Scheduler owns the run state and the single-worker execution policy. At
// most one measurement pass runs at a time, enforced structurally by a
// capacity-1 work channel rather than a lock: a refresh request while a pass
// is queued or running is dropped, so overlapping passes are impossible.
//
// Reads are served from the last committed snapshot through an atomic
// pointer and never block on a running pass.
type Scheduler struct {
	builder *Builder
	store   Store          // nil disables persistence
	guard   PrivilegeGuard // brackets every pass
	quiet   time.Duration

	current atomic.Pointer[Snapshot]
	work    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log     *slog.Logger
	metrics *metrics.SnapshotMetrics
}

// SchedulerOptions configure a Scheduler.
type SchedulerOptions struct {
	// QuietPeriod is the minimum interval after a committed pass before a
	// read opportunistically triggers a new one.
	QuietPeriod time.Duration
	// Store persists snapshots across restarts. Optional.
	Store Store
	// Guard wraps every pass in an elevated execution context. Defaults to
	// NoopGuard.
	Guard PrivilegeGuard
}

// NewScheduler creates a Scheduler. Call Start to hydrate state and launch
// the worker.
func NewScheduler(builder *Builder, opts SchedulerOptions, log *slog.Logger, m *metrics.SnapshotMetrics) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if opts.Guard == nil {
		opts.Guard = NoopGuard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		builder: builder,
		store:   opts.Store,
		guard:   opts.Guard,
		quiet:   opts.QuietPeriod,
		work:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		metrics: m,
	}
	s.current.Store(&Snapshot{})
	return s
}

// Start hydrates the snapshot from the store, normalizes stale run state and
// launches the worker goroutine.
func (s *Scheduler) Start() {
	snap := &Snapshot{}
	if s.store != nil {
		loaded, err := s.store.Load()
		switch {
		case err != nil:
			s.log.Warn("Failed to load persisted snapshot, starting empty", "error", err)
		case loaded != nil:
			snap = loaded
		}
	}
	if snap.IsRunning() {
		// A persisted "running" state cannot survive a restart, the worker
		// was just created. Reset the end timestamp.
		snap.LastRunEnd = snap.LastRunStart
	}
	s.publish(snap)

	s.wg.Add(1)
	go s.worker()
}

// Stop cancels any in-flight pass and waits for the worker to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// IsRunning reports whether a pass is currently executing.
func (s *Scheduler) IsRunning() bool {
	return s.current.Load().IsRunning()
}

// Snapshot returns the current snapshot without triggering a refresh.
func (s *Scheduler) Snapshot() *Snapshot {
	return s.current.Load()
}

// RequestRefresh submits one pass to the worker unless a pass is already
// queued or running. Safe to call from any goroutine; never blocks.
func (s *Scheduler) RequestRefresh() {
	if s.IsRunning() {
		return
	}
	select {
	case s.work <- struct{}{}:
	default:
		// A pass is already queued.
	}
}

// Directories returns the current directory collection immediately,
// triggering a background refresh when the snapshot has gone stale.
func (s *Scheduler) Directories() []DirectoryItem {
	s.refreshIfStale()
	return s.current.Load().Directories
}

// Jobs returns the current job collection immediately, triggering a
// background refresh when the snapshot has gone stale.
func (s *Scheduler) Jobs() []JobItem {
	s.refreshIfStale()
	return s.current.Load().Jobs
}

func (s *Scheduler) refreshIfStale() {
	if s.current.Load().Since() >= s.quiet {
		s.RequestRefresh()
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.work:
			s.runPass()
		}
	}
}

func (s *Scheduler) runPass() {
	release := s.guard.Acquire()
	defer release()

	s.log.Info("Re-estimating disk usage")
	start := time.Now()

	prev := s.current.Load()
	// Publish the start timestamp before measuring so IsRunning flips true.
	// Collections stay at their previous committed values during the pass.
	s.publish(&Snapshot{
		Directories:  prev.Directories,
		Jobs:         prev.Jobs,
		LastRunStart: start,
		LastRunEnd:   prev.LastRunEnd,
	})

	dirs, jobs, err := s.builder.RunPass(s.ctx, prev)

	var next *Snapshot
	if err != nil {
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			s.log.Error("Disk usage pass failed", append([]any{"error", err}, ee.LogAttrs()...)...)
		} else {
			s.log.Error("Disk usage pass failed", "error", err)
		}
		// Failed pass: report not running without claiming new data, which
		// lets the next staleness check retry immediately.
		next = &Snapshot{
			Directories:  prev.Directories,
			Jobs:         prev.Jobs,
			LastRunStart: start,
			LastRunEnd:   start,
		}
		if s.metrics != nil {
			s.metrics.RecordPass("error", time.Since(start).Seconds())
		}
	} else {
		next = &Snapshot{
			Directories:  dirs,
			Jobs:         jobs,
			LastRunStart: start,
			LastRunEnd:   time.Now(),
		}
		s.log.Info("Finished re-estimating disk usage",
			"directories", len(dirs),
			"jobs", len(jobs),
			"duration", next.Duration())
		if s.metrics != nil {
			s.metrics.RecordPass("success", next.Duration().Seconds())
		}
	}
	s.publish(next)

	if s.store != nil {
		if saveErr := s.store.Save(next); saveErr != nil {
			s.log.Warn("Failed to persist snapshot", "error", saveErr)
		}
	}
}

func (s *Scheduler) publish(snap *Snapshot) {
	s.current.Store(snap)
	if s.metrics != nil {
		s.metrics.UpdateCollections(len(snap.Directories), len(snap.Jobs))
		if !snap.LastRunEnd.IsZero() && !snap.IsRunning() {
			s.metrics.SetLastPassTimestamp(snap.LastRunEnd)
		}
	}
}

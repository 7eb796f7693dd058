package usage

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/dusnap/internal/errors"
	"github.com/tphakala/dusnap/internal/observability/metrics"
)

// Failure reasons recorded in metrics.
const (
	failureTargetMissing = "target_missing"
	failureTimeout       = "timeout"
	failureCanceled      = "canceled"
	failureExitStatus    = "exit_status"
	failureParse         = "parse"
)

// Sizer runs the external sizing command against a directory and parses its
// output. A measurement never fails a pass: every failure mode collapses to
// the unknown sentinel.
type Sizer struct {
	args    []string
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.SnapshotMetrics
}

// NewSizer creates a Sizer for the given command line, e.g.
// "ionice -c 3 du -ks". The command is run with the target directory as its
// working directory and "." appended as the final argument, so a du-style
// tool reports a single "<kb>\t." line.
func NewSizer(command string, timeout time.Duration, log *slog.Logger, m *metrics.SnapshotMetrics) *Sizer {
	if log == nil {
		log = slog.Default()
	}
	return &Sizer{
		args:    strings.Fields(command),
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Measure estimates the size of path in kilobytes. A missing or
// non-directory path returns the unknown sentinel without launching a
// process. The sizing process is killed after the configured timeout.
func (s *Sizer) Measure(ctx context.Context, path string) Size {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		s.recordFailure(failureTargetMissing)
		return UnknownSize()
	}

	if len(s.args) == 0 {
		s.log.Error("Sizing command is empty")
		s.recordFailure(failureExitStatus)
		return UnknownSize()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.log.Debug("Estimating usage", "path", path)
	start := time.Now()

	args := append(append([]string{}, s.args[1:]...), ".")
	cmd := exec.CommandContext(ctx, s.args[0], args...) //nolint:gosec // G204: command comes from operator configuration
	cmd.Dir = path

	var out bytes.Buffer
	cmd.Stdout = &out

	err = cmd.Run()
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordMeasureDuration(elapsed.Seconds())
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		// CommandContext already killed the process.
		ee := errors.Newf("sizing process timed out after %s", s.timeout).
			Component("usage").
			Category(errors.CategoryTimeout).
			Timing("measure", elapsed).
			Context("path", path).
			Build()
		s.log.Warn("Sizing process killed after timeout, storage may be slow",
			append([]any{"error", ee}, ee.LogAttrs()...)...)
		s.recordFailure(failureTimeout)
		return UnknownSize()
	case ctx.Err() != nil:
		// Parent cancellation, typically a shutdown mid-pass. Not a storage
		// health signal.
		s.log.Debug("Measurement cancelled", "path", path)
		s.recordFailure(failureCanceled)
		return UnknownSize()
	}
	if err != nil {
		ee := errors.New(err).
			Component("usage").
			Category(errors.CategoryCommandExecution).
			Context("path", path).
			Build()
		s.log.Debug("Sizing process exited with error",
			append([]any{"error", ee}, ee.LogAttrs()...)...)
		s.recordFailure(failureExitStatus)
		return UnknownSize()
	}

	kb, ok := parseSizeOutput(out.String())
	if !ok {
		s.log.Debug("Could not parse sizing output", "path", path, "output", out.String())
		s.recordFailure(failureParse)
		return UnknownSize()
	}
	return KnownSize(kb)
}

func (s *Sizer) recordFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordMeasureFailure(reason)
	}
}

// parseSizeOutput extracts the kilobyte count from du-style output of the
// form "12345\t.\n".
func parseSizeOutput(out string) (int64, bool) {
	out = strings.TrimSuffix(out, "\n")
	out = strings.TrimSuffix(out, "\t.")
	out = strings.TrimSpace(out)
	kb, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, false
	}
	return kb, true
}

// TouchHome updates the modification time of the monitored home root. It is
// called once before a pass measures anything, so that if the underlying
// storage is frozen this write is what blocks, never one of the reads.
func TouchHome(root string) error {
	now := time.Now()
	return os.Chtimes(root, now, now)
}

package usage

import "time"

// Snapshot is the published result of the most recent completed measurement
// pass. Instances are immutable once published; the scheduler replaces the
// whole snapshot by pointer swap so readers never observe a partially
// reconciled collection.
type Snapshot struct {
	Directories  []DirectoryItem
	Jobs         []JobItem
	LastRunStart time.Time
	LastRunEnd   time.Time
}

// IsRunning reports whether a pass is in progress. The timestamps are the
// sole running signal: LastRunEnd < LastRunStart iff a pass has started and
// not yet committed.
func (s *Snapshot) IsRunning() bool {
	return s.LastRunEnd.Before(s.LastRunStart)
}

// Since returns how long ago the last pass committed.
func (s *Snapshot) Since() time.Duration {
	return time.Since(s.LastRunEnd)
}

// Duration returns how long the last completed pass took.
func (s *Snapshot) Duration() time.Duration {
	if s.IsRunning() {
		return 0
	}
	return s.LastRunEnd.Sub(s.LastRunStart)
}

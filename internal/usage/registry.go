package usage

// JobRef identifies a tracked job and its private root directory.
type JobRef struct {
	FullName    string // fully qualified name, identity together with the path
	DisplayName string // short name for display and cleanup actions
	RootDir     string // measurement target
}

// Registry is the host's job registry. The engine only reads from it.
type Registry interface {
	// RootDir returns the monitored home root.
	RootDir() string
	// Jobs enumerates every top-level tracked job. An error here is fatal
	// for the current pass.
	Jobs() ([]JobRef, error)
	// IsTracked reports whether the named job is still registered.
	IsTracked(fullName string) bool
}

// Store persists snapshots between process runs. Both operations are
// best-effort for callers: load failures start the engine empty, save
// failures are logged and swallowed.
type Store interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// PrivilegeGuard brackets a measurement pass in an explicit elevated
// execution context. Release is always called, whatever the pass outcome.
type PrivilegeGuard interface {
	Acquire() (release func())
}

type noopGuard struct{}

func (noopGuard) Acquire() func() { return func() {} }

// NoopGuard returns a guard that grants nothing, for hosts without an
// impersonation concept.
func NoopGuard() PrivilegeGuard { return noopGuard{} }

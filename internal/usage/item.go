// Package usage implements the periodic disk-usage snapshot engine: it
// measures a fixed set of filesystem locations with an external sizing
// process and republishes the results as an in-memory queryable snapshot.
package usage

import "fmt"

// Size is the result of a single measurement, either a known value in
// kilobytes or unknown when the measurement failed.
type Size struct {
	kb    int64
	known bool
}

// KnownSize returns a Size holding the given kilobyte value.
func KnownSize(kb int64) Size {
	return Size{kb: kb, known: true}
}

// UnknownSize returns the unknown sentinel.
func UnknownSize() Size {
	return Size{}
}

// SizeFromKB converts a raw kilobyte value into a Size. Negative values map
// to the unknown sentinel, matching the on-disk encoding.
func SizeFromKB(kb int64) Size {
	if kb < 0 {
		return UnknownSize()
	}
	return KnownSize(kb)
}

// KB returns the measured kilobytes and whether the value is known.
func (s Size) KB() (int64, bool) {
	return s.kb, s.known
}

// Known reports whether the size was measured successfully.
func (s Size) Known() bool {
	return s.known
}

// SentinelKB returns the size in kilobytes, or -1 when unknown. Used for
// persistence and the JSON API, which keep the legacy encoding.
func (s Size) SentinelKB() int64 {
	if !s.known {
		return -1
	}
	return s.kb
}

// String renders a human-readable size, or "n/a" when unknown.
func (s Size) String() string {
	if !s.known {
		return "n/a"
	}
	switch {
	case s.kb >= 1024*1024*1024:
		return fmt.Sprintf("%.1f TB", float64(s.kb)/(1024*1024*1024))
	case s.kb >= 1024*1024:
		return fmt.Sprintf("%.1f GB", float64(s.kb)/(1024*1024))
	case s.kb >= 1024:
		return fmt.Sprintf("%.1f MB", float64(s.kb)/1024)
	default:
		return fmt.Sprintf("%d KB", s.kb)
	}
}

// Item is a measured filesystem location with an identity key. Both item
// variants implement it so reconciliation can stay generic.
type Item interface {
	// Key returns the identity of the item within its collection.
	Key() string
	// Location returns the measured filesystem path.
	Location() string
}

// DirectoryItem is a measured directory, identified by its path alone.
type DirectoryItem struct {
	DisplayName string
	Path        string
	Size        Size
}

// Key implements Item.
func (d DirectoryItem) Key() string { return d.Path }

// Location implements Item.
func (d DirectoryItem) Location() string { return d.Path }

// JobItem is a measured job directory, identified by path and the owning
// job's full name.
type JobItem struct {
	FullName    string // fully qualified job name
	DisplayName string // job name for display and cleanup actions
	Path        string
	Size        Size
}

// Key implements Item.
func (j JobItem) Key() string { return j.Path + "\x00" + j.FullName }

// Location implements Item.
func (j JobItem) Location() string { return j.Path }

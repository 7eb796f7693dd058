package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alwaysExists accepts every path, so tests control pruning explicitly.
func alwaysExists(string) bool { return true }

func dir(name, path string, kb int64) DirectoryItem {
	return DirectoryItem{DisplayName: name, Path: path, Size: KnownSize(kb)}
}

func TestReconcileAddsFreshItems(t *testing.T) {
	fresh := []DirectoryItem{
		dir("HOME", "/home", 500),
		dir("HOME/jobs", "/home/jobs", 300),
	}

	next := Reconcile(nil, fresh, nil, alwaysExists)

	require.Len(t, next, 2)
	assert.Equal(t, "/home", next[0].Path)
	assert.Equal(t, "/home/jobs", next[1].Path)
}

func TestReconcileUpdateWins(t *testing.T) {
	prev := []DirectoryItem{
		dir("HOME", "/home", 500),
		dir("HOME/jobs", "/home/jobs", 300),
		dir("tmpdir", "/tmp", 10),
	}
	fresh := []DirectoryItem{
		dir("HOME", "/home", 600),
		dir("HOME/jobs", "/home/jobs", 350),
		dir("tmpdir", "/tmp", 12),
	}

	next := Reconcile(prev, fresh, nil, alwaysExists)

	// Same identity set re-measured: count preserved, new sizes win.
	require.Len(t, next, len(prev))
	sizes := map[string]int64{}
	for _, item := range next {
		kb, known := item.Size.KB()
		require.True(t, known)
		sizes[item.Path] = kb
	}
	assert.Equal(t, int64(600), sizes["/home"])
	assert.Equal(t, int64(350), sizes["/home/jobs"])
	assert.Equal(t, int64(12), sizes["/tmp"])
}

func TestReconcileUniqueKeys(t *testing.T) {
	prev := []DirectoryItem{
		dir("a", "/a", 1),
		dir("b", "/b", 2),
	}
	fresh := []DirectoryItem{
		dir("a2", "/a", 10),
		dir("a3", "/a", 11),
		dir("c", "/c", 3),
	}

	next := Reconcile(prev, fresh, nil, alwaysExists)

	seen := map[string]int{}
	for _, item := range next {
		seen[item.Key()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "duplicate identity key %q", key)
	}
	// Last fresh measurement for /a wins.
	for _, item := range next {
		if item.Path == "/a" {
			kb, _ := item.Size.KB()
			assert.Equal(t, int64(11), kb)
		}
	}
}

func TestReconcileDropsMissingPaths(t *testing.T) {
	prev := []DirectoryItem{
		dir("keep", "/keep", 1),
		dir("gone", "/gone", 2),
	}
	fresh := []DirectoryItem{
		dir("gone", "/gone", 3),
		dir("new", "/new", 4),
	}
	exists := func(path string) bool { return path != "/gone" }

	next := Reconcile(prev, fresh, nil, exists)

	require.Len(t, next, 2)
	for _, item := range next {
		assert.NotEqual(t, "/gone", item.Path, "missing path survived reconciliation")
	}
}

func TestReconcileKeepPredicate(t *testing.T) {
	prev := []JobItem{
		{FullName: "alpha", Path: "/jobs/alpha", Size: KnownSize(1)},
		{FullName: "beta", Path: "/jobs/beta", Size: KnownSize(2)},
	}
	keep := func(item JobItem) bool { return item.FullName != "beta" }

	next := Reconcile(prev, nil, keep, alwaysExists)

	// Unregistered jobs are evicted even though their path still exists.
	require.Len(t, next, 1)
	assert.Equal(t, "alpha", next[0].FullName)
}

func TestReconcileOrderIsInsertionOrder(t *testing.T) {
	prev := []DirectoryItem{
		dir("a", "/a", 1),
		dir("b", "/b", 2),
	}
	fresh := []DirectoryItem{
		dir("b", "/b", 20),
		dir("c", "/c", 3),
	}

	next := Reconcile(prev, fresh, nil, alwaysExists)

	require.Len(t, next, 3)
	// /b was removed and re-appended, so it now follows /a's survivor slot.
	assert.Equal(t, "/a", next[0].Path)
	assert.Equal(t, "/b", next[1].Path)
	assert.Equal(t, "/c", next[2].Path)
}

func TestJobIdentityIncludesFullName(t *testing.T) {
	a := JobItem{FullName: "alpha", Path: "/jobs/shared"}
	b := JobItem{FullName: "beta", Path: "/jobs/shared"}
	assert.NotEqual(t, a.Key(), b.Key())
}

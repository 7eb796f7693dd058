package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dusnap/internal/usage"
)

// cannedStore hydrates the scheduler with a fixed snapshot so handler tests
// never depend on a live measurement pass.
type cannedStore struct {
	snap *usage.Snapshot
}

func (s *cannedStore) Load() (*usage.Snapshot, error) { return s.snap, nil }

func (s *cannedStore) Save(*usage.Snapshot) error { return nil }

type recordingRotator struct {
	calls chan string
	err   error
}

func (r *recordingRotator) RotateJob(fullName string) error {
	r.calls <- fullName
	return r.err
}

type nullRegistry struct{ root string }

func (r *nullRegistry) RootDir() string               { return r.root }
func (r *nullRegistry) Jobs() ([]usage.JobRef, error) { return nil, nil }
func (r *nullRegistry) IsTracked(string) bool         { return false }

func newTestController(t *testing.T, snap *usage.Snapshot, rotator Rotator) *Controller {
	t.Helper()
	home := t.TempDir()
	sizer := usage.NewSizer("true", time.Second, nil, nil)
	builder := usage.NewBuilder(&nullRegistry{root: home}, sizer, usage.BuilderOptions{}, nil, nil)
	sched := usage.NewScheduler(builder, usage.SchedulerOptions{
		QuietPeriod: time.Hour,
		Store:       &cannedStore{snap: snap},
	}, nil, nil)
	sched.Start()
	t.Cleanup(sched.Stop)

	return New(sched, rotator, home, nil, nil)
}

func testSnapshot() *usage.Snapshot {
	start := time.Now().Add(-time.Minute)
	return &usage.Snapshot{
		Directories: []usage.DirectoryItem{
			{DisplayName: "HOME", Path: "/var/lib/app", Size: usage.KnownSize(2048)},
			{DisplayName: "HOME/logs", Path: "/var/lib/app/logs", Size: usage.UnknownSize()},
		},
		Jobs: []usage.JobItem{
			{FullName: "alpha", DisplayName: "alpha", Path: "/var/lib/app/jobs/alpha", Size: usage.KnownSize(700)},
		},
		LastRunStart: start,
		LastRunEnd:   start.Add(10 * time.Second),
	}
}

func doRequest(c *Controller, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func TestGetDirectories(t *testing.T) {
	c := newTestController(t, testSnapshot(), nil)

	rec := doRequest(c, http.MethodGet, "/api/v1/usage/directories")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []DirectoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "HOME", entries[0].DisplayName)
	assert.Equal(t, int64(2048), entries[0].SizeKB)
	assert.Equal(t, "2.0 MB", entries[0].Size)

	assert.Equal(t, int64(-1), entries[1].SizeKB, "unknown sizes serialize as the -1 sentinel")
	assert.Equal(t, "n/a", entries[1].Size)
}

func TestGetJobs(t *testing.T) {
	c := newTestController(t, testSnapshot(), nil)

	rec := doRequest(c, http.MethodGet, "/api/v1/usage/jobs")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []JobEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "alpha", entries[0].FullName)
	assert.Equal(t, int64(700), entries[0].SizeKB)
}

func TestGetJobsEmptySnapshotIsEmptyArray(t *testing.T) {
	c := newTestController(t, &usage.Snapshot{}, nil)

	rec := doRequest(c, http.MethodGet, "/api/v1/usage/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String(), "no jobs must serialize as [] rather than null")
}

func TestGetStatus(t *testing.T) {
	c := newTestController(t, testSnapshot(), nil)

	rec := doRequest(c, http.MethodGet, "/api/v1/usage/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Running)
	assert.Equal(t, 2, status.Directories)
	assert.Equal(t, 1, status.Jobs)
	assert.Equal(t, "10s", status.Duration)
	if status.Filesystem != nil {
		assert.Positive(t, status.Filesystem.TotalBytes)
	}
}

func TestRefreshIsAccepted(t *testing.T) {
	c := newTestController(t, testSnapshot(), nil)

	rec := doRequest(c, http.MethodPost, "/api/v1/usage/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// Idempotent: a second trigger while a pass is queued or running is
	// still accepted.
	rec = doRequest(c, http.MethodPost, "/api/v1/usage/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCleanupJob(t *testing.T) {
	rotator := &recordingRotator{calls: make(chan string, 1)}
	c := newTestController(t, testSnapshot(), rotator)

	rec := doRequest(c, http.MethodPost, "/api/v1/usage/jobs/cleanup?job=alpha")
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case job := <-rotator.calls:
		assert.Equal(t, "alpha", job)
	case <-time.After(5 * time.Second):
		t.Fatal("rotation was never invoked")
	}
}

func TestCleanupJobMissingParameter(t *testing.T) {
	rotator := &recordingRotator{calls: make(chan string, 1)}
	c := newTestController(t, testSnapshot(), rotator)

	rec := doRequest(c, http.MethodPost, "/api/v1/usage/jobs/cleanup")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCleanupJobWithoutRotator(t *testing.T) {
	c := newTestController(t, testSnapshot(), nil)

	rec := doRequest(c, http.MethodPost, "/api/v1/usage/jobs/cleanup?job=alpha")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

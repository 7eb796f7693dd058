package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/disk"
)

// DirectoryEntry is the JSON shape of one measured directory.
type DirectoryEntry struct {
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	SizeKB      int64  `json:"size_kb"` // -1 when unknown
	Size        string `json:"size"`    // human readable, "n/a" when unknown
}

// JobEntry is the JSON shape of one measured job.
type JobEntry struct {
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	SizeKB      int64  `json:"size_kb"` // -1 when unknown
	Size        string `json:"size"`    // human readable, "n/a" when unknown
}

// FilesystemStatus reports mount-level usage of the monitored home root.
type FilesystemStatus struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// StatusResponse is the JSON shape of the status endpoint.
type StatusResponse struct {
	Running      bool              `json:"running"`
	LastRunStart time.Time         `json:"last_run_start"`
	LastRunEnd   time.Time         `json:"last_run_end"`
	Since        string            `json:"since"`    // time since the last committed pass
	Duration     string            `json:"duration"` // duration of the last completed pass
	Directories  int               `json:"directories"`
	Jobs         int               `json:"jobs"`
	Filesystem   *FilesystemStatus `json:"filesystem,omitempty"`
}

// GetDirectories handles GET /api/v1/usage/directories. The read never
// blocks on a running pass; stale data is returned and a refresh is
// triggered in the background when the quiet period has elapsed.
func (c *Controller) GetDirectories(ctx echo.Context) error {
	items := c.scheduler.Directories()
	entries := make([]DirectoryEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, DirectoryEntry{
			DisplayName: item.DisplayName,
			Path:        item.Path,
			SizeKB:      item.Size.SentinelKB(),
			Size:        item.Size.String(),
		})
	}
	return ctx.JSON(http.StatusOK, entries)
}

// GetJobs handles GET /api/v1/usage/jobs.
func (c *Controller) GetJobs(ctx echo.Context) error {
	items := c.scheduler.Jobs()
	entries := make([]JobEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, JobEntry{
			FullName:    item.FullName,
			DisplayName: item.DisplayName,
			Path:        item.Path,
			SizeKB:      item.Size.SentinelKB(),
			Size:        item.Size.String(),
		})
	}
	return ctx.JSON(http.StatusOK, entries)
}

// GetStatus handles GET /api/v1/usage/status.
func (c *Controller) GetStatus(ctx echo.Context) error {
	snap := c.scheduler.Snapshot()
	resp := StatusResponse{
		Running:      snap.IsRunning(),
		LastRunStart: snap.LastRunStart,
		LastRunEnd:   snap.LastRunEnd,
		Since:        snap.Since().Round(time.Second).String(),
		Duration:     snap.Duration().Round(time.Millisecond).String(),
		Directories:  len(snap.Directories),
		Jobs:         len(snap.Jobs),
	}

	if fsUsage, err := disk.Usage(c.homePath); err == nil {
		resp.Filesystem = &FilesystemStatus{
			Path:        c.homePath,
			TotalBytes:  fsUsage.Total,
			UsedBytes:   fsUsage.Used,
			UsedPercent: fsUsage.UsedPercent,
		}
		if c.metrics != nil {
			c.metrics.Snapshot.UpdateHomeFilesystem(fsUsage.Used, fsUsage.Total)
		}
	} else if c.apiLogger != nil {
		c.apiLogger.Debug("Could not read filesystem usage", "path", c.homePath, "error", err)
	}

	return ctx.JSON(http.StatusOK, resp)
}

// Refresh handles POST /api/v1/usage/refresh. The trigger is idempotent: a
// request while a pass is running or queued is a no-op.
func (c *Controller) Refresh(ctx echo.Context) error {
	c.scheduler.RequestRefresh()
	return ctx.JSON(http.StatusAccepted, map[string]bool{
		"running": c.scheduler.IsRunning(),
	})
}

// CleanupJob handles POST /api/v1/usage/jobs/cleanup?job=NAME. The rotation
// runs asynchronously; failures are logged but not surfaced.
func (c *Controller) CleanupJob(ctx echo.Context) error {
	job := ctx.QueryParam("job")
	if job == "" {
		return c.HandleError(ctx, echo.ErrBadRequest, "missing 'job' query parameter", http.StatusBadRequest)
	}
	if c.rotator == nil {
		return c.HandleError(ctx, echo.ErrServiceUnavailable, "cleanup not available", http.StatusServiceUnavailable)
	}

	go func() {
		if err := c.rotator.RotateJob(job); err != nil && c.apiLogger != nil {
			c.apiLogger.Warn("Job cleanup failed", "job", job, "error", err)
		}
	}()

	return ctx.JSON(http.StatusAccepted, map[string]string{"job": job, "status": "cleanup scheduled"})
}

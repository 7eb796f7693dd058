// Package api exposes the snapshot engine over a JSON HTTP API.
package api

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/dusnap/internal/observability"
	"github.com/tphakala/dusnap/internal/usage"
)

// Rotator applies a job's retention policy. Cleanup requests are delegated
// here and run asynchronously; failures are logged, never surfaced.
type Rotator interface {
	RotateJob(fullName string) error
}

// Controller handles the HTTP API endpoints.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	scheduler *usage.Scheduler
	rotator   Rotator
	homePath  string
	metrics   *observability.Metrics
	apiLogger *slog.Logger
}

// New creates the API controller and registers all routes.
func New(scheduler *usage.Scheduler, rotator Rotator, homePath string, m *observability.Metrics, log *slog.Logger) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:      e,
		scheduler: scheduler,
		rotator:   rotator,
		homePath:  homePath,
		metrics:   m,
		apiLogger: log,
	}

	c.Group = e.Group("/api/v1/usage")
	c.initRoutes()

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/directories", c.GetDirectories)
	c.Group.GET("/jobs", c.GetJobs)
	c.Group.GET("/status", c.GetStatus)
	c.Group.POST("/refresh", c.Refresh)
	c.Group.POST("/jobs/cleanup", c.CleanupJob)
}

// Start runs the HTTP server. It blocks until the server stops.
func (c *Controller) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	if c.apiLogger != nil {
		c.apiLogger.Info("Starting HTTP API", "addr", addr)
	}
	return c.Echo.Start(addr)
}

// Shutdown stops the HTTP server gracefully.
func (c *Controller) Shutdown() error {
	return c.Echo.Close()
}

// HandleError logs err and responds with a JSON error body.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if c.apiLogger != nil {
		c.apiLogger.Error(message,
			"error", err.Error(),
			"path", ctx.Request().URL.Path,
			"ip", ctx.RealIP(),
		)
	}
	return ctx.JSON(code, map[string]string{"error": message})
}

package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/job"
	"github.com/schedcu/v2/internal/repository"
)

// Router wires the scheduler job HTTP surface onto an Echo instance,
// grounded on the teacher's internal/api/router.go (same middleware stack,
// one resource group instead of schedules/imports/coverage).
type Router struct {
	echo     *echo.Echo
	handlers *Handlers
}

// NewRouter creates a new Echo router with all routes registered.
func NewRouter(scheduler *job.Scheduler, jobs repository.JobRepository, cancels *job.CancelRegistry, defaultOptions entity.Options) *Router {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	r := &Router{
		echo:     e,
		handlers: NewHandlers(scheduler, jobs, cancels, defaultOptions),
	}
	r.registerRoutes()
	return r
}

func (r *Router) registerRoutes() {
	r.echo.GET("/api/health", r.handlers.Health)

	jobGroup := r.echo.Group("/scheduler/jobs")
	jobGroup.POST("", r.handlers.CreateScheduleJob)
	jobGroup.GET("/:id", r.handlers.GetScheduleJob)
	jobGroup.POST("/:id/cancel", r.handlers.CancelScheduleJob)
}

// Start starts the HTTP server.
func (r *Router) Start(addr string) error {
	return r.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.echo.Shutdown(ctx)
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/job"
	"github.com/schedcu/v2/internal/repository"
)

// Handlers implements the scheduler job HTTP surface, grounded on the
// teacher's internal/api/handlers.go (same Echo-handler-method shape, one
// resource instead of the teacher's schedules/imports/coverage groups).
type Handlers struct {
	scheduler      *job.Scheduler
	jobs           repository.JobRepository
	cancels        *job.CancelRegistry
	defaultOptions entity.Options
}

// NewHandlers wires the HTTP layer against the job scheduler, repository,
// and the same cancellation registry the asynq worker registers into.
// defaultOptions fills any zero-valued Options field on an incoming
// request, letting deployments set fleet-wide solver/postprocessor knobs
// (see cmd/server's MILP_* environment variables) without every client
// needing to specify them.
func NewHandlers(scheduler *job.Scheduler, jobs repository.JobRepository, cancels *job.CancelRegistry, defaultOptions entity.Options) *Handlers {
	return &Handlers{scheduler: scheduler, jobs: jobs, cancels: cancels, defaultOptions: defaultOptions}
}

// withDefaults fills zero-valued fields of opts from h.defaultOptions.
func (h *Handlers) withDefaults(opts entity.Options) entity.Options {
	if opts.Solver == "" {
		opts.Solver = h.defaultOptions.Solver
	}
	if opts.MaxSolveTimeMs == 0 {
		opts.MaxSolveTimeMs = h.defaultOptions.MaxSolveTimeMs
	}
	if opts.MultiRun.Attempts == 0 {
		opts.MultiRun = h.defaultOptions.MultiRun
	}
	zeroCSP := entity.CSPSettings{}
	if opts.CSPSettings == zeroCSP {
		opts.CSPSettings = h.defaultOptions.CSPSettings
	}
	zeroWeights := entity.ConstraintWeights{}
	if opts.ConstraintWeights == zeroWeights {
		opts.ConstraintWeights = h.defaultOptions.ConstraintWeights
	}
	return opts
}

// createJobRequest is the POST /scheduler/jobs body.
type createJobRequest struct {
	MilpInput    entity.ScheduleInput `json:"milpInput"`
	Name         string               `json:"name,omitempty"`
	DepartmentID string               `json:"departmentId,omitempty"`
	Solver       string               `json:"solver,omitempty"`
}

type createJobResponse struct {
	JobID string `json:"jobId"`
}

// CreateScheduleJob handles POST /scheduler/jobs: it persists a queued job
// record first, then enqueues the solve task, so a client polling GET
// /scheduler/jobs/{id} immediately after this call never 404s.
func (h *Handlers) CreateScheduleJob(c echo.Context) error {
	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_REQUEST", "invalid request body: "+err.Error()))
	}

	input := req.MilpInput
	if req.DepartmentID != "" {
		input.DepartmentID = entity.DepartmentID(req.DepartmentID)
	}
	input.Options = h.withDefaults(input.Options)

	record := &entity.ScheduleJob{
		ID:              entity.JobID(uuid.New()),
		Status:          entity.JobStatusQueued,
		Input:           input,
		PreferredSolver: req.Solver,
		CreatedAt:       entity.Now(),
		UpdatedAt:       entity.Now(),
	}

	if err := h.jobs.Create(context.Background(), record); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("JOB_CREATE_FAILED", err.Error()))
	}

	if err := h.scheduler.EnqueueScheduleSolve(context.Background(), record.ID, input, req.Solver); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("JOB_ENQUEUE_FAILED", err.Error()))
	}

	return c.JSON(http.StatusAccepted, SuccessResponse(createJobResponse{JobID: record.ID.String()}, nil))
}

type jobStatusResponse struct {
	ID               string                 `json:"id"`
	Status           entity.JobStatus       `json:"status"`
	Result           map[string]interface{} `json:"result,omitempty"`
	BestResult       map[string]interface{} `json:"bestResult,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ErrorDiagnostics map[string]interface{} `json:"errorDiagnostics,omitempty"`
	CreatedAt        string                 `json:"createdAt"`
	UpdatedAt        string                 `json:"updatedAt"`
}

func toJobStatusResponse(j *entity.ScheduleJob) jobStatusResponse {
	return jobStatusResponse{
		ID:               j.ID.String(),
		Status:           j.Status,
		Result:           j.Result,
		BestResult:       j.BestResult,
		Error:            j.Error,
		ErrorDiagnostics: j.ErrorDiagnostics,
		CreatedAt:        j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        j.UpdatedAt.Format(time.RFC3339),
	}
}

// GetScheduleJob handles GET /scheduler/jobs/:id.
func (h *Handlers) GetScheduleJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_JOB_ID", "job id must be a UUID"))
	}

	record, err := h.jobs.GetByID(context.Background(), entity.JobID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponseWithCode("JOB_NOT_FOUND", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("JOB_LOOKUP_FAILED", err.Error()))
	}

	return c.JSON(http.StatusOK, SuccessResponse(toJobStatusResponse(record), nil))
}

// CancelScheduleJob handles POST /scheduler/jobs/:id/cancel. A job still
// queued is cancelled immediately since no worker has claimed it yet;
// otherwise cancellation is cooperative, requested through the registry the
// running worker checks between solve attempts.
func (h *Handlers) CancelScheduleJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_JOB_ID", "job id must be a UUID"))
	}
	jobID := entity.JobID(id)

	record, err := h.jobs.GetByID(context.Background(), jobID)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponseWithCode("JOB_NOT_FOUND", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("JOB_LOOKUP_FAILED", err.Error()))
	}

	switch record.Status {
	case entity.JobStatusQueued:
		record.MarkCancelled(nil)
		if err := h.jobs.Update(context.Background(), record); err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("JOB_CANCEL_FAILED", err.Error()))
		}
	case entity.JobStatusProcessing:
		h.cancels.Cancel(jobID)
	}

	return c.JSON(http.StatusOK, SuccessResponse(toJobStatusResponse(record), nil))
}

// Health reports basic liveness, grounded on the teacher's Health handler.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, SuccessResponse(map[string]string{"status": "ok"}, nil))
}

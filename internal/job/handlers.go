package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/orchestrator"
	"github.com/schedcu/v2/internal/repository"
	"github.com/schedcu/v2/internal/solver"
)

// Handlers runs the solve pipeline for each enqueued schedule-solve job and
// persists its status transitions, grounded on the teacher's JobHandlers
// and original_source/scheduler-worker/src/app.py:process_job.
type Handlers struct {
	jobs     repository.JobRepository
	cancels  *CancelRegistry
}

// NewHandlers wires a job handler against the given repository and
// cancellation registry.
func NewHandlers(jobs repository.JobRepository, cancels *CancelRegistry) *Handlers {
	return &Handlers{jobs: jobs, cancels: cancels}
}

// RegisterHandlers registers all job handlers with the Asynq mux.
func (h *Handlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeScheduleSolve, h.HandleScheduleSolve)
}

// HandleScheduleSolve runs one schedule-solve attempt end to end: it marks
// the job processing, invokes the orchestrator, and persists whichever
// terminal status the solve lands on.
func (h *Handlers) HandleScheduleSolve(ctx context.Context, t *asynq.Task) error {
	var payload SolvePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	record, err := h.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", payload.JobID, asynq.SkipRetry)
	}
	if record.Status == entity.JobStatusCancelled {
		log.Printf("[job] %s cancelled before processing started, skipping", payload.JobID)
		return nil
	}

	record.MarkProcessing()
	if err := h.jobs.Update(ctx, record); err != nil {
		log.Printf("[job] %s failed to persist processing status: %v", payload.JobID, err)
	}

	cancel := &orchestrator.CancelToken{}
	h.cancels.Register(payload.JobID, cancel)
	defer h.cancels.Unregister(payload.JobID)

	started := time.Now()
	result, solveErr := orchestrator.Solve(ctx, payload.Input, payload.PreferredSolver, cancel)
	elapsed := time.Since(started)

	if solveErr != nil {
		h.finishFailed(ctx, record, solveErr)
		return nil
	}

	resultMap, buildErr := buildResult(payload.Input, result.Assignments, elapsed, result.Record)
	if buildErr != nil {
		record.MarkFailed("failed to serialize solve result: "+buildErr.Error(), nil)
		h.persist(ctx, record)
		return nil
	}

	switch {
	case result.TimedOut:
		guidance, _ := toMap(orchestrator.BuildGuidance(result.Record))
		record.MarkTimedOut(resultMap, guidance)
	case cancel.IsCancelled():
		record.MarkCancelled(resultMap)
	default:
		record.MarkCompleted(resultMap)
	}
	h.persist(ctx, record)
	log.Printf("[job] %s finished status=%s solveTimeMs=%d", payload.JobID, record.Status, elapsed.Milliseconds())
	return nil
}

func (h *Handlers) finishFailed(ctx context.Context, record *entity.ScheduleJob, solveErr error) {
	var failure *solver.SolverFailure
	if errors.As(solveErr, &failure) && failure.Status == solver.StatusCancelled {
		record.MarkCancelled(nil)
		h.persist(ctx, record)
		return
	}
	guidance := orchestrator.BuildGuidance(nil)
	diag, _ := toMap(guidance)
	record.MarkFailed(solveErr.Error(), diag)
	h.persist(ctx, record)
}

func (h *Handlers) persist(ctx context.Context, record *entity.ScheduleJob) {
	if err := h.jobs.Update(ctx, record); err != nil {
		log.Printf("[job] %s failed to persist terminal status: %v", record.ID, err)
	}
}

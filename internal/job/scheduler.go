// Package job wires the orchestrator into an asynq-backed job queue: one
// schedule-solve request per job, enqueued by the HTTP layer and executed
// on a worker goroutine, grounded on the teacher's internal/job package
// (same asynq.Client/asynq.ServeMux shape, now carrying a single job type).
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/schedcu/v2/internal/entity"
)

// TypeScheduleSolve is the only task type this service enqueues: solve one
// ScheduleInput and persist the result to the job repository.
const TypeScheduleSolve = "schedule:solve"

// SolvePayload is the asynq task payload for a schedule-solve job. The job
// record itself (status=queued) is created by the HTTP handler before
// enqueueing so a poll against GET /scheduler/jobs/{id} never races the
// worker picking the task up.
type SolvePayload struct {
	JobID           entity.JobID         `json:"job_id"`
	Input           entity.ScheduleInput `json:"input"`
	PreferredSolver string               `json:"preferred_solver"`
}

// Scheduler manages job enqueueing to Asynq.
type Scheduler struct {
	client *asynq.Client
}

// NewScheduler creates a new job scheduler connected to redisAddr.
func NewScheduler(redisAddr string) (*Scheduler, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})

	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Scheduler{client: client}, nil
}

// EnqueueScheduleSolve enqueues a schedule-solve job for the already-created
// jobID.
func (s *Scheduler) EnqueueScheduleSolve(ctx context.Context, jobID entity.JobID, input entity.ScheduleInput, preferredSolver string) error {
	payload := SolvePayload{JobID: jobID, Input: input, PreferredSolver: preferredSolver}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeScheduleSolve, payloadBytes, asynq.TaskID(jobID.String()))

	// Solve jobs are long-running CPU-bound work with their own internal
	// relaxation/multi-run retries; asynq-level retries would just repeat a
	// failure that already exhausted its own fallback ladder.
	_, err = s.client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Timeout(15*time.Minute))
	if err != nil {
		return fmt.Errorf("failed to enqueue schedule solve job: %w", err)
	}

	return nil
}

// Close closes the job scheduler and releases resources.
func (s *Scheduler) Close() error {
	return s.client.Close()
}

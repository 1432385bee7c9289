package job

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/orchestrator"
	"github.com/schedcu/v2/internal/repository/memory"
	"github.com/schedcu/v2/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTask(t *testing.T, taskType string, payload SolvePayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, data)
}

func TestHandleScheduleSolveSkipsJobCancelledBeforeProcessing(t *testing.T) {
	repo := memory.NewJobRepository()
	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.ScheduleJob{ID: id, Status: entity.JobStatusCancelled}))

	h := NewHandlers(repo, NewCancelRegistry())
	payload := SolvePayload{JobID: id, Input: entity.ScheduleInput{}}
	task := mustTask(t, TypeScheduleSolve, payload)

	require.NoError(t, h.HandleScheduleSolve(context.Background(), task))

	job, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCancelled, job.Status)
}

func TestFinishFailedMarksCancelledOnCancelledSolverFailure(t *testing.T) {
	repo := memory.NewJobRepository()
	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.ScheduleJob{ID: id, Status: entity.JobStatusProcessing}))
	job, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	h := NewHandlers(repo, NewCancelRegistry())
	h.finishFailed(context.Background(), job, &solver.SolverFailure{Status: solver.StatusCancelled, Message: "solve cancelled"})

	fetched, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCancelled, fetched.Status)
}

func TestFinishFailedMarksFailedWithGuidanceOnOtherFailures(t *testing.T) {
	repo := memory.NewJobRepository()
	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.ScheduleJob{ID: id, Status: entity.JobStatusProcessing}))
	job, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	h := NewHandlers(repo, NewCancelRegistry())
	h.finishFailed(context.Background(), job, &solver.SolverFailure{Status: solver.StatusInfeasible, Message: "no feasible schedule exists for the given constraints"})

	fetched, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, fetched.Status)
	assert.Contains(t, fetched.Error, "no feasible schedule")
}

func TestCancelRegistryCancelReturnsFalseForUnknownJob(t *testing.T) {
	registry := NewCancelRegistry()
	assert.False(t, registry.Cancel(uuid.New()))
}

func TestCancelRegistryCancelRequestsCancellationOfRegisteredToken(t *testing.T) {
	registry := NewCancelRegistry()
	id := uuid.New()
	token := &orchestrator.CancelToken{}
	registry.Register(id, token)

	assert.True(t, registry.Cancel(id))
	assert.True(t, token.IsCancelled())

	registry.Unregister(id)
	assert.False(t, registry.Cancel(id))
}

package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepository_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	helper := NewPostgresTestHelper(ctx, t)
	defer helper.Close(t)

	repo := NewJobRepository(helper.DB())

	id := entity.JobID(uuid.New())
	job := &entity.ScheduleJob{
		ID:              id,
		Status:          entity.JobStatusQueued,
		Input:           entity.ScheduleInput{DepartmentID: "dept-1"},
		PreferredSolver: "cpsat",
		CreatedAt:       entity.Now(),
		UpdatedAt:       entity.Now(),
	}
	require.NoError(t, repo.Create(ctx, job))

	fetched, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusQueued, fetched.Status)
	assert.Equal(t, entity.DepartmentID("dept-1"), fetched.Input.DepartmentID)
	assert.Equal(t, "cpsat", fetched.PreferredSolver)

	fetched.MarkCompleted(map[string]interface{}{"assignments": []interface{}{}})
	require.NoError(t, repo.Update(ctx, fetched))

	updated, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, updated.Status)
	assert.NotNil(t, updated.Result)
}

func TestJobRepository_GetByIDMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	helper := NewPostgresTestHelper(ctx, t)
	defer helper.Close(t)

	repo := NewJobRepository(helper.DB())

	_, err := repo.GetByID(ctx, entity.JobID(uuid.New()))
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))
}

func TestJobRepository_UpdateMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	helper := NewPostgresTestHelper(ctx, t)
	defer helper.Close(t)

	repo := NewJobRepository(helper.DB())

	job := &entity.ScheduleJob{ID: entity.JobID(uuid.New()), Status: entity.JobStatusFailed, CreatedAt: entity.Now(), UpdatedAt: entity.Now()}
	err := repo.Update(ctx, job)
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))
}

func TestJobRepository_DiagnosticsRoundTripThroughJSONB(t *testing.T) {
	ctx := context.Background()
	helper := NewPostgresTestHelper(ctx, t)
	defer helper.Close(t)

	repo := NewJobRepository(helper.DB())

	id := entity.JobID(uuid.New())
	job := &entity.ScheduleJob{ID: id, Status: entity.JobStatusProcessing, CreatedAt: entity.Now(), UpdatedAt: entity.Now()}
	require.NoError(t, repo.Create(ctx, job))

	job.MarkFailed("no feasible schedule exists", map[string]interface{}{
		"code":    "INSUFFICIENT_POTENTIAL_STAFF",
		"message": "staffing shortage on 2024-10-05",
	})
	require.NoError(t, repo.Update(ctx, job))

	fetched, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, fetched.Status)
	assert.Equal(t, "no feasible schedule exists", fetched.Error)
	require.NotNil(t, fetched.ErrorDiagnostics)
	assert.Equal(t, "INSUFFICIENT_POTENTIAL_STAFF", fetched.ErrorDiagnostics["code"])
}

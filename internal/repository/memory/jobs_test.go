package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepositoryCreateAndGetByID(t *testing.T) {
	repo := NewJobRepository()
	id := uuid.New()
	job := &entity.ScheduleJob{ID: id, Status: entity.JobStatusQueued, CreatedAt: entity.Now(), UpdatedAt: entity.Now()}

	require.NoError(t, repo.Create(context.Background(), job))

	fetched, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusQueued, fetched.Status)
}

func TestJobRepositoryGetByIDMissingReturnsNotFound(t *testing.T) {
	repo := NewJobRepository()
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, repository.IsNotFound(err))
}

func TestJobRepositoryCreateRejectsDuplicateID(t *testing.T) {
	repo := NewJobRepository()
	job := &entity.ScheduleJob{ID: uuid.New()}
	require.NoError(t, repo.Create(context.Background(), job))

	err := repo.Create(context.Background(), job)
	var valErr *repository.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestJobRepositoryUpdatePersistsStatusTransition(t *testing.T) {
	repo := NewJobRepository()
	job := &entity.ScheduleJob{ID: uuid.New(), Status: entity.JobStatusQueued}
	require.NoError(t, repo.Create(context.Background(), job))

	job.Status = entity.JobStatusProcessing
	require.NoError(t, repo.Update(context.Background(), job))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusProcessing, fetched.Status)
}

func TestJobRepositoryUpdateMissingReturnsNotFound(t *testing.T) {
	repo := NewJobRepository()
	err := repo.Update(context.Background(), &entity.ScheduleJob{ID: uuid.New()})
	assert.True(t, repository.IsNotFound(err))
}

func TestJobRepositoryGetByIDReturnsIndependentCopy(t *testing.T) {
	repo := NewJobRepository()
	job := &entity.ScheduleJob{ID: uuid.New(), Status: entity.JobStatusQueued}
	require.NoError(t, repo.Create(context.Background(), job))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	fetched.Status = entity.JobStatusFailed

	fetchedAgain, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusQueued, fetchedAgain.Status)
}

// Package memory is an in-process JobRepository, grounded on the teacher's
// internal/repository/memory package (map-behind-a-mutex repositories used
// for tests and single-instance deployments without DATABASE_URL set).
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// JobRepository stores ScheduleJob records in a map guarded by a RWMutex,
// following the teacher's ScheduleRepository shape.
type JobRepository struct {
	mu         sync.RWMutex
	jobs       map[entity.JobID]*entity.ScheduleJob
	queryCount int
}

// NewJobRepository returns an empty in-memory job repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[entity.JobID]*entity.ScheduleJob)}
}

// Create stores job, rejecting a duplicate ID.
func (r *JobRepository) Create(ctx context.Context, job *entity.ScheduleJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == uuid.Nil {
		return &repository.ValidationError{Field: "ID", Message: "job ID must not be empty"}
	}
	if _, exists := r.jobs[job.ID]; exists {
		return &repository.ValidationError{Field: "ID", Message: "job already exists"}
	}
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

// GetByID returns a copy of the stored job, or a *repository.NotFoundError.
func (r *JobRepository) GetByID(ctx context.Context, id entity.JobID) (*entity.ScheduleJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.queryCount++
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, &repository.NotFoundError{ResourceType: "ScheduleJob", ResourceID: id.String()}
	}
	clone := *job
	return &clone, nil
}

// Update overwrites the stored job, or returns a *repository.NotFoundError
// if it was never created.
func (r *JobRepository) Update(ctx context.Context, job *entity.ScheduleJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return &repository.NotFoundError{ResourceType: "ScheduleJob", ResourceID: job.ID.String()}
	}
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

// QueryCount reports how many GetByID calls this repository has served,
// matching the teacher's lightweight instrumentation on its memory repos.
func (r *JobRepository) QueryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queryCount
}

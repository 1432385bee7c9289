// Package repository defines the persistence boundary for scheduler jobs,
// grounded on the teacher's internal/repository package: the same
// aggregate-interface-plus-sentinel-error shape, scoped down to the single
// ScheduleJob record this service owns.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/schedcu/v2/internal/entity"
)

// JobRepository persists ScheduleJob records across their lifecycle. Both
// the memory and postgres implementations satisfy it, letting cmd/server
// choose a backend from DATABASE_URL without the job package knowing which
// one it got.
type JobRepository interface {
	Create(ctx context.Context, job *entity.ScheduleJob) error
	GetByID(ctx context.Context, id entity.JobID) (*entity.ScheduleJob, error)
	Update(ctx context.Context, job *entity.ScheduleJob) error
}

// NotFoundError reports a lookup against a record that does not exist,
// mirroring the teacher's repository.NotFoundError.
type NotFoundError struct {
	ResourceType string
	ResourceID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// ValidationError reports a persistence-layer rejection of a malformed
// record, mirroring the teacher's repository.ValidationError.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

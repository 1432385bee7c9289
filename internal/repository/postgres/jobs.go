// Package postgres implements repository.JobRepository against PostgreSQL,
// grounded on the teacher's internal/repository/postgres/job_queue.go:
// database/sql plus github.com/lib/pq, hand-written SQL, and JSON columns
// marshaled/unmarshaled at the repository boundary.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// JobRepository implements repository.JobRepository for PostgreSQL.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Schema is the DDL this repository expects; cmd/server applies it on
// startup the way the teacher's migrations bootstrap job_queue.
const Schema = `
CREATE TABLE IF NOT EXISTS scheduler_jobs (
	id                 TEXT PRIMARY KEY,
	status             TEXT NOT NULL,
	preferred_solver   TEXT NOT NULL DEFAULT '',
	input              JSONB NOT NULL,
	result             JSONB,
	best_result        JSONB,
	error_message      TEXT NOT NULL DEFAULT '',
	error_diagnostics  JSONB,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scheduler_jobs_status ON scheduler_jobs (status);
`

// Create inserts a new job row.
func (r *JobRepository) Create(ctx context.Context, job *entity.ScheduleJob) error {
	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	resultJSON, err := marshalNullable(job.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	bestResultJSON, err := marshalNullable(job.BestResult)
	if err != nil {
		return fmt.Errorf("failed to marshal best result: %w", err)
	}
	diagnosticsJSON, err := marshalNullable(job.ErrorDiagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal error diagnostics: %w", err)
	}

	query := `
		INSERT INTO scheduler_jobs (
			id, status, preferred_solver, input, result, best_result,
			error_message, error_diagnostics, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		job.PreferredSolver,
		inputJSON,
		resultJSON,
		bestResultJSON,
		job.Error,
		diagnosticsJSON,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id entity.JobID) (*entity.ScheduleJob, error) {
	job := &entity.ScheduleJob{}
	var inputJSON []byte
	var resultJSON, bestResultJSON, diagnosticsJSON []byte

	query := `
		SELECT id, status, preferred_solver, input, result, best_result,
		       error_message, error_diagnostics, created_at, updated_at
		FROM scheduler_jobs
		WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		(*string)(&job.Status),
		&job.PreferredSolver,
		&inputJSON,
		&resultJSON,
		&bestResultJSON,
		&job.Error,
		&diagnosticsJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &repository.NotFoundError{ResourceType: "ScheduleJob", ResourceID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &job.Input); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input: %w", err)
		}
	}
	if err := unmarshalNullable(resultJSON, &job.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if err := unmarshalNullable(bestResultJSON, &job.BestResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal best result: %w", err)
	}
	if err := unmarshalNullable(diagnosticsJSON, &job.ErrorDiagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal error diagnostics: %w", err)
	}

	return job, nil
}

// Update overwrites every mutable column of an existing job row.
func (r *JobRepository) Update(ctx context.Context, job *entity.ScheduleJob) error {
	resultJSON, err := marshalNullable(job.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	bestResultJSON, err := marshalNullable(job.BestResult)
	if err != nil {
		return fmt.Errorf("failed to marshal best result: %w", err)
	}
	diagnosticsJSON, err := marshalNullable(job.ErrorDiagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal error diagnostics: %w", err)
	}

	query := `
		UPDATE scheduler_jobs
		SET status = $1, result = $2, best_result = $3,
		    error_message = $4, error_diagnostics = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		string(job.Status),
		resultJSON,
		bestResultJSON,
		job.Error,
		diagnosticsJSON,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to inspect update result: %w", err)
	}
	if rows == 0 {
		return &repository.NotFoundError{ResourceType: "ScheduleJob", ResourceID: job.ID.String()}
	}
	return nil
}

func marshalNullable(v map[string]interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable(data []byte, dst *map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

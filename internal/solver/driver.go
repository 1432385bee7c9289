package solver

import (
	"context"
	"errors"
	"time"

	"github.com/schedcu/v2/internal/entity"
)

// SolverFailure is returned when a solve attempt produces no usable
// assignment set at all (infeasible, error, or cancelled before any
// feasible solution was found).
type SolverFailure struct {
	Status  Status
	Message string
}

func (e *SolverFailure) Error() string {
	return e.Message
}

// Outcome bundles everything callers need after one Solve call: the
// resulting assignments (nil on failure), the classified status, and wall
// time actually spent.
type Outcome struct {
	Assignments []entity.Assignment
	Status      Status
	WallTime    time.Duration
	Objective   float64
}

// Solve builds a model for input against backend and runs it to deadline
// (or until ctx is cancelled), returning the classified outcome. It never
// collects diagnostics itself — callers derive those from Outcome.Assignments
// via the diagnostics package so solver-time and postprocess-time records
// can never disagree (see DESIGN.md Open Question #1).
func Solve(ctx context.Context, input entity.ScheduleInput, backend Backend, deadline time.Duration) (*Outcome, error) {
	start := time.Now()
	model := NewModel(input, backend)
	model.Build()

	status, err := model.backend.Solve(ctx, deadline)
	wall := time.Since(start)

	switch status {
	case StatusOptimal, StatusFeasible:
		return &Outcome{
			Assignments: model.ExtractAssignments(),
			Status:      status,
			WallTime:    wall,
			Objective:   backend.ObjectiveValue(),
		}, nil
	case StatusCancelled:
		return &Outcome{Status: StatusCancelled, WallTime: wall}, &SolverFailure{Status: StatusCancelled, Message: "solve cancelled"}
	case StatusTimeout:
		return &Outcome{Status: StatusTimeout, WallTime: wall}, &SolverFailure{Status: StatusTimeout, Message: "solve exceeded its time budget"}
	case StatusInfeasible:
		return &Outcome{Status: StatusInfeasible, WallTime: wall}, &SolverFailure{Status: StatusInfeasible, Message: "no feasible schedule exists for the given constraints"}
	default:
		msg := "solver backend returned an error"
		if err != nil {
			msg = err.Error()
		}
		return &Outcome{Status: StatusError, WallTime: wall}, &SolverFailure{Status: StatusError, Message: msg}
	}
}

// IsRecoverable reports whether a SolverFailure is worth retrying under the
// orchestrator's relaxation ladder (infeasible/timeout) as opposed to a hard
// backend error or a caller-requested cancellation.
func IsRecoverable(err error) bool {
	var failure *SolverFailure
	if !errors.As(err, &failure) {
		return false
	}
	return failure.Status == StatusInfeasible || failure.Status == StatusTimeout
}

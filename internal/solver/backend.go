// Package solver builds and drives the constraint/objective model for one
// schedule solve: variable creation, hard/soft constraints, the weighted
// objective, and extraction of the resulting assignments and slack.
package solver

import (
	"context"
	"time"
)

// Status classifies the outcome of one backend solve.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusTimeout    Status = "timeout"
	StatusCancelled  Status = "cancelled"
	StatusInfeasible Status = "infeasible"
	StatusError      Status = "error"
)

// BoolVar is an opaque handle to a boolean decision variable, backend-owned.
type BoolVar interface{}

// Backend is the contract a constraint-optimization engine (MIP or CP-SAT)
// must satisfy so the model builder in this package can target either one
// (see SPEC_FULL.md §9, "weighted constraint satisfaction as MIP vs CP").
type Backend interface {
	// NewBoolVar creates a fresh boolean decision variable.
	NewBoolVar(name string) BoolVar

	// Fix forces a boolean variable to a constant value.
	Fix(v BoolVar, value bool)

	// AddLinearEqual adds Σ coeffs[i]*vars[i] == constant.
	AddLinearEqual(vars []BoolVar, coeffs []int64, constant int64)

	// AddLinearLessOrEqual adds Σ coeffs[i]*vars[i] <= constant.
	AddLinearLessOrEqual(vars []BoolVar, coeffs []int64, constant int64)

	// AddLinearGreaterOrEqualWithSlack adds Σ coeffs[i]*vars[i] + slack >= constant,
	// returning the nonnegative integer slack variable so the objective can
	// penalize it. slackUpperBound bounds the slack (the family's worst case).
	AddLinearGreaterOrEqualWithSlack(vars []BoolVar, coeffs []int64, constant int64, slackUpperBound int64) IntVar

	// AddLinearLessOrEqualWithSlack adds Σ coeffs[i]*vars[i] - slack <= constant,
	// i.e. the slack absorbs any excess above constant.
	AddLinearLessOrEqualWithSlack(vars []BoolVar, coeffs []int64, constant int64, slackUpperBound int64) IntVar

	// AddObjectiveTerm adds coeff*v (v may be a BoolVar or IntVar) to the
	// objective, which the backend minimizes.
	AddObjectiveTerm(v interface{}, coeff int64)

	// Solve runs the backend to a deadline (zero means no deadline) honoring
	// cancellation via ctx.
	Solve(ctx context.Context, deadline time.Duration) (Status, error)

	// BoolValue reads the solved value of a boolean variable. Only valid
	// after a Solve call returning Optimal or Feasible.
	BoolValue(v BoolVar) bool

	// IntValue reads the solved value of an integer (slack) variable.
	IntValue(v IntVar) int64

	// ObjectiveValue returns the solved objective value.
	ObjectiveValue() float64
}

// IntVar is an opaque handle to a nonnegative integer variable (used for
// slack), backend-owned.
type IntVar interface{}

// WeightScale is the integer scale applied to floating constraint weights
// before they become objective coefficients (see SPEC_FULL.md §9 "numeric
// safety").
const WeightScale = 1000

// ScaledWeight rounds w*WeightScale to the nearest integer coefficient.
func ScaledWeight(w float64) int64 {
	return int64(w*WeightScale + 0.5)
}

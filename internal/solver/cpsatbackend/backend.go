// Package cpsatbackend implements solver.Backend on top of Google OR-Tools'
// CP-SAT solver via its native Go binding, the `cpsat` backend named in
// SPEC_FULL.md §9.
package cpsatbackend

import (
	"context"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"

	"github.com/schedcu/v2/internal/solver"
)

// Backend drives one cpmodel.CpModelBuilder instance through one solve.
type Backend struct {
	builder   *cpmodel.CpModelBuilder
	objective *cpmodel.LinearExpr
	response  *cpmodel.CpSolverResponse
}

// New returns a fresh, empty CP-SAT backend.
func New() *Backend {
	return &Backend{
		builder:   cpmodel.NewCpModelBuilder(),
		objective: cpmodel.NewLinearExpr(),
	}
}

func (b *Backend) NewBoolVar(name string) solver.BoolVar {
	return b.builder.NewBoolVar().WithName(name)
}

func (b *Backend) Fix(v solver.BoolVar, value bool) {
	bv := v.(cpmodel.BoolVar)
	if value {
		b.builder.AddEquality(bv, cpmodel.NewConstant(1))
	} else {
		b.builder.AddEquality(bv, cpmodel.NewConstant(0))
	}
}

func exprOf(vars []solver.BoolVar, coeffs []int64) *cpmodel.LinearExpr {
	expr := cpmodel.NewLinearExpr()
	for i, v := range vars {
		expr.AddTerm(v.(cpmodel.BoolVar), coeffs[i])
	}
	return expr
}

func (b *Backend) AddLinearEqual(vars []solver.BoolVar, coeffs []int64, constant int64) {
	b.builder.AddEquality(exprOf(vars, coeffs), cpmodel.NewConstant(constant))
}

func (b *Backend) AddLinearLessOrEqual(vars []solver.BoolVar, coeffs []int64, constant int64) {
	b.builder.AddLessOrEqual(exprOf(vars, coeffs), cpmodel.NewConstant(constant))
}

func (b *Backend) AddLinearGreaterOrEqualWithSlack(vars []solver.BoolVar, coeffs []int64, constant int64, slackUpperBound int64) solver.IntVar {
	slack := b.builder.NewIntVar(0, slackUpperBound).WithName("slack_ge")
	expr := exprOf(vars, coeffs)
	expr.AddTerm(slack, 1)
	b.builder.AddGreaterOrEqual(expr, cpmodel.NewConstant(constant))
	return slack
}

func (b *Backend) AddLinearLessOrEqualWithSlack(vars []solver.BoolVar, coeffs []int64, constant int64, slackUpperBound int64) solver.IntVar {
	slack := b.builder.NewIntVar(0, slackUpperBound).WithName("slack_le")
	expr := exprOf(vars, coeffs)
	expr.AddTerm(slack, -1)
	b.builder.AddLessOrEqual(expr, cpmodel.NewConstant(constant))
	return slack
}

func (b *Backend) AddObjectiveTerm(v interface{}, coeff int64) {
	switch tv := v.(type) {
	case cpmodel.BoolVar:
		b.objective.AddTerm(tv, coeff)
	case cpmodel.IntVar:
		b.objective.AddTerm(tv, coeff)
	}
}

// Solve builds the proto model and runs CP-SAT, honoring deadline via a
// max-time parameter and ctx cancellation by checking ctx before the
// (otherwise uninterruptible) blocking call.
func (b *Backend) Solve(ctx context.Context, deadline time.Duration) (solver.Status, error) {
	if err := ctx.Err(); err != nil {
		return solver.StatusCancelled, err
	}
	b.builder.Minimize(b.objective)

	model, err := b.builder.Model()
	if err != nil {
		return solver.StatusError, err
	}

	params := cpmodel.NewSatParameters()
	if deadline > 0 {
		params = params.WithMaxTimeInSeconds(deadline.Seconds())
	}

	response, err := cpmodel.SolveCpModelWithParameters(model, params)
	if err != nil {
		return solver.StatusError, err
	}
	b.response = response

	switch response.GetStatus() {
	case cpmodel.CpSolverStatus_OPTIMAL:
		return solver.StatusOptimal, nil
	case cpmodel.CpSolverStatus_FEASIBLE:
		return solver.StatusFeasible, nil
	case cpmodel.CpSolverStatus_INFEASIBLE:
		return solver.StatusInfeasible, nil
	default:
		return solver.StatusError, nil
	}
}

func (b *Backend) BoolValue(v solver.BoolVar) bool {
	return cpmodel.SolutionBooleanValue(b.response, v.(cpmodel.BoolVar))
}

func (b *Backend) IntValue(v solver.IntVar) int64 {
	return cpmodel.SolutionIntegerValue(b.response, v.(cpmodel.IntVar))
}

func (b *Backend) ObjectiveValue() float64 {
	if b.response == nil {
		return 0
	}
	return b.response.GetObjectiveValue()
}

var _ solver.Backend = (*Backend)(nil)

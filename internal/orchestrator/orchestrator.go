// Package orchestrator implements the selection, relaxation, and ensemble
// policy that sits above one solve attempt: it picks a backend, retries
// through a relaxation ladder on failure, repeats with weight-jittered
// restarts, and keeps the best-scoring attempt. Grounded on
// original_source/scheduler-worker/src/app.py's solve_job,
// build_relaxed_schedule, _apply_weight_jitter, and _compute_solution_penalty.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/solver"
	"github.com/schedcu/v2/internal/solver/cpsatbackend"
	"github.com/schedcu/v2/internal/solver/diagnostics"
	"github.com/schedcu/v2/internal/solver/mipbackend"
	"github.com/schedcu/v2/internal/solver/postprocess"
	"github.com/schedcu/v2/internal/validation"
)

// relaxationWeightDecay mirrors build_relaxed_schedule's [0.8, 0.6, 0.4] ladder.
var relaxationWeightDecay = [3]float64{0.8, 0.6, 0.4}

const minRelaxedWeight = 0.2

// Synthetic per-attempt penalty weights, used only when the postprocessor's
// own finalPenalty isn't available (e.g. the backend returned before
// postprocessing could run) — grounded on _compute_solution_penalty.
const (
	synthStaffing     = 1000.0
	synthTeamCoverage = 400.0
	synthCareerGroup  = 350.0
	synthTeamWorkload = 200.0
	synthOffBalance   = 180.0
	synthShiftPattern = 120.0
	synthSpecialMiss  = 150.0
)

// Result is one completed job's final schedule, diagnostics, and the
// attempt-selection bookkeeping the caller (job handler) needs to render.
type Result struct {
	Assignments []entity.Assignment
	Status      solver.Status
	Record      *diagnostics.Record
	SolveTimeMs int64
	Objective   float64
	TimedOut    bool
}

// CancelToken is observed cooperatively between attempts and between
// relaxation levels. It is not linked to the context handed to the backend
// and the postprocessor: those stop early only when that context itself is
// cancelled, not when the token is set.
type CancelToken struct {
	cancelled atomic.Bool
}

func (c *CancelToken) Cancel()            { c.cancelled.Store(true) }
func (c *CancelToken) IsCancelled() bool  { return c != nil && c.cancelled.Load() }

// Solve runs the full orchestration policy for one job: pattern-constraint
// override, multi-run ensemble with weight jitter, and — inside each
// attempt — the relaxation ladder and backend fallback.
func Solve(ctx context.Context, input entity.ScheduleInput, preferredSolver string, cancel *CancelToken) (*Result, error) {
	input = applyPatternOverride(input)

	attempts := clamp(input.Options.MultiRun.Attempts, 1, 10)
	jitterPct := input.Options.MultiRun.WeightJitterPct
	if jitterPct < 0 {
		jitterPct = 0
	}
	jitterFraction := jitterPct / 100.0

	seed := int64(1)
	if input.Options.MultiRun.Seed != nil {
		seed = *input.Options.MultiRun.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var best *Result
	var bestPenalty float64
	bestAttempt := 0
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if cancel.IsCancelled() {
			break
		}
		candidate := input.Clone()
		shouldJitter := jitterFraction > 0 && (attempts == 1 || attempt > 0)
		if shouldJitter {
			applyWeightJitter(&candidate, jitterFraction, rng)
		}

		result, err := solveSingleAttempt(ctx, candidate, preferredSolver, cancel)
		if err != nil {
			lastErr = err
			log.Printf("[orchestrator] attempt %d/%d failed: %v", attempt+1, attempts, err)
			continue
		}

		penalty := computeSolutionPenalty(result.Record)
		if best == nil || penalty < bestPenalty {
			best = result
			bestPenalty = penalty
			bestAttempt = attempt + 1
		}

		if penalty <= 0 && (result.Status == solver.StatusOptimal || result.Status == solver.StatusFeasible) {
			break
		}
		if cancel.IsCancelled() {
			break
		}
	}

	if best == nil {
		if cancel.IsCancelled() {
			return nil, &solver.SolverFailure{Status: solver.StatusCancelled, Message: "solve cancelled"}
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.New("orchestrator: all attempts failed")
	}

	if attempts > 1 || jitterFraction > 0 {
		best.Record.PreflightIssues = append(best.Record.PreflightIssues, diagnostics.PreflightIssue{
			Type: "multiRunSummary",
			Context: map[string]interface{}{
				"attempts":        attempts,
				"bestAttempt":     bestAttempt,
				"bestPenalty":     bestPenalty,
				"seed":            seed,
				"weightJitterPct": jitterPct,
			},
		})
	}
	return best, nil
}

func applyPatternOverride(input entity.ScheduleInput) entity.ScheduleInput {
	override := input.Options.PatternConstraints.MaxConsecutiveDaysThreeShift
	if override <= 0 {
		return input
	}
	cloned := input.Clone()
	for i, e := range cloned.Employees {
		if e.WorkPatternType == entity.WorkPatternThreeShift {
			cloned.Employees[i].MaxConsecutiveDaysPreferred = override
		}
	}
	return cloned
}

// applyWeightJitter multiplies each balance-family weight by (1 + U(-j, j)),
// floored at 0.1, per _apply_weight_jitter.
func applyWeightJitter(input *entity.ScheduleInput, jitterFraction float64, rng *rand.Rand) {
	w := &input.Options.ConstraintWeights
	w.Staffing = jitter(w.Staffing, jitterFraction, rng)
	w.TeamBalance = jitter(w.TeamBalance, jitterFraction, rng)
	w.CareerBalance = jitter(w.CareerBalance, jitterFraction, rng)
	w.OffBalance = jitter(w.OffBalance, jitterFraction, rng)
}

func jitter(base, fraction float64, rng *rand.Rand) float64 {
	if base == 0 {
		base = 1.0
	}
	offset := (rng.Float64()*2 - 1) * fraction
	v := base * (1.0 + offset)
	if v < 0.1 {
		return 0.1
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// buildRelaxedSchedule loosens the constraint weights and CSP settings for
// relaxLevel ∈ {0,1,2}, optionally steering the adjustment by what the
// previous attempt's diagnostics showed, per build_relaxed_schedule.
func buildRelaxedSchedule(input entity.ScheduleInput, relaxLevel int, prior *diagnostics.Record) entity.ScheduleInput {
	relaxed := input.Clone()
	decay := relaxationWeightDecay[clamp(relaxLevel, 0, 2)]

	w := &relaxed.Options.ConstraintWeights
	w.Staffing = decayWeight(w.Staffing, decay)
	w.TeamBalance = decayWeight(w.TeamBalance, decay)
	w.CareerBalance = decayWeight(w.CareerBalance, decay)
	w.OffBalance = decayWeight(w.OffBalance, decay)
	w.ShiftPattern = decayWeight(w.ShiftPattern, decay)

	csp := &relaxed.Options.CSPSettings
	baseOffTolerance := csp.OffTolerance
	baseMaxSameShift := csp.MaxSameShift
	// Unset (nil) TabuSize falls back to 32 here same as postprocess.Run's
	// own default; an explicit 0 ("tabu list disabled") is honored as the
	// base the relaxation ladder scales down from, it is just no longer
	// confused with "unset" the way a bare int <= 0 check would.
	baseTabuSize := 32
	if csp.TabuSize != nil {
		baseTabuSize = *csp.TabuSize
	}
	baseTimeLimit := csp.TimeLimitMs
	if baseTimeLimit <= 0 {
		baseTimeLimit = 4000
	}

	tabuSizeSet := false
	if prior != nil {
		if len(prior.StaffingShortages) > 0 {
			csp.TimeLimitMs = int(float64(baseTimeLimit) * (1.5 + float64(relaxLevel)))
		}
		if len(prior.OffBalanceGaps) > 0 {
			csp.OffTolerance = baseOffTolerance + (2 + relaxLevel)
		}
		if len(prior.ShiftPatternBreaks) > 0 {
			csp.MaxSameShift = baseMaxSameShift + 1 + relaxLevel
		}
		if len(prior.SpecialRequestMisses) > 0 {
			csp.TabuSize = entity.IntPtr(maxInt(8, baseTabuSize/(relaxLevel+1)))
			tabuSizeSet = true
		}
	}
	if csp.OffTolerance == baseOffTolerance {
		csp.OffTolerance = baseOffTolerance + relaxLevel
	}
	if csp.MaxSameShift == baseMaxSameShift {
		csp.MaxSameShift = baseMaxSameShift + relaxLevel
	}
	if !tabuSizeSet {
		csp.TabuSize = entity.IntPtr(maxInt(8, baseTabuSize/(relaxLevel+1)))
	}
	if csp.TimeLimitMs == 0 {
		csp.TimeLimitMs = int(float64(baseTimeLimit) * (1.5 + float64(relaxLevel)))
	}
	return relaxed
}

func decayWeight(w, decay float64) float64 {
	if w == 0 {
		w = 1.0
	}
	v := w * decay
	if v < minRelaxedWeight {
		return minRelaxedWeight
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// solveSingleAttempt runs the chosen backend, falling through the
// relaxation ladder (and, as a last resort, the alternate backend) on
// failure, per _solve_single_attempt.
func solveSingleAttempt(ctx context.Context, input entity.ScheduleInput, preferredSolver string, cancel *CancelToken) (*Result, error) {
	choice := preferredSolver
	if choice == "" {
		choice = input.Options.Solver
	}
	if choice != "ortools" && choice != "cpsat" && choice != "hybrid" {
		choice = "ortools"
	}

	result, err := runAttempt(ctx, input, choice)
	if err == nil {
		return result, nil
	}
	log.Printf("[orchestrator] primary %s attempt failed: %v", choice, err)

	var priorDiag *diagnostics.Record
	for level := 0; level < 3; level++ {
		if cancel.IsCancelled() {
			break
		}
		relaxed := buildRelaxedSchedule(input, level, priorDiag)
		result, relaxedErr := runAttempt(ctx, relaxed, choice)
		if relaxedErr == nil {
			result.Record.PreflightIssues = append(result.Record.PreflightIssues, diagnostics.PreflightIssue{
				Type: "fallbackRelaxation",
				Context: map[string]interface{}{
					"level":   level + 1,
					"message": "primary run failed; applied relaxation level",
				},
			})
			return result, nil
		}
		log.Printf("[orchestrator] relaxed level %d attempt failed: %v", level+1, relaxedErr)
		if result != nil {
			priorDiag = result.Record
		}
	}

	// Final fallback: swap to the alternate backend once, unmodified input,
	// unless the caller explicitly pinned a solver.
	if preferredSolver == "" {
		alt := alternateSolver(choice)
		if alt != choice {
			if result, altErr := runAttempt(ctx, input, alt); altErr == nil {
				return result, nil
			}
		}
	}
	return nil, err
}

func alternateSolver(choice string) string {
	if choice == "cpsat" {
		return "ortools"
	}
	return "cpsat"
}

func runAttempt(ctx context.Context, input entity.ScheduleInput, choice string) (*Result, error) {
	var backend solver.Backend
	switch choice {
	case "cpsat":
		backend = cpsatbackend.New()
	case "hybrid":
		backend = cpsatbackend.New()
	default:
		backend = mipbackend.New()
	}

	deadline := time.Duration(input.Options.MaxSolveTimeMs) * time.Millisecond
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	outcome, err := solver.Solve(ctx, input, backend, deadline)
	if err != nil {
		if outcome != nil && len(outcome.Assignments) > 0 {
			rec := diagnostics.Collect(input, outcome.Assignments)
			return &Result{Assignments: outcome.Assignments, Status: outcome.Status, Record: rec}, err
		}
		return nil, err
	}

	postResult := postprocess.Run(ctx, input, outcome.Assignments)
	return &Result{
		Assignments: postResult.Assignments,
		Status:      outcome.Status,
		Record:      postResult.Record,
		SolveTimeMs: outcome.WallTime.Milliseconds(),
		Objective:   outcome.Objective,
		TimedOut:    outcome.Status == solver.StatusTimeout,
	}, nil
}

// computeSolutionPenalty prefers the postprocessor's own finalPenalty and
// otherwise falls back to the synthetic weighted sum, per
// _compute_solution_penalty.
func computeSolutionPenalty(rec *diagnostics.Record) float64 {
	if rec == nil {
		return 1e18
	}
	if rec.Postprocess != nil {
		return rec.Postprocess.FinalPenalty
	}
	penalty := 0.0
	for _, s := range rec.StaffingShortages {
		penalty += synthStaffing * float64(s.Shortage)
	}
	for _, g := range rec.TeamCoverageGaps {
		penalty += synthTeamCoverage * float64(g.Shortage)
	}
	for _, g := range rec.CareerGroupCoverageGaps {
		penalty += synthCareerGroup * float64(g.Shortage)
	}
	for _, g := range rec.TeamWorkloadGaps {
		penalty += synthTeamWorkload * float64(g.Difference)
	}
	for _, g := range rec.OffBalanceGaps {
		penalty += synthOffBalance * float64(g.Difference)
	}
	for _, b := range rec.ShiftPatternBreaks {
		penalty += synthShiftPattern * float64(b.Excess)
	}
	penalty += synthSpecialMiss * float64(len(rec.SpecialRequestMisses))
	return penalty
}

// BuildGuidance renders the hints attached to a failed job's diagnostics as
// a validation.Result, per _build_failure_guidance: one warning per recorded
// shortage, coverage gap or missed request, or a single GENERAL_RETRY_HINT
// when there is none (including a nil rec).
func BuildGuidance(rec *diagnostics.Record) *validation.Result {
	guidance := validation.NewResult()
	if rec == nil {
		rec = &diagnostics.Record{}
	}
	for _, s := range rec.StaffingShortages {
		guidance.AddWarningWithContext(validation.CodeInsufficientPotentialStaff,
			"staffing shortage: required "+strconv.Itoa(s.Required)+" assigned "+strconv.Itoa(s.Covered),
			map[string]interface{}{"date": s.Date, "shiftType": s.ShiftType})
	}
	for _, g := range rec.TeamCoverageGaps {
		guidance.AddWarningWithContext(validation.CodeTeamCoverageImpossible,
			"team coverage gap for "+g.TeamID, map[string]interface{}{"date": g.Date, "shiftType": g.ShiftType})
	}
	for _, g := range rec.CareerGroupCoverageGaps {
		guidance.AddWarningWithContext(validation.CodeCareerGroupCoverageImpossible,
			"career group coverage gap for "+g.CareerGroupAlias, map[string]interface{}{"date": g.Date, "shiftType": g.ShiftType})
	}
	for _, m := range rec.SpecialRequestMisses {
		guidance.AddWarningWithContext(validation.CodeSpecialRequestPatternConflict,
			"special request not honored for "+m.EmployeeID, map[string]interface{}{"date": m.Date, "shiftType": m.ShiftType})
	}
	if len(guidance.Messages) == 0 {
		guidance.AddInfo("GENERAL_RETRY_HINT", "reduce constraint weights or loosen offTolerance/maxSameShift and retry")
	}
	return guidance
}

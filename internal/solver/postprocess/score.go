package postprocess

import (
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/solver/diagnostics"
)

// Weighting constants for the postprocessor's own penalty function, distinct
// from (and smaller-scale than) the model builder's objective penalties —
// grounded on postprocessor.py's _score_from_diagnostics.
const (
	scoreStaffingShortage   = 100.0
	scoreStaffingOverage    = 100.0
	scoreTeamCoverageGap    = 50.0
	scoreCareerGroupGap     = 40.0
	scoreTeamWorkloadGap    = 35.0
	scoreSpecialRequest     = 30.0 // unweighted
	scoreOffBalanceGap      = 20.0
	scoreShiftPatternBreak  = 10.0
	scoreAvoidPatternBreach = 10.0 // unweighted
)

// score computes the postprocessor's scalar penalty for rec, weighted by the
// run's constraint weights (each floored at 0.1 via entity.EffectiveWeight,
// mirroring the reference's _weight helper).
func score(rec *diagnostics.Record, weights entity.ConstraintWeights) float64 {
	total := 0.0
	total += float64(len(rec.StaffingShortages)) * scoreStaffingShortage * entity.EffectiveWeight(weights.Staffing)
	total += float64(len(rec.StaffingOverages)) * scoreStaffingOverage * entity.EffectiveWeight(weights.Staffing)
	total += float64(len(rec.TeamCoverageGaps)) * scoreTeamCoverageGap * entity.EffectiveWeight(weights.TeamBalance)
	total += float64(len(rec.CareerGroupCoverageGaps)) * scoreCareerGroupGap * entity.EffectiveWeight(weights.CareerBalance)
	total += float64(len(rec.TeamWorkloadGaps)) * scoreTeamWorkloadGap * entity.EffectiveWeight(weights.TeamBalance)
	total += float64(len(rec.SpecialRequestMisses)) * scoreSpecialRequest
	total += float64(len(rec.OffBalanceGaps)) * scoreOffBalanceGap * entity.EffectiveWeight(weights.OffBalance)
	total += float64(len(rec.ShiftPatternBreaks)) * scoreShiftPatternBreak * entity.EffectiveWeight(weights.ShiftPattern)
	total += float64(len(rec.AvoidPatternViolations)) * scoreAvoidPatternBreach
	return total
}

package orchestrator

import (
	"math/rand"
	"testing"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/solver/diagnostics"
	"github.com/stretchr/testify/assert"
)

func TestApplyWeightJitterFloorsAtPointOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	input := entity.ScheduleInput{Options: entity.Options{ConstraintWeights: entity.ConstraintWeights{Staffing: 0.11}}}
	applyWeightJitter(&input, 5.0, rng) // absurdly large jitter fraction forces the floor
	assert.GreaterOrEqual(t, input.Options.ConstraintWeights.Staffing, 0.1)
}

func TestBuildRelaxedScheduleAppliesDecayLadder(t *testing.T) {
	input := entity.ScheduleInput{Options: entity.Options{ConstraintWeights: entity.ConstraintWeights{Staffing: 1.0}}}
	relaxed := buildRelaxedSchedule(input, 0, nil)
	assert.InDelta(t, 0.8, relaxed.Options.ConstraintWeights.Staffing, 1e-9)

	relaxed2 := buildRelaxedSchedule(input, 2, nil)
	assert.InDelta(t, 0.4, relaxed2.Options.ConstraintWeights.Staffing, 1e-9)
}

func TestBuildRelaxedScheduleGrowsTimeLimitOnStaffingShortage(t *testing.T) {
	input := entity.ScheduleInput{Options: entity.Options{CSPSettings: entity.CSPSettings{TimeLimitMs: 4000}}}
	prior := &diagnostics.Record{StaffingShortages: []diagnostics.StaffingShortage{{Date: "2024-01-01"}}}
	relaxed := buildRelaxedSchedule(input, 0, prior)
	assert.Equal(t, int(4000*1.5), relaxed.Options.CSPSettings.TimeLimitMs)
}

func TestComputeSolutionPenaltyPrefersPostprocessFinalPenalty(t *testing.T) {
	rec := &diagnostics.Record{Postprocess: &diagnostics.PostprocessStats{FinalPenalty: 42}}
	assert.Equal(t, 42.0, computeSolutionPenalty(rec))
}

func TestComputeSolutionPenaltyFallsBackToSyntheticSum(t *testing.T) {
	rec := &diagnostics.Record{
		StaffingShortages: []diagnostics.StaffingShortage{{Shortage: 1}},
		SpecialRequestMisses: []diagnostics.SpecialRequestMissed{{}},
	}
	assert.Equal(t, synthStaffing+synthSpecialMiss, computeSolutionPenalty(rec))
}

func TestBuildGuidanceFallsBackToGeneralHintWhenNoViolations(t *testing.T) {
	result := BuildGuidance(&diagnostics.Record{})
	assert.Len(t, result.Messages, 1)
	assert.Equal(t, "GENERAL_RETRY_HINT", result.Messages[0].Code)
}

func TestCancelTokenIsCancelledOnNilReceiverIsFalse(t *testing.T) {
	var token *CancelToken
	assert.False(t, token.IsCancelled())
}

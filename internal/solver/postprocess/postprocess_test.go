package postprocess

import (
	"context"
	"math/rand"
	"testing"

	"github.com/schedcu/v2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) entity.Date {
	t.Helper()
	d, err := entity.ParseDate(s)
	require.NoError(t, err)
	return d
}

func baseInput(t *testing.T) entity.ScheduleInput {
	return entity.ScheduleInput{
		StartDate: mustDate(t, "2024-10-01"),
		EndDate:   mustDate(t, "2024-10-03"),
		Employees: []entity.Employee{
			{ID: "e1", TeamID: "t1", WorkPatternType: entity.WorkPatternThreeShift},
			{ID: "e2", TeamID: "t1", WorkPatternType: entity.WorkPatternThreeShift},
			{ID: "e3", TeamID: "t2", WorkPatternType: entity.WorkPatternThreeShift},
		},
		Shifts: []entity.Shift{
			{ID: "shift-d", Code: entity.CodeDay},
			{ID: "shift-e", Code: entity.CodeEve},
			{ID: "shift-n", Code: entity.CodeNight},
		},
		RequiredStaffPerShift: map[entity.ShiftCode]int{entity.CodeDay: 1, entity.CodeEve: 1, entity.CodeNight: 1},
		Options: entity.Options{
			ConstraintWeights: entity.ConstraintWeights{Staffing: 1, TeamBalance: 1, CareerBalance: 1, OffBalance: 1, ShiftPattern: 1},
			CSPSettings:       entity.CSPSettings{OffTolerance: 2, MaxSameShift: 2, ShiftBalanceTolerance: 4, MaxIterations: 50, TimeLimitMs: 1000, TabuSize: entity.IntPtr(8)},
		},
	}
}

func TestRunRepairsAStaffingShortage(t *testing.T) {
	input := baseInput(t)
	assignments := []entity.Assignment{
		{EmployeeID: "e1", Date: mustDate(t, "2024-10-01"), ShiftID: "shift-d", ShiftType: string(entity.CodeDay)},
		{EmployeeID: "e1", Date: mustDate(t, "2024-10-02"), ShiftID: "shift-n", ShiftType: string(entity.CodeNight)},
		{EmployeeID: "e1", Date: mustDate(t, "2024-10-03"), ShiftID: "shift-off", ShiftType: string(entity.CodeOff)},
		{EmployeeID: "e2", Date: mustDate(t, "2024-10-01"), ShiftID: "shift-off", ShiftType: string(entity.CodeOff)},
		{EmployeeID: "e2", Date: mustDate(t, "2024-10-02"), ShiftID: "shift-d", ShiftType: string(entity.CodeDay)},
		// No one covers nights on 10-02 except e1; leave 10-03 short on D to exercise repair.
		{EmployeeID: "e2", Date: mustDate(t, "2024-10-03"), ShiftID: "shift-n", ShiftType: string(entity.CodeNight)},
		{EmployeeID: "e3", Date: mustDate(t, "2024-10-01"), ShiftID: "shift-e", ShiftType: string(entity.CodeEve)},
		{EmployeeID: "e3", Date: mustDate(t, "2024-10-02"), ShiftID: "shift-e", ShiftType: string(entity.CodeEve)},
		{EmployeeID: "e3", Date: mustDate(t, "2024-10-03"), ShiftID: "shift-d", ShiftType: string(entity.CodeDay)},
	}

	result := Run(context.Background(), input, assignments)
	require.NotNil(t, result)
	assert.Len(t, result.Assignments, len(assignments))
	assert.GreaterOrEqual(t, result.Stats.Iterations, 0)
	assert.LessOrEqual(t, result.Stats.FinalPenalty, result.Stats.InitialPenalty)
}

func TestRunStopsWhenNoCandidatesExist(t *testing.T) {
	input := baseInput(t)
	input.Employees = []entity.Employee{{ID: "e1", TeamID: "t1", WorkPatternType: entity.WorkPatternThreeShift}}
	input.RequiredStaffPerShift = map[entity.ShiftCode]int{}
	assignments := []entity.Assignment{
		{EmployeeID: "e1", Date: mustDate(t, "2024-10-01"), ShiftID: "shift-off", ShiftType: string(entity.CodeOff), IsLocked: true},
		{EmployeeID: "e1", Date: mustDate(t, "2024-10-02"), ShiftID: "shift-off", ShiftType: string(entity.CodeOff), IsLocked: true},
		{EmployeeID: "e1", Date: mustDate(t, "2024-10-03"), ShiftID: "shift-off", ShiftType: string(entity.CodeOff), IsLocked: true},
	}

	result := Run(context.Background(), input, assignments)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.Stats.InitialPenalty)
	assert.Equal(t, 0, result.Stats.Iterations)
}

func TestTabuListEvictsOldestBeyondCapacity(t *testing.T) {
	tabu := newTabuList(2)
	tabu.push("a")
	tabu.push("b")
	tabu.push("c")
	assert.False(t, tabu.contains("a"))
	assert.True(t, tabu.contains("b"))
	assert.True(t, tabu.contains("c"))
}

func TestAcceptWorseMoveAlwaysAcceptsImprovingDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.True(t, acceptWorseMove(10, 5, 1.0, rng))
}

func TestResolveTabuSizeDistinguishesUnsetFromExplicitZero(t *testing.T) {
	assert.Equal(t, defaultTabuSize, resolveTabuSize(entity.CSPSettings{}))
	assert.Equal(t, 0, resolveTabuSize(entity.CSPSettings{TabuSize: entity.IntPtr(0)}))
	assert.Equal(t, 8, resolveTabuSize(entity.CSPSettings{TabuSize: entity.IntPtr(8)}))
	assert.Equal(t, 0, resolveTabuSize(entity.CSPSettings{TabuSize: entity.IntPtr(-3)}))
}

func TestTabuListWithZeroCapacityNeverBlocks(t *testing.T) {
	tabu := newTabuList(0)
	tabu.push("a")
	assert.False(t, tabu.contains("a"))
	tabu.push("b")
	assert.False(t, tabu.contains("a"))
	assert.False(t, tabu.contains("b"))
}

package solver

import (
	"context"
	"testing"
	"time"

	"github.com/schedcu/v2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal in-memory stand-in for a real constraint-solver
// backend, sufficient to exercise Model.Build's wiring without depending on
// CP-SAT or HiGHS being present.
type fakeBackend struct {
	boolVars   []string
	fixed      map[int]bool
	intVars    int
	objTerms   int
	solveCalls int
	values     map[int]bool // boolVar index -> forced true/false for tests

	lessOrEqualCalls        []linearCall
	greaterEqualSlackCalls  []linearCall
	lessEqualSlackCalls     []linearCall
}

// linearCall records one AddLinear*/AddLinear*WithSlack invocation so tests
// can assert on the constant/slack bound a particular constraint built,
// without depending on a real solver's internal representation.
type linearCall struct {
	numVars         int
	constant        int64
	slackUpperBound int64
}

type fakeBool struct{ idx int }
type fakeInt struct{ idx int }

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fixed: map[int]bool{}, values: map[int]bool{}}
}

func (f *fakeBackend) NewBoolVar(name string) BoolVar {
	idx := len(f.boolVars)
	f.boolVars = append(f.boolVars, name)
	return fakeBool{idx}
}

func (f *fakeBackend) Fix(v BoolVar, value bool) {
	f.fixed[v.(fakeBool).idx] = value
}

func (f *fakeBackend) AddLinearEqual(vars []BoolVar, coeffs []int64, constant int64) {}

func (f *fakeBackend) AddLinearLessOrEqual(vars []BoolVar, coeffs []int64, constant int64) {
	f.lessOrEqualCalls = append(f.lessOrEqualCalls, linearCall{numVars: len(vars), constant: constant})
}

func (f *fakeBackend) AddLinearGreaterOrEqualWithSlack(vars []BoolVar, coeffs []int64, constant int64, slackUpperBound int64) IntVar {
	f.intVars++
	f.greaterEqualSlackCalls = append(f.greaterEqualSlackCalls, linearCall{numVars: len(vars), constant: constant, slackUpperBound: slackUpperBound})
	return fakeInt{f.intVars}
}

func (f *fakeBackend) AddLinearLessOrEqualWithSlack(vars []BoolVar, coeffs []int64, constant int64, slackUpperBound int64) IntVar {
	f.intVars++
	f.lessEqualSlackCalls = append(f.lessEqualSlackCalls, linearCall{numVars: len(vars), constant: constant, slackUpperBound: slackUpperBound})
	return fakeInt{f.intVars}
}

func (f *fakeBackend) AddObjectiveTerm(v interface{}, coeff int64) {
	f.objTerms++
}

func (f *fakeBackend) Solve(ctx context.Context, deadline time.Duration) (Status, error) {
	f.solveCalls++
	return StatusOptimal, nil
}

func (f *fakeBackend) BoolValue(v BoolVar) bool {
	idx := v.(fakeBool).idx
	if fixed, ok := f.fixed[idx]; ok {
		return fixed
	}
	return f.values[idx]
}

func (f *fakeBackend) IntValue(v IntVar) int64 { return 0 }
func (f *fakeBackend) ObjectiveValue() float64 { return 0 }

func sampleInput() entity.ScheduleInput {
	start, _ := entity.ParseDate("2024-10-01")
	end, _ := entity.ParseDate("2024-10-07")
	return entity.ScheduleInput{
		StartDate: start,
		EndDate:   end,
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
			CSPSettings:       entity.CSPSettings{OffTolerance: 2, MaxSameShift: 2, ShiftBalanceTolerance: 4},
		},
	}
}

func TestModelBuildCreatesOneVariablePerEmployeeDayCode(t *testing.T) {
	input := sampleInput()
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	days := len(entity.DateRange(input.StartDate, input.EndDate))
	expectedVars := len(input.Employees) * days * len(model.shiftCodes)
	assert.Equal(t, expectedVars, len(backend.boolVars))
	assert.True(t, backend.objTerms > 0, "objective should have at least one term")
}

func TestModelFixesDisallowedShiftsToFalse(t *testing.T) {
	input := sampleInput()
	input.Employees = []entity.Employee{
		{ID: "e1", WorkPatternType: entity.WorkPatternWeekdayOnly},
	}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	day := input.StartDate // a Tuesday in this fixture
	key := varKey{"e1", entity.FormatDate(day), string(entity.CodeNight)}
	v, ok := model.vars[key]
	require.True(t, ok)
	fixedValue, wasFixed := backend.fixed[v.(fakeBool).idx]
	assert.True(t, wasFixed)
	assert.False(t, fixedValue)
}

func TestExtractAssignmentsReadsTrueVariablesOnly(t *testing.T) {
	input := sampleInput()
	input.Employees = input.Employees[:1]
	input.RequiredStaffPerShift = map[entity.ShiftCode]int{}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	dateKey := entity.FormatDate(input.StartDate)
	offVar := model.vars[varKey{"e1", dateKey, string(entity.CodeOff)}]
	backend.values[offVar.(fakeBool).idx] = true

	assignments := model.ExtractAssignments()
	found := false
	for _, a := range assignments {
		if a.EmployeeID == "e1" && a.Date.Equal(input.StartDate) {
			assert.Equal(t, string(entity.CodeOff), a.ShiftType)
			found = true
		}
	}
	assert.True(t, found)
}

func TestAddStaffingConstraintsEnforcesShiftMaxStaffCap(t *testing.T) {
	input := sampleInput()
	input.RequiredStaffPerShift = map[entity.ShiftCode]int{entity.CodeDay: 1}
	maxStaff := 2
	input.Shifts = []entity.Shift{{ID: "shift-d", Code: entity.CodeDay, MaxStaff: &maxStaff}}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	found := false
	for _, c := range backend.lessOrEqualCalls {
		if c.constant == int64(maxStaff) && c.numVars == len(input.Employees) {
			found = true
		}
	}
	assert.True(t, found, "expected a hard max-staffing cap constraint honoring Shift.MaxStaff")
}

func TestAddStaffingConstraintsDefaultsMaxCapToTheMinimum(t *testing.T) {
	input := sampleInput()
	input.RequiredStaffPerShift = map[entity.ShiftCode]int{entity.CodeDay: 1}
	input.Shifts = []entity.Shift{{ID: "shift-d", Code: entity.CodeDay}}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	found := false
	for _, c := range backend.lessOrEqualCalls {
		if c.constant == 1 && c.numVars == len(input.Employees) {
			found = true
		}
	}
	assert.True(t, found, "expected the max-staffing cap to default to the minimum when no Shift.MaxStaff override widens it")
}

func TestAddConsecutiveDaysConstraintsIsAHardFloorOnOffDays(t *testing.T) {
	input := sampleInput()
	input.Employees = []entity.Employee{
		{ID: "e1", WorkPatternType: entity.WorkPatternThreeShift, MaxConsecutiveDaysPreferred: 2},
	}
	input.RequiredStaffPerShift = map[entity.ShiftCode]int{}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	found := false
	for _, c := range backend.greaterEqualSlackCalls {
		if c.slackUpperBound == 0 && c.constant == 1 {
			found = true
		}
	}
	assert.True(t, found, "expected a hard (zero slack bound) floor of at least one O/V per 3-day window")
}

func TestAddConsecutiveDaysConstraintsSkipsEmployeesWithNoCapConfigured(t *testing.T) {
	input := sampleInput()
	input.Employees = []entity.Employee{
		{ID: "e1", WorkPatternType: entity.WorkPatternThreeShift, MaxConsecutiveDaysPreferred: 0},
	}
	input.RequiredStaffPerShift = map[entity.ShiftCode]int{}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	for _, c := range backend.greaterEqualSlackCalls {
		assert.False(t, c.slackUpperBound == 0 && c.constant == 1,
			"an unconfigured (zero) MaxConsecutiveDaysPreferred must not add a consecutive-days cap")
	}
}

func TestAddConsecutiveNightsConstraintsCapsTheWindowAtK(t *testing.T) {
	input := sampleInput()
	input.Employees = []entity.Employee{
		{ID: "e1", WorkPatternType: entity.WorkPatternThreeShift, MaxConsecutiveNightsPreferred: 2},
	}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	found := false
	for _, c := range backend.lessOrEqualCalls {
		if c.constant == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected a hard cap limiting any window's night count to MaxConsecutiveNightsPreferred")
}

func TestAddNightIntensivePatternConstraintsAddsSoftSlacksForNightIntensiveEmployees(t *testing.T) {
	input := sampleInput()
	input.Employees = []entity.Employee{
		{ID: "e1", WorkPatternType: entity.WorkPatternNightIntensive},
	}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	// The 4-day ΣN<=3 window is the only soft less-or-equal-with-slack call
	// in this fixture whose constant is 3 (shift-repeat's default maxSame is
	// 2, and nothing else in this minimal fixture reaches for a bound of 3).
	foundNightCap := false
	for _, c := range backend.lessEqualSlackCalls {
		if c.constant == 3 {
			foundNightCap = true
		}
	}
	assert.True(t, foundNightCap, "expected a soft 4-day night-count cap for a night-intensive employee")

	foundOffFloor := false
	for _, c := range backend.greaterEqualSlackCalls {
		if c.slackUpperBound > 0 && c.constant == 2 {
			foundOffFloor = true
		}
	}
	assert.True(t, foundOffFloor, "expected a soft 5-day off-day floor for a night-intensive employee")
}

func TestAddNightIntensivePatternConstraintsSkipsOtherWorkPatterns(t *testing.T) {
	input := sampleInput()
	input.Employees = []entity.Employee{
		{ID: "e1", WorkPatternType: entity.WorkPatternThreeShift},
	}
	backend := newFakeBackend()
	model := NewModel(input, backend)
	model.Build()

	for _, c := range backend.lessEqualSlackCalls {
		assert.NotEqual(t, int64(3), c.constant, "a three-shift employee should never get the night-intensive 4-day night cap")
	}
}

func TestSolveClassifiesOptimalOutcome(t *testing.T) {
	input := sampleInput()
	backend := newFakeBackend()

	outcome, err := Solve(context.Background(), input, backend, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, outcome.Status)
	assert.Equal(t, 1, backend.solveCalls)
}

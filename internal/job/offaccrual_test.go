package job

import (
	"testing"

	"github.com/schedcu/v2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseDate(t *testing.T, s string) entity.Date {
	t.Helper()
	d, err := entity.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestComputeOffAccrualsCountsOffAssignmentsAgainstGuaranteedDays(t *testing.T) {
	input := entity.ScheduleInput{
		StartDate: mustParseDate(t, "2024-10-05"), // Saturday
		EndDate:   mustParseDate(t, "2024-10-07"), // Monday -> 1 weekend day (Sat) + Sun also weekend
		Employees: []entity.Employee{
			{ID: "e1", WorkPatternType: entity.WorkPatternThreeShift},
		},
	}
	assignments := []entity.Assignment{
		{EmployeeID: "e1", Date: mustParseDate(t, "2024-10-05"), ShiftType: string(entity.CodeOff)},
		{EmployeeID: "e1", Date: mustParseDate(t, "2024-10-06"), ShiftType: string(entity.CodeDay)},
		{EmployeeID: "e1", Date: mustParseDate(t, "2024-10-07"), ShiftType: string(entity.CodeDay)},
	}

	summaries := computeOffAccruals(input, assignments)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].ActualOffDays)
	assert.Equal(t, 2, summaries[0].GuaranteedOffDays) // two weekend days (Sat+Sun) in range
	assert.Equal(t, 1, summaries[0].ExtraOffDays)
}

func TestComputeOffAccrualsReturnsNilForEmptyAssignments(t *testing.T) {
	input := entity.ScheduleInput{
		StartDate: mustParseDate(t, "2024-10-05"),
		EndDate:   mustParseDate(t, "2024-10-07"),
	}
	assert.Nil(t, computeOffAccruals(input, nil))
}

func TestComputeOffAccrualsWeekdayOnlyPatternIgnoresWeekends(t *testing.T) {
	input := entity.ScheduleInput{
		StartDate: mustParseDate(t, "2024-10-05"),
		EndDate:   mustParseDate(t, "2024-10-07"),
		Employees: []entity.Employee{
			{ID: "e1", WorkPatternType: entity.WorkPatternWeekdayOnly},
		},
	}
	assignments := []entity.Assignment{
		{EmployeeID: "e1", Date: mustParseDate(t, "2024-10-05"), ShiftType: string(entity.CodeOff)},
	}
	summaries := computeOffAccruals(input, assignments)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].GuaranteedOffDays)
}

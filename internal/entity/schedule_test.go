package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	start, _ := ParseDate("2024-01-01")
	end, _ := ParseDate("2024-01-03")

	days := DateRange(start, end)
	require.Len(t, days, 3)
	assert.Equal(t, "2024-01-01", FormatDate(days[0]))
	assert.Equal(t, "2024-01-03", FormatDate(days[2]))
}

func TestDateRangeEmptyOnReversedWindow(t *testing.T) {
	start, _ := ParseDate("2024-01-03")
	end, _ := ParseDate("2024-01-01")
	assert.Nil(t, DateRange(start, end))
}

func TestValidateDateRange(t *testing.T) {
	start, _ := ParseDate("2024-01-01")
	end, _ := ParseDate("2024-01-01")
	assert.NoError(t, ValidateDateRange(start, end))

	reversed, _ := ParseDate("2023-12-31")
	assert.ErrorIs(t, ValidateDateRange(start, reversed), ErrInvalidDateRange)
}

func TestScheduleInputCloneIsIndependent(t *testing.T) {
	seed := int64(42)
	original := ScheduleInput{
		Employees: []Employee{{ID: "e1", PreferredShiftTypes: map[ShiftCode]float64{CodeDay: 0.5}}},
		RequiredStaffPerShift: map[ShiftCode]int{CodeDay: 2},
		TeamPattern:           TeamPattern{AvoidPatterns: [][]ShiftCode{{CodeNight, CodeDay}}},
		Options:               Options{MultiRun: MultiRunSettings{Seed: &seed}},
	}

	clone := original.Clone()
	clone.Employees[0].PreferredShiftTypes[CodeDay] = 0.9
	clone.RequiredStaffPerShift[CodeDay] = 99
	clone.TeamPattern.AvoidPatterns[0][0] = CodeEve
	*clone.Options.MultiRun.Seed = 7

	assert.Equal(t, 0.5, original.Employees[0].PreferredShiftTypes[CodeDay])
	assert.Equal(t, 2, original.RequiredStaffPerShift[CodeDay])
	assert.Equal(t, CodeNight, original.TeamPattern.AvoidPatterns[0][0])
	assert.Equal(t, int64(42), *original.Options.MultiRun.Seed)
}

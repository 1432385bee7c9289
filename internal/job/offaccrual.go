package job

import (
	"time"

	"github.com/schedcu/v2/internal/entity"
)

// computeOffAccruals reports each employee's guaranteed-vs-actual off-day
// count over the schedule window, grounded on
// original_source/scheduler-worker/src/app.py:compute_off_accruals.
func computeOffAccruals(input entity.ScheduleInput, assignments []entity.Assignment) []entity.OffAccrualSummary {
	if len(assignments) == 0 {
		return nil
	}

	days := entity.DateRange(input.StartDate, input.EndDate)
	if len(days) == 0 {
		return nil
	}

	weekendCount := 0
	for _, d := range days {
		wd := d.Weekday()
		if wd == time.Sunday || wd == time.Saturday {
			weekendCount++
		}
	}

	holidayDates := make(map[string]bool, len(input.Holidays))
	for _, h := range input.Holidays {
		holidayDates[entity.FormatDate(h.Date)] = true
	}
	holidayCount := 0
	for _, d := range days {
		if holidayDates[entity.FormatDate(d)] {
			holidayCount++
		}
	}

	nightBonus := input.NightIntensivePaidLeaveDays
	if nightBonus < 0 {
		nightBonus = 0
	}

	actualOffCounts := make(map[string]int)
	for _, a := range assignments {
		code := entity.Normalize(a.ShiftType)
		if code == entity.CodeOff {
			actualOffCounts[a.EmployeeID]++
		}
	}

	summaries := make([]entity.OffAccrualSummary, 0, len(input.Employees))
	for _, emp := range input.Employees {
		carryOver := input.PreviousOffAccruals[emp.ID]
		if carryOver < 0 {
			carryOver = 0
		}

		var guaranteed int
		switch emp.WorkPatternType {
		case entity.WorkPatternThreeShift:
			guaranteed = holidayCount + weekendCount + carryOver
		case entity.WorkPatternNightIntensive:
			guaranteed = holidayCount + weekendCount + nightBonus + carryOver
		case entity.WorkPatternWeekdayOnly:
			guaranteed = holidayCount + carryOver
		default:
			guaranteed = holidayCount + weekendCount + carryOver
		}
		if guaranteed < 0 {
			guaranteed = 0
		}

		actual := actualOffCounts[emp.ID]
		summaries = append(summaries, entity.OffAccrualSummary{
			EmployeeID:        emp.ID,
			GuaranteedOffDays: guaranteed,
			ActualOffDays:     actual,
			ExtraOffDays:      guaranteed - actual,
		})
	}
	return summaries
}

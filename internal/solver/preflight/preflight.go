// Package preflight runs structural feasibility checks over a ScheduleInput
// without building a model, reporting obviously-impossible requests as
// actionable diagnostics (SPEC_FULL.md §4.1 "Preflight Analyzer"). The solve
// pipeline does not call Run; only its direct callers see the result.
package preflight

import (
	"fmt"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/validation"
)

// Run executes all eight preflight checks and returns one validation.Result.
// It never mutates input.
func Run(input entity.ScheduleInput) *validation.Result {
	result := validation.NewResult()

	checkDateRange(input, result)
	checkOffRequirement(input, result)
	checkInsufficientPotentialStaff(input, result)
	checkTeamCoverage(input, result)
	checkCareerGroupCoverage(input, result)
	checkSpecialRequestUnknownEmployee(input, result)
	checkSpecialRequestInvalidDate(input, result)
	checkSpecialRequestPatternConflict(input, result)

	if result.HasErrors() {
		result.AddInfo("PREFLIGHT_COMPLETE", fmt.Sprintf(
			"preflight analysis completed with %d error(s), %d warning(s)",
			result.ErrorCount(), result.WarningCount()))
	} else {
		result.AddInfo("PREFLIGHT_COMPLETE", "preflight analysis completed with no errors")
	}
	return result
}

func checkDateRange(input entity.ScheduleInput, result *validation.Result) {
	if err := entity.ValidateDateRange(input.StartDate, input.EndDate); err != nil {
		result.AddErrorWithContext(validation.CodeInvalidDateRange, err.Error(), map[string]interface{}{
			"startDate": entity.FormatDate(input.StartDate),
			"endDate":   entity.FormatDate(input.EndDate),
		})
	}
}

// checkOffRequirement flags employees whose guaranteed off-day requirement
// cannot fit inside the schedule window at all (I2: at least one off day
// per 7-day block, scaled to the window length).
func checkOffRequirement(input entity.ScheduleInput, result *validation.Result) {
	days := len(entity.DateRange(input.StartDate, input.EndDate))
	if days == 0 {
		return
	}
	minOffDays := (days + 6) / 7
	for _, emp := range input.Employees {
		if minOffDays > days {
			result.AddErrorWithContext(validation.CodeOffRequirementImpossible,
				fmt.Sprintf("%s needs at least %d off day(s) but the window is only %d day(s)", emp.ID, minOffDays, days),
				map[string]interface{}{"employeeId": emp.ID, "required": minOffDays, "windowDays": days})
		}
	}
}

// checkInsufficientPotentialStaff flags (date, code) pairs where fewer
// employees are even eligible (IsShiftAllowed) than the minimum required,
// regardless of how assignment is done.
func checkInsufficientPotentialStaff(input entity.ScheduleInput, result *validation.Result) {
	required := entity.DefaultRequiredStaffPerShift()
	for k, v := range input.RequiredStaffPerShift {
		required[k] = v
	}

	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		for code, min := range required {
			if min <= 0 {
				continue
			}
			eligible := 0
			for _, emp := range input.Employees {
				if entity.IsShiftAllowed(emp, day, string(code), input.Holidays) {
					eligible++
				}
			}
			if eligible < min {
				result.AddErrorWithContext(validation.CodeInsufficientPotentialStaff,
					fmt.Sprintf("only %d employee(s) can work %s on %s, need %d", eligible, code, entity.FormatDate(day), min),
					map[string]interface{}{
						"date": entity.FormatDate(day), "shiftType": string(code),
						"eligible": eligible, "required": min,
					})
			}
		}
	}
}

func checkTeamCoverage(input entity.ScheduleInput, result *validation.Result) {
	required := entity.DefaultRequiredStaffPerShift()
	for k, v := range input.RequiredStaffPerShift {
		required[k] = v
	}

	teams := map[string][]entity.Employee{}
	for _, emp := range input.Employees {
		if emp.TeamID != "" {
			teams[emp.TeamID] = append(teams[emp.TeamID], emp)
		}
	}
	if len(teams) == 0 {
		return
	}

	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		for code, min := range required {
			if min <= 0 {
				continue
			}
			for teamID, members := range teams {
				eligible := 0
				for _, emp := range members {
					if entity.IsShiftAllowed(emp, day, string(code), input.Holidays) {
						eligible++
					}
				}
				if eligible == 0 {
					result.AddWarningWithContext(validation.CodeTeamCoverageImpossible,
						fmt.Sprintf("team %s has no eligible member for %s on %s", teamID, code, entity.FormatDate(day)),
						map[string]interface{}{"teamId": teamID, "date": entity.FormatDate(day), "shiftType": string(code)})
				}
			}
		}
	}
}

func checkCareerGroupCoverage(input entity.ScheduleInput, result *validation.Result) {
	required := entity.DefaultRequiredStaffPerShift()
	for k, v := range input.RequiredStaffPerShift {
		required[k] = v
	}
	if len(input.CareerGroups) == 0 {
		return
	}

	byID := map[string]entity.Employee{}
	for _, emp := range input.Employees {
		byID[emp.ID] = emp
	}

	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		for code, min := range required {
			if min <= 0 {
				continue
			}
			for _, group := range input.CareerGroups {
				eligible := 0
				for _, empID := range group.Members {
					emp, ok := byID[empID]
					if !ok {
						continue
					}
					if entity.IsShiftAllowed(emp, day, string(code), input.Holidays) {
						eligible++
					}
				}
				if eligible == 0 {
					result.AddWarningWithContext(validation.CodeCareerGroupCoverageImpossible,
						fmt.Sprintf("career group %s has no eligible member for %s on %s", group.Alias, code, entity.FormatDate(day)),
						map[string]interface{}{"careerGroupAlias": group.Alias, "date": entity.FormatDate(day), "shiftType": string(code)})
				}
			}
		}
	}
}

func checkSpecialRequestUnknownEmployee(input entity.ScheduleInput, result *validation.Result) {
	known := map[string]bool{}
	for _, emp := range input.Employees {
		known[emp.ID] = true
	}
	for _, req := range input.SpecialRequests {
		if !known[req.EmployeeID] {
			result.AddErrorWithContext(validation.CodeSpecialRequestUnknownEmployee,
				fmt.Sprintf("special request references unknown employee %s", req.EmployeeID),
				map[string]interface{}{"employeeId": req.EmployeeID})
		}
	}
}

func checkSpecialRequestInvalidDate(input entity.ScheduleInput, result *validation.Result) {
	for _, req := range input.SpecialRequests {
		if req.Date.Before(input.StartDate) || req.Date.After(input.EndDate) {
			result.AddErrorWithContext(validation.CodeSpecialRequestInvalidDate,
				fmt.Sprintf("special request date %s for %s falls outside the schedule window", entity.FormatDate(req.Date), req.EmployeeID),
				map[string]interface{}{"employeeId": req.EmployeeID, "date": entity.FormatDate(req.Date)})
		}
	}
}

// checkSpecialRequestPatternConflict flags a special request whose code the
// employee's work-pattern restriction could never honor (e.g. requesting D
// for a night-intensive employee on a weekday), since no amount of solving
// can satisfy it.
func checkSpecialRequestPatternConflict(input entity.ScheduleInput, result *validation.Result) {
	byID := map[string]entity.Employee{}
	for _, emp := range input.Employees {
		byID[emp.ID] = emp
	}
	for _, req := range input.SpecialRequests {
		emp, ok := byID[req.EmployeeID]
		if !ok {
			continue // already reported by checkSpecialRequestUnknownEmployee
		}
		if !entity.IsShiftAllowed(emp, req.Date, string(req.Code), input.Holidays) {
			result.AddErrorWithContext(validation.CodeSpecialRequestPatternConflict,
				fmt.Sprintf("%s's work pattern never allows %s on %s", emp.ID, req.Code, entity.FormatDate(req.Date)),
				map[string]interface{}{"employeeId": emp.ID, "date": entity.FormatDate(req.Date), "shiftType": string(req.Code)})
		}
	}
}

package postprocess

import (
	"sort"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/solver/diagnostics"
)

// candidate is one (day, employee) x (day, employee) swap to try, mirroring
// the (day_a, emp_a, day_b, emp_b) tuples postprocessor.py's _resolve_*
// methods build.
type candidate struct {
	DayA, EmpA string
	DayB, EmpB string
}

func (s *scheduleState) sortedEmployeeIDs() []string {
	ids := make([]string, 0, len(s.employeeMap))
	for id := range s.employeeMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// resolveStaffingShortage looks for an employee already capable of working
// the short-staffed code (on some other day, unlocked) and proposes moving
// that shift onto the day that needs it.
func resolveStaffingShortage(s *scheduleState, v diagnostics.StaffingShortage) []candidate {
	var out []candidate
	for _, empID := range s.sortedEmployeeIDs() {
		today := s.assignmentMap[assignmentKey{empID, v.Date}]
		if today == nil || today.IsLocked || today.ShiftType == v.ShiftType {
			continue
		}
		for _, otherDay := range s.dateKeys {
			if otherDay == v.Date {
				continue
			}
			other := s.assignmentMap[assignmentKey{empID, otherDay}]
			if other == nil || other.IsLocked || other.ShiftType != v.ShiftType {
				continue
			}
			out = append(out, candidate{DayA: v.Date, EmpA: empID, DayB: otherDay, EmpB: empID})
		}
	}
	return out
}

// resolveTeamCoverageGap pairs an eligible team member not yet working the
// required code that day with whoever outside the team is working it, so
// the swap moves coverage onto the team.
func resolveTeamCoverageGap(s *scheduleState, v diagnostics.TeamCoverageGap) []candidate {
	var out []candidate
	for _, empID := range s.sortedEmployeeIDs() {
		if !s.employeeInTeam(empID, v.TeamID) {
			continue
		}
		a := s.assignmentMap[assignmentKey{empID, v.Date}]
		if a == nil || a.IsLocked || a.ShiftType == v.ShiftType {
			continue
		}
		if !s.isShiftAllowed(empID, v.Date, v.ShiftType) {
			continue
		}
		for _, otherID := range s.sortedEmployeeIDs() {
			if otherID == empID || s.employeeInTeam(otherID, v.TeamID) {
				continue
			}
			b := s.assignmentMap[assignmentKey{otherID, v.Date}]
			if b == nil || b.IsLocked || b.ShiftType != v.ShiftType {
				continue
			}
			out = append(out, candidate{DayA: v.Date, EmpA: empID, DayB: v.Date, EmpB: otherID})
		}
	}
	return out
}

func resolveCareerGroupCoverageGap(s *scheduleState, v diagnostics.CareerGroupCoverageGap) []candidate {
	var out []candidate
	for _, empID := range s.sortedEmployeeIDs() {
		if !s.employeeInCareerGroup(empID, v.CareerGroupAlias) {
			continue
		}
		a := s.assignmentMap[assignmentKey{empID, v.Date}]
		if a == nil || a.IsLocked || a.ShiftType == v.ShiftType {
			continue
		}
		if !s.isShiftAllowed(empID, v.Date, v.ShiftType) {
			continue
		}
		for _, otherID := range s.sortedEmployeeIDs() {
			if otherID == empID || s.employeeInCareerGroup(otherID, v.CareerGroupAlias) {
				continue
			}
			b := s.assignmentMap[assignmentKey{otherID, v.Date}]
			if b == nil || b.IsLocked || b.ShiftType != v.ShiftType {
				continue
			}
			out = append(out, candidate{DayA: v.Date, EmpA: empID, DayB: v.Date, EmpB: otherID})
		}
	}
	return out
}

// resolveTeamWorkloadGap offloads one working day from teamA onto teamB (or
// the reverse) by swapping a working assignment against an off day on the
// same date.
func resolveTeamWorkloadGap(s *scheduleState, v diagnostics.TeamWorkloadGap) []candidate {
	var out []candidate
	heavier, lighter := s.heavierLighterTeam(v)
	for _, dayKey := range s.dateKeys {
		for _, heavyID := range s.sortedEmployeeIDs() {
			if !s.employeeInTeam(heavyID, heavier) {
				continue
			}
			heavyA := s.assignmentMap[assignmentKey{heavyID, dayKey}]
			if heavyA == nil || heavyA.IsLocked || heavyA.ShiftType == string(entity.CodeOff) {
				continue
			}
			for _, lightID := range s.sortedEmployeeIDs() {
				if !s.employeeInTeam(lightID, lighter) {
					continue
				}
				lightA := s.assignmentMap[assignmentKey{lightID, dayKey}]
				if lightA == nil || lightA.IsLocked || lightA.ShiftType != string(entity.CodeOff) {
					continue
				}
				out = append(out, candidate{DayA: dayKey, EmpA: heavyID, DayB: dayKey, EmpB: lightID})
			}
		}
	}
	return out
}

func (s *scheduleState) heavierLighterTeam(v diagnostics.TeamWorkloadGap) (string, string) {
	totalA, totalB := 0, 0
	for _, a := range s.assignments {
		if a.ShiftType == string(entity.CodeOff) {
			continue
		}
		switch {
		case s.employeeInTeam(a.EmployeeID, v.TeamA):
			totalA++
		case s.employeeInTeam(a.EmployeeID, v.TeamB):
			totalB++
		}
	}
	if totalA >= totalB {
		return v.TeamA, v.TeamB
	}
	return v.TeamB, v.TeamA
}

// resolveOffBalanceGap mirrors resolveTeamWorkloadGap but at the employee
// pair level within a single team.
func resolveOffBalanceGap(s *scheduleState, v diagnostics.OffBalanceGap) []candidate {
	var out []candidate
	fewer, more := s.fewerMoreOffEmployee(v)
	for _, dayKey := range s.dateKeys {
		moreA := s.assignmentMap[assignmentKey{more, dayKey}]
		fewerA := s.assignmentMap[assignmentKey{fewer, dayKey}]
		if moreA == nil || fewerA == nil || moreA.IsLocked || fewerA.IsLocked {
			continue
		}
		if moreA.ShiftType != string(entity.CodeOff) || fewerA.ShiftType == string(entity.CodeOff) {
			continue
		}
		out = append(out, candidate{DayA: dayKey, EmpA: fewer, DayB: dayKey, EmpB: more})
	}
	return out
}

func (s *scheduleState) fewerMoreOffEmployee(v diagnostics.OffBalanceGap) (fewer, more string) {
	offA, offB := 0, 0
	for _, a := range s.assignments {
		if a.ShiftType != string(entity.CodeOff) {
			continue
		}
		switch a.EmployeeID {
		case v.EmployeeA:
			offA++
		case v.EmployeeB:
			offB++
		}
	}
	if offA <= offB {
		return v.EmployeeA, v.EmployeeB
	}
	return v.EmployeeB, v.EmployeeA
}

// resolveShiftPatternBreak swaps one day out of the offending run/pair for a
// day elsewhere with a different code. Composite rest-after-night types
// ("N->D"/"N->E") never literally match an assignment's ShiftType, so — as
// in the reference — no candidates are generated for them; the run-length
// case is the one this can actually repair.
func resolveShiftPatternBreak(s *scheduleState, v diagnostics.ShiftPatternBreak) []candidate {
	if isRestAfterNightShiftType(v.ShiftType) {
		return nil
	}
	var out []candidate
	for _, dayKey := range s.dateKeys {
		a := s.assignmentMap[assignmentKey{v.EmployeeID, dayKey}]
		if a == nil || a.IsLocked || a.ShiftType != v.ShiftType {
			continue
		}
		for _, otherDay := range s.dateKeys {
			if otherDay == dayKey {
				continue
			}
			b := s.assignmentMap[assignmentKey{v.EmployeeID, otherDay}]
			if b == nil || b.IsLocked || b.ShiftType == v.ShiftType {
				continue
			}
			out = append(out, candidate{DayA: dayKey, EmpA: v.EmployeeID, DayB: otherDay, EmpB: v.EmployeeID})
		}
	}
	return out
}

// resolveAvoidPatternViolation swaps a day inside the violating window for a
// day outside it, breaking the contiguous match.
func resolveAvoidPatternViolation(s *scheduleState, v diagnostics.AvoidPatternViolation) []candidate {
	windowLen := len(v.Pattern)
	start := -1
	for i, d := range s.dateKeys {
		if d == v.StartDate {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	inWindow := map[string]bool{}
	for i := start; i < start+windowLen && i < len(s.dateKeys); i++ {
		inWindow[s.dateKeys[i]] = true
	}

	var out []candidate
	for _, dayKey := range s.dateKeys {
		if !inWindow[dayKey] {
			continue
		}
		a := s.assignmentMap[assignmentKey{v.EmployeeID, dayKey}]
		if a == nil || a.IsLocked {
			continue
		}
		for _, otherDay := range s.dateKeys {
			if inWindow[otherDay] {
				continue
			}
			b := s.assignmentMap[assignmentKey{v.EmployeeID, otherDay}]
			if b == nil || b.IsLocked || b.ShiftType == a.ShiftType {
				continue
			}
			out = append(out, candidate{DayA: dayKey, EmpA: v.EmployeeID, DayB: otherDay, EmpB: v.EmployeeID})
		}
	}
	return out
}

// resolveSpecialRequestMissed moves the employee's requested code onto the
// requested date from whichever other day they currently hold it.
func resolveSpecialRequestMissed(s *scheduleState, v diagnostics.SpecialRequestMissed) []candidate {
	var out []candidate
	today := s.assignmentMap[assignmentKey{v.EmployeeID, v.Date}]
	if today == nil || today.IsLocked || today.ShiftType == v.ShiftType {
		return nil
	}
	for _, otherDay := range s.dateKeys {
		if otherDay == v.Date {
			continue
		}
		other := s.assignmentMap[assignmentKey{v.EmployeeID, otherDay}]
		if other == nil || other.IsLocked || other.ShiftType != v.ShiftType {
			continue
		}
		out = append(out, candidate{DayA: v.Date, EmpA: v.EmployeeID, DayB: otherDay, EmpB: v.EmployeeID})
	}
	return out
}

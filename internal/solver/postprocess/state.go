package postprocess

import (
	"sort"
	"strings"

	"github.com/schedcu/v2/internal/entity"
)

type assignmentKey struct {
	EmployeeID string
	DateKey    string
}

// scheduleState is the mutable working copy of one solve's assignments that
// the local-search loop perturbs in place, mirroring the reference's
// ScheduleState (postprocessor.py).
type scheduleState struct {
	input            entity.ScheduleInput
	assignments      []entity.Assignment
	dateKeys         []string
	dayLookup        map[string]entity.Date
	assignmentMap    map[assignmentKey]*entity.Assignment
	assignmentsByDay map[string]map[string]*entity.Assignment
	employeeMap      map[string]entity.Employee
}

func newScheduleState(input entity.ScheduleInput, assignments []entity.Assignment) *scheduleState {
	s := &scheduleState{
		input:            input,
		assignments:      assignments,
		dayLookup:        map[string]entity.Date{},
		assignmentMap:    map[assignmentKey]*entity.Assignment{},
		assignmentsByDay: map[string]map[string]*entity.Assignment{},
		employeeMap:      map[string]entity.Employee{},
	}
	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		key := entity.FormatDate(day)
		s.dateKeys = append(s.dateKeys, key)
		s.dayLookup[key] = day
	}
	for i := range s.assignments {
		a := &s.assignments[i]
		dateKey := entity.FormatDate(a.Date)
		s.assignmentMap[assignmentKey{a.EmployeeID, dateKey}] = a
		if s.assignmentsByDay[dateKey] == nil {
			s.assignmentsByDay[dateKey] = map[string]*entity.Assignment{}
		}
		s.assignmentsByDay[dateKey][a.EmployeeID] = a
	}
	for _, emp := range input.Employees {
		s.employeeMap[emp.ID] = emp
	}
	return s
}

func (s *scheduleState) isShiftAllowed(employeeID, dateKey, shiftCode string) bool {
	emp, ok := s.employeeMap[employeeID]
	if !ok || shiftCode == "" {
		return false
	}
	day, ok := s.dayLookup[dateKey]
	if !ok {
		return false
	}
	return entity.IsShiftAllowed(emp, day, shiftCode, s.input.Holidays)
}

// swapPair exchanges the ShiftID/ShiftType of two (employee, day)
// assignments, refusing when either is locked (a satisfied special request)
// or the resulting assignment would violate a work-pattern restriction.
func (s *scheduleState) swapPair(dayA, empA, dayB, empB string) bool {
	a := s.assignmentMap[assignmentKey{empA, dayA}]
	b := s.assignmentMap[assignmentKey{empB, dayB}]
	if a == nil || b == nil {
		return false
	}
	if a.IsLocked || b.IsLocked {
		return false
	}
	newA := b.ShiftType
	newB := a.ShiftType
	if !s.isShiftAllowed(empA, dayA, newA) || !s.isShiftAllowed(empB, dayB, newB) {
		return false
	}
	a.ShiftID, b.ShiftID = b.ShiftID, a.ShiftID
	a.ShiftType, b.ShiftType = newA, newB
	return true
}

func (s *scheduleState) employeeInTeam(employeeID, teamID string) bool {
	emp, ok := s.employeeMap[employeeID]
	return ok && emp.TeamID == teamID
}

func (s *scheduleState) employeeInCareerGroup(employeeID, alias string) bool {
	emp, ok := s.employeeMap[employeeID]
	return ok && emp.CareerGroupAlias == alias
}

func isRestAfterNightShiftType(shiftType string) bool {
	return strings.Contains(shiftType, "->")
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

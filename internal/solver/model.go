package solver

import (
	"math"
	"sort"

	"github.com/schedcu/v2/internal/entity"
)

// Base penalty magnitudes for each soft-constraint family, scaled by the
// caller-supplied constraint weight before being added to the objective
// (SPEC_FULL.md §9, "weighted constraint satisfaction"). Mirrors the
// relative weighting used by the reference cpsat solver.
const (
	penaltyTeamCoverage        = 500
	penaltyCareerGroupCoverage = 450
	penaltyCareerGroupBalance  = 600
	penaltyTeamBalance         = 500
	penaltyOffBalance          = 800
	penaltyShiftRepeat         = 350
	penaltyRestAfterNight      = 500
	penaltyShiftTypeBalance    = 250
	penaltySpecialRequest      = 1200
	penaltyNightIntensivePattern = 350
	penaltyStaffing            = 1000
)

type varKey struct {
	EmployeeID string
	DateKey    string
	Code       string
}

// softEntry pairs a slack variable with the objective weight it costs per
// unit, so Objective can walk one flat list.
type softEntry struct {
	slack  IntVar
	weight int64
}

// Model builds one backend-agnostic constraint/objective model for a single
// solve attempt. Diagnostics are never collected here — they are re-derived
// from the resulting assignment set by the diagnostics package, so solver-
// time and postprocess-time diagnostics can never drift apart.
type Model struct {
	input     entity.ScheduleInput
	backend   Backend
	dateRange []entity.Date
	shiftCodes []string

	vars map[varKey]BoolVar

	specialTargets map[varKey]bool

	softSlacks []softEntry
	prefTerms  map[varKey]float64
}

// NewModel prepares a Model over input, targeting backend. It does not yet
// create variables or constraints; call Build.
func NewModel(input entity.ScheduleInput, backend Backend) *Model {
	return &Model{
		input:          input,
		backend:        backend,
		dateRange:      entity.DateRange(input.StartDate, input.EndDate),
		vars:           make(map[varKey]BoolVar),
		specialTargets: make(map[varKey]bool),
		prefTerms:      make(map[varKey]float64),
	}
}

// Build creates all decision variables, adds every hard and soft constraint,
// and sets the weighted minimization objective.
func (m *Model) Build() {
	m.shiftCodes = m.resolveShiftCodes()
	m.createVariables()
	m.recordSpecialTargets()
	m.initPreferencePenalties()

	m.addDailyAssignmentConstraints()
	m.addSpecialRequestConstraints()
	m.restrictSpecialOnlyShifts()
	m.addPatternConstraints()
	m.addAvoidPatternConstraints()
	m.addStaffingConstraints()
	m.addTeamCoverageConstraints()
	m.addCareerGroupCoverageConstraints()
	m.addCareerGroupBalanceConstraints()
	m.addTeamBalanceConstraints()
	m.addOffBalanceConstraints()
	m.addShiftRepeatConstraints()
	m.addConsecutiveDaysConstraints()
	m.addConsecutiveNightsConstraints()
	m.addNightIntensivePatternConstraints()
	m.addRestAfterNightConstraints()
	m.addShiftTypeBalanceConstraints()

	m.setObjective()
}

func (m *Model) requiredStaff() map[string]int {
	req := map[string]int{}
	for k, v := range entity.DefaultRequiredStaffPerShift() {
		req[string(k)] = v
	}
	for k, v := range m.input.RequiredStaffPerShift {
		req[string(k)] = v
	}
	return req
}

func (m *Model) resolveShiftCodes() []string {
	set := map[string]bool{}
	for code, v := range m.requiredStaff() {
		if v > 0 {
			set[code] = true
		}
	}
	for _, emp := range m.input.Employees {
		if emp.WorkPatternType == entity.WorkPatternWeekdayOnly {
			set[string(entity.CodeAdmin)] = true
		}
	}
	set[string(entity.CodeOff)] = true
	for _, req := range m.input.SpecialRequests {
		set[string(entity.Normalize(req.Code))] = true
	}

	var codes []string
	for c := range set {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func (m *Model) createVariables() {
	for _, emp := range m.input.Employees {
		for _, day := range m.dateRange {
			dateKey := entity.FormatDate(day)
			for _, code := range m.shiftCodes {
				key := varKey{emp.ID, dateKey, code}
				m.vars[key] = m.backend.NewBoolVar("x_" + emp.ID + "_" + dateKey + "_" + code)
			}
		}
	}
}

func (m *Model) recordSpecialTargets() {
	for _, req := range m.input.SpecialRequests {
		code := string(entity.Normalize(req.Code))
		m.specialTargets[varKey{req.EmployeeID, entity.FormatDate(req.Date), code}] = true
	}
}

// initPreferencePenalties mirrors the reference's team-pattern-mismatch and
// preferred-shift-type objective terms; both are direct per-variable costs,
// not slack-bearing constraints.
func (m *Model) initPreferencePenalties() {
	const (
		teamPatternPenalty    = 40.0
		preferencePenaltyBase = 20.0
	)
	pattern := m.input.TeamPattern.AvoidPatterns
	var expected []string
	if len(pattern) == 1 {
		for _, c := range pattern[0] {
			expected = append(expected, string(c))
		}
	}

	for dayIdx, day := range m.dateRange {
		dateKey := entity.FormatDate(day)
		var expectedCode string
		if len(expected) > 0 {
			expectedCode = expected[dayIdx%len(expected)]
		}
		for _, emp := range m.input.Employees {
			for _, code := range m.shiftCodes {
				penalty := 0.0
				if expectedCode != "" && emp.WorkPatternType == entity.WorkPatternThreeShift && code != expectedCode {
					penalty += teamPatternPenalty
				}
				if weight, ok := emp.PreferredShiftTypes[code]; ok {
					clamped := math.Max(0, math.Min(1, weight))
					penalty += (1 - clamped) * preferencePenaltyBase
				}
				if penalty > 0 {
					m.prefTerms[varKey{emp.ID, dateKey, code}] = penalty
				}
			}
		}
	}
}

func (m *Model) addDailyAssignmentConstraints() {
	for _, emp := range m.input.Employees {
		for _, day := range m.dateRange {
			dateKey := entity.FormatDate(day)
			vars := make([]BoolVar, 0, len(m.shiftCodes))
			coeffs := make([]int64, 0, len(m.shiftCodes))
			for _, code := range m.shiftCodes {
				vars = append(vars, m.vars[varKey{emp.ID, dateKey, code}])
				coeffs = append(coeffs, 1)
			}
			m.backend.AddLinearEqual(vars, coeffs, 1)
		}
	}
}

// addSpecialRequestConstraints adds, for each request, a soft constraint
// var + slack >= 1: the slack absorbs a miss at a steep penalty rather than
// making the request a hard lock (V requests are effectively always honored
// since they are the only code IsShiftAllowed permits unconditionally).
func (m *Model) addSpecialRequestConstraints() {
	for _, req := range m.input.SpecialRequests {
		code := string(entity.Normalize(req.Code))
		key := varKey{req.EmployeeID, entity.FormatDate(req.Date), code}
		v, ok := m.vars[key]
		if !ok {
			continue
		}
		slack := m.backend.AddLinearGreaterOrEqualWithSlack([]BoolVar{v}, []int64{1}, 1, 1)
		m.softSlacks = append(m.softSlacks, softEntry{slack, penaltySpecialRequest * WeightScale})
	}
}

// restrictSpecialOnlyShifts zeroes out any shift code that exists only
// because a special request named it (not part of required staffing, not
// O/A) for every (employee, day) pair that isn't the targeted request.
func (m *Model) restrictSpecialOnlyShifts() {
	required := m.requiredStaff()
	specialOnly := map[string]bool{}
	for _, code := range m.shiftCodes {
		if required[code] > 0 || code == string(entity.CodeAdmin) || code == string(entity.CodeOff) {
			continue
		}
		for _, req := range m.input.SpecialRequests {
			if string(entity.Normalize(req.Code)) == code {
				specialOnly[code] = true
				break
			}
		}
	}
	if len(specialOnly) == 0 {
		return
	}
	for _, emp := range m.input.Employees {
		for _, day := range m.dateRange {
			dateKey := entity.FormatDate(day)
			for code := range specialOnly {
				key := varKey{emp.ID, dateKey, code}
				if m.specialTargets[key] {
					continue
				}
				m.backend.Fix(m.vars[key], false)
			}
		}
	}
}

func (m *Model) addPatternConstraints() {
	for _, emp := range m.input.Employees {
		for _, day := range m.dateRange {
			dateKey := entity.FormatDate(day)
			for _, code := range m.shiftCodes {
				if !entity.IsShiftAllowed(emp, day, code, m.input.Holidays) {
					m.backend.Fix(m.vars[varKey{emp.ID, dateKey, code}], false)
				}
			}
		}
	}
}

func (m *Model) addAvoidPatternConstraints() {
	patterns := m.input.TeamPattern.AvoidPatterns
	if len(patterns) == 0 {
		return
	}
	for _, emp := range m.input.Employees {
		for _, pattern := range patterns {
			length := len(pattern)
			if length == 0 || length > len(m.dateRange) {
				continue
			}
			for start := 0; start+length <= len(m.dateRange); start++ {
				var vars []BoolVar
				coeffs := make([]int64, 0, length)
				for offset, code := range pattern {
					dateKey := entity.FormatDate(m.dateRange[start+offset])
					if v, ok := m.vars[varKey{emp.ID, dateKey, string(code)}]; ok {
						vars = append(vars, v)
						coeffs = append(coeffs, 1)
					}
				}
				if len(vars) > 0 {
					m.backend.AddLinearLessOrEqual(vars, coeffs, int64(length-1))
				}
			}
		}
	}
}

// addStaffingConstraints adds the min/max headcount per (day, code), skipped
// entirely when nobody is eligible (preflight.Run reports that case as an
// error). The minimum is a soft floor absorbing shortage into a slack
// penalized at penaltyStaffing scaled by ConstraintWeights.Staffing; the
// maximum is a genuine hard cap (SPEC_FULL.md §4.2's "Maximum staffing" row
// carries no penalty weight) — it defaults to the minimum itself when no
// Shift.MaxStaff override widens it, so a (day, code) is never over-staffed
// without an explicit envelope allowing slack capacity.
func (m *Model) addStaffingConstraints() {
	required := m.requiredStaff()
	maxStaff := m.maxStaffByCode()
	for _, day := range m.dateRange {
		dateKey := entity.FormatDate(day)
		for _, code := range m.shiftCodes {
			min := required[code]
			if min <= 0 {
				continue
			}
			eligible := 0
			vars := make([]BoolVar, 0, len(m.input.Employees))
			coeffs := make([]int64, 0, len(m.input.Employees))
			for _, emp := range m.input.Employees {
				if entity.IsShiftAllowed(emp, day, code, m.input.Holidays) {
					eligible++
				}
				vars = append(vars, m.vars[varKey{emp.ID, dateKey, code}])
				coeffs = append(coeffs, 1)
			}
			if eligible == 0 {
				continue
			}
			slack := m.backend.AddLinearGreaterOrEqualWithSlack(vars, coeffs, int64(min), int64(min))
			m.softSlacks = append(m.softSlacks, softEntry{slack, scaledPenalty(penaltyStaffing, m.input.Options.ConstraintWeights.Staffing)})

			maxAllowed := min
			if cap, ok := maxStaff[code]; ok && cap > maxAllowed {
				maxAllowed = cap
			}
			m.backend.AddLinearLessOrEqual(vars, coeffs, int64(maxAllowed))
		}
	}
}

// maxStaffByCode collects the highest Shift.MaxStaff override per code, when
// more than one Shift row shares a code.
func (m *Model) maxStaffByCode() map[string]int {
	out := map[string]int{}
	for _, s := range m.input.Shifts {
		if s.MaxStaff == nil {
			continue
		}
		code := string(s.Code)
		if existing, ok := out[code]; !ok || *s.MaxStaff > existing {
			out[code] = *s.MaxStaff
		}
	}
	return out
}

func (m *Model) teamMembers() map[string][]entity.Employee {
	out := map[string][]entity.Employee{}
	for _, emp := range m.input.Employees {
		if emp.TeamID != "" {
			out[emp.TeamID] = append(out[emp.TeamID], emp)
		}
	}
	return out
}

func (m *Model) addTeamCoverageConstraints() {
	teams := m.teamMembers()
	if len(teams) == 0 {
		return
	}
	required := m.requiredStaff()
	for _, day := range m.dateRange {
		dateKey := entity.FormatDate(day)
		for _, code := range m.shiftCodes {
			if required[code] <= 0 {
				continue
			}
			for teamID, members := range teams {
				var vars []BoolVar
				coeffs := make([]int64, 0, len(members))
				for _, emp := range members {
					if entity.IsShiftAllowed(emp, day, code, m.input.Holidays) {
						vars = append(vars, m.vars[varKey{emp.ID, dateKey, code}])
						coeffs = append(coeffs, 1)
					}
				}
				if len(vars) == 0 {
					continue
				}
				slack := m.backend.AddLinearGreaterOrEqualWithSlack(vars, coeffs, 1, int64(len(vars)))
				m.softSlacks = append(m.softSlacks, softEntry{slack, scaledPenalty(penaltyTeamCoverage, m.input.Options.ConstraintWeights.TeamBalance)})
				_ = teamID
			}
		}
	}
}

func (m *Model) addCareerGroupCoverageConstraints() {
	if len(m.input.CareerGroups) == 0 {
		return
	}
	byID := map[string]entity.Employee{}
	for _, emp := range m.input.Employees {
		byID[emp.ID] = emp
	}
	required := m.requiredStaff()
	for _, day := range m.dateRange {
		dateKey := entity.FormatDate(day)
		for _, code := range m.shiftCodes {
			if required[code] <= 0 {
				continue
			}
			for _, group := range m.input.CareerGroups {
				var vars []BoolVar
				var coeffs []int64
				for _, empID := range group.Members {
					emp, ok := byID[empID]
					if !ok || !entity.IsShiftAllowed(emp, day, code, m.input.Holidays) {
						continue
					}
					vars = append(vars, m.vars[varKey{emp.ID, dateKey, code}])
					coeffs = append(coeffs, 1)
				}
				if len(vars) == 0 {
					continue
				}
				slack := m.backend.AddLinearGreaterOrEqualWithSlack(vars, coeffs, 1, int64(len(vars)))
				m.softSlacks = append(m.softSlacks, softEntry{slack, scaledPenalty(penaltyCareerGroupCoverage, m.input.Options.ConstraintWeights.CareerBalance)})
			}
		}
	}
}

// workingCodes excludes O and A from balance/workload totals (matching the
// reference's relevant_shifts / career_group_balance_shift_codes filters).
func (m *Model) workingCodes(excludeNight bool) []string {
	var out []string
	for _, code := range m.shiftCodes {
		if code == string(entity.CodeOff) || code == string(entity.CodeAdmin) {
			continue
		}
		if excludeNight && code == string(entity.CodeNight) {
			continue
		}
		out = append(out, code)
	}
	return out
}

func (m *Model) employeeWorkTerms(emp entity.Employee, codes []string) ([]BoolVar, []int64) {
	var vars []BoolVar
	var coeffs []int64
	for _, day := range m.dateRange {
		dateKey := entity.FormatDate(day)
		for _, code := range codes {
			if v, ok := m.vars[varKey{emp.ID, dateKey, code}]; ok {
				vars = append(vars, v)
				coeffs = append(coeffs, 1)
			}
		}
	}
	return vars, coeffs
}

func (m *Model) addCareerGroupBalanceConstraints() {
	if len(m.input.CareerGroups) < 2 {
		return
	}
	codes := m.workingCodes(true)
	if len(codes) == 0 {
		return
	}
	tolerance := int64(1)
	byID := map[string]entity.Employee{}
	for _, emp := range m.input.Employees {
		byID[emp.ID] = emp
	}

	totals := map[string][]BoolVar{}
	totalCoeffs := map[string][]int64{}
	for _, group := range m.input.CareerGroups {
		for _, empID := range group.Members {
			emp, ok := byID[empID]
			if !ok {
				continue
			}
			vars, coeffs := m.employeeWorkTerms(emp, codes)
			totals[group.Alias] = append(totals[group.Alias], vars...)
			totalCoeffs[group.Alias] = append(totalCoeffs[group.Alias], coeffs...)
		}
	}

	for i := 0; i < len(m.input.CareerGroups); i++ {
		for j := i + 1; j < len(m.input.CareerGroups); j++ {
			a, b := m.input.CareerGroups[i].Alias, m.input.CareerGroups[j].Alias
			m.addPairwiseBalance(totals[a], totalCoeffs[a], totals[b], totalCoeffs[b], tolerance,
				scaledPenalty(penaltyCareerGroupBalance, m.input.Options.ConstraintWeights.CareerBalance))
		}
	}
}

func (m *Model) addTeamBalanceConstraints() {
	teams := m.teamMembers()
	if len(teams) < 2 {
		return
	}
	codes := m.workingCodes(false)
	if len(codes) == 0 {
		return
	}
	tolerance := int64(2)

	var teamIDs []string
	for id := range teams {
		teamIDs = append(teamIDs, id)
	}
	sort.Strings(teamIDs)

	totals := map[string][]BoolVar{}
	totalCoeffs := map[string][]int64{}
	for teamID, members := range teams {
		for _, emp := range members {
			vars, coeffs := m.employeeWorkTerms(emp, codes)
			totals[teamID] = append(totals[teamID], vars...)
			totalCoeffs[teamID] = append(totalCoeffs[teamID], coeffs...)
		}
	}

	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			a, b := teamIDs[i], teamIDs[j]
			m.addPairwiseBalance(totals[a], totalCoeffs[a], totals[b], totalCoeffs[b], tolerance,
				scaledPenalty(penaltyTeamBalance, m.input.Options.ConstraintWeights.TeamBalance))
		}
	}
}

// addPairwiseBalance adds Σcoeffs*varsA - Σcoeffs*varsB <= tolerance + slack
// in both directions, so |totalA - totalB| is softly capped at tolerance.
func (m *Model) addPairwiseBalance(varsA []BoolVar, coeffsA []int64, varsB []BoolVar, coeffsB []int64, tolerance int64, weight int64) {
	bound := int64(len(varsA) + len(varsB) + 1)

	combined := append(append([]BoolVar{}, varsA...), varsB...)
	coeffsAB := append(append([]int64{}, coeffsA...), negate(coeffsB)...)
	slackAB := m.backend.AddLinearLessOrEqualWithSlack(combined, coeffsAB, tolerance, bound)
	m.softSlacks = append(m.softSlacks, softEntry{slackAB, weight})

	coeffsBA := append(append([]int64{}, coeffsB...), negate(coeffsA)...)
	combinedBA := append(append([]BoolVar{}, varsB...), varsA...)
	slackBA := m.backend.AddLinearLessOrEqualWithSlack(combinedBA, coeffsBA, tolerance, bound)
	m.softSlacks = append(m.softSlacks, softEntry{slackBA, weight})
}

func negate(coeffs []int64) []int64 {
	out := make([]int64, len(coeffs))
	for i, c := range coeffs {
		out[i] = -c
	}
	return out
}

// offTermsFor returns the O+V indicator variables for one employee, used as
// the off-day count in balance constraints.
func (m *Model) offTermsFor(emp entity.Employee) ([]BoolVar, []int64) {
	var vars []BoolVar
	var coeffs []int64
	for _, day := range m.dateRange {
		dateKey := entity.FormatDate(day)
		if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeOff)}]; ok {
			vars = append(vars, v)
			coeffs = append(coeffs, 1)
		}
		if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeVac)}]; ok {
			vars = append(vars, v)
			coeffs = append(coeffs, 1)
		}
	}
	return vars, coeffs
}

func (m *Model) addOffBalanceConstraints() {
	tolerance := int64(m.input.Options.CSPSettings.OffTolerance)
	if tolerance <= 0 {
		tolerance = 2
	}
	for _, members := range m.teamMembers() {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				varsA, coeffsA := m.offTermsFor(members[i])
				varsB, coeffsB := m.offTermsFor(members[j])
				m.addPairwiseBalance(varsA, coeffsA, varsB, coeffsB, tolerance,
					scaledPenalty(penaltyOffBalance, m.input.Options.ConstraintWeights.OffBalance))
			}
		}
	}
}

// addShiftRepeatConstraints softly caps any non-O code's run length within a
// sliding window at maxSameShift.
func (m *Model) addShiftRepeatConstraints() {
	maxSame := m.input.Options.CSPSettings.MaxSameShift
	if maxSame <= 0 {
		maxSame = 2
	}
	window := maxSame + 1
	if window > len(m.dateRange) {
		return
	}
	weight := scaledPenalty(penaltyShiftRepeat, m.input.Options.ConstraintWeights.ShiftPattern)

	for _, emp := range m.input.Employees {
		for _, code := range m.shiftCodes {
			if code == string(entity.CodeOff) {
				continue
			}
			for start := 0; start+window <= len(m.dateRange); start++ {
				var vars []BoolVar
				coeffs := make([]int64, 0, window)
				for offset := 0; offset < window; offset++ {
					dateKey := entity.FormatDate(m.dateRange[start+offset])
					if v, ok := m.vars[varKey{emp.ID, dateKey, code}]; ok {
						vars = append(vars, v)
						coeffs = append(coeffs, 1)
					}
				}
				if len(vars) == 0 {
					continue
				}
				slack := m.backend.AddLinearLessOrEqualWithSlack(vars, coeffs, int64(maxSame), int64(window))
				m.softSlacks = append(m.softSlacks, softEntry{slack, weight})
			}
		}
	}
}

// addConsecutiveDaysConstraints is hard: for an employee with
// MaxConsecutiveDaysPreferred = k configured (k <= 0 leaves the employee
// unconstrained), every window of k+1 days must contain at least one O/V,
// grounded on cpsat_solver.py's _add_consecutive_constraints.
func (m *Model) addConsecutiveDaysConstraints() {
	total := len(m.dateRange)
	for _, emp := range m.input.Employees {
		k := emp.MaxConsecutiveDaysPreferred
		if k <= 0 {
			continue
		}
		window := k + 1
		if window > total {
			continue
		}
		for start := 0; start+window <= total; start++ {
			var vars []BoolVar
			coeffs := make([]int64, 0, window)
			for offset := 0; offset < window; offset++ {
				dateKey := entity.FormatDate(m.dateRange[start+offset])
				if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeOff)}]; ok {
					vars = append(vars, v)
					coeffs = append(coeffs, 1)
				}
				if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeVac)}]; ok {
					vars = append(vars, v)
					coeffs = append(coeffs, 1)
				}
			}
			if len(vars) == 0 {
				continue
			}
			m.backend.AddLinearGreaterOrEqualWithSlack(vars, coeffs, 1, 0)
		}
	}
}

// addConsecutiveNightsConstraints is hard: for an employee with
// MaxConsecutiveNightsPreferred = k configured, every window of k+1 days
// caps the N count at k, grounded on the same reference function.
func (m *Model) addConsecutiveNightsConstraints() {
	hasNight := false
	for _, c := range m.shiftCodes {
		if c == string(entity.CodeNight) {
			hasNight = true
		}
	}
	if !hasNight {
		return
	}
	total := len(m.dateRange)
	for _, emp := range m.input.Employees {
		k := emp.MaxConsecutiveNightsPreferred
		if k <= 0 {
			continue
		}
		window := k + 1
		if window > total {
			continue
		}
		for start := 0; start+window <= total; start++ {
			var vars []BoolVar
			coeffs := make([]int64, 0, window)
			for offset := 0; offset < window; offset++ {
				dateKey := entity.FormatDate(m.dateRange[start+offset])
				if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeNight)}]; ok {
					vars = append(vars, v)
					coeffs = append(coeffs, 1)
				}
			}
			if len(vars) == 0 {
				continue
			}
			m.backend.AddLinearLessOrEqual(vars, coeffs, int64(k))
		}
	}
}

// addNightIntensivePatternConstraints is soft, applying only to
// night-intensive employees: any 4-day window caps ΣN at 3, and any 5-day
// window floors ΣO at 2, both absorbed by a penalized slack rather than
// rejected outright, grounded on
// cpsat_solver.py's _add_night_intensive_pattern_constraints.
func (m *Model) addNightIntensivePatternConstraints() {
	total := len(m.dateRange)
	if total == 0 {
		return
	}
	weight := scaledPenalty(penaltyNightIntensivePattern, m.input.Options.ConstraintWeights.ShiftPattern)

	for _, emp := range m.input.Employees {
		if emp.WorkPatternType != entity.WorkPatternNightIntensive {
			continue
		}
		if total >= 4 {
			for start := 0; start+4 <= total; start++ {
				var vars []BoolVar
				coeffs := make([]int64, 0, 4)
				for offset := 0; offset < 4; offset++ {
					dateKey := entity.FormatDate(m.dateRange[start+offset])
					if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeNight)}]; ok {
						vars = append(vars, v)
						coeffs = append(coeffs, 1)
					}
				}
				if len(vars) == 0 {
					continue
				}
				slack := m.backend.AddLinearLessOrEqualWithSlack(vars, coeffs, 3, int64(len(vars)))
				m.softSlacks = append(m.softSlacks, softEntry{slack, weight})
			}
		}
		if total >= 5 {
			for start := 0; start+5 <= total; start++ {
				var vars []BoolVar
				coeffs := make([]int64, 0, 5)
				for offset := 0; offset < 5; offset++ {
					dateKey := entity.FormatDate(m.dateRange[start+offset])
					if v, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeOff)}]; ok {
						vars = append(vars, v)
						coeffs = append(coeffs, 1)
					}
				}
				if len(vars) == 0 {
					continue
				}
				slack := m.backend.AddLinearGreaterOrEqualWithSlack(vars, coeffs, 2, int64(len(vars)))
				m.softSlacks = append(m.softSlacks, softEntry{slack, weight})
			}
		}
	}
}

// addRestAfterNightConstraints softly discourages N followed immediately by
// D or E (entity invariant I5 / testable property P6).
func (m *Model) addRestAfterNightConstraints() {
	hasNight := false
	for _, c := range m.shiftCodes {
		if c == string(entity.CodeNight) {
			hasNight = true
		}
	}
	if !hasNight {
		return
	}
	weight := scaledPenalty(penaltyRestAfterNight, m.input.Options.ConstraintWeights.ShiftPattern)

	for _, emp := range m.input.Employees {
		for i := 0; i+1 < len(m.dateRange); i++ {
			dateKey := entity.FormatDate(m.dateRange[i])
			nextKey := entity.FormatDate(m.dateRange[i+1])
			nightVar, ok := m.vars[varKey{emp.ID, dateKey, string(entity.CodeNight)}]
			if !ok {
				continue
			}
			for _, early := range []string{string(entity.CodeDay), string(entity.CodeEve)} {
				nextVar, ok := m.vars[varKey{emp.ID, nextKey, early}]
				if !ok {
					continue
				}
				slack := m.backend.AddLinearLessOrEqualWithSlack(
					[]BoolVar{nightVar, nextVar}, []int64{1, 1}, 1, 1)
				m.softSlacks = append(m.softSlacks, softEntry{slack, weight})
			}
		}
	}
}

// addShiftTypeBalanceConstraints softly balances D/E/N counts against each
// other per three-shift employee.
func (m *Model) addShiftTypeBalanceConstraints() {
	var core []string
	for _, c := range []string{string(entity.CodeDay), string(entity.CodeEve), string(entity.CodeNight)} {
		for _, sc := range m.shiftCodes {
			if sc == c {
				core = append(core, c)
				break
			}
		}
	}
	if len(core) < 2 {
		return
	}
	tolerance := int64(m.input.Options.CSPSettings.ShiftBalanceTolerance)
	if tolerance <= 0 {
		tolerance = 4
	}
	weight := scaledPenalty(penaltyShiftTypeBalance, m.input.Options.ConstraintWeights.ShiftPattern)

	for _, emp := range m.input.Employees {
		if emp.WorkPatternType != entity.WorkPatternThreeShift {
			continue
		}
		counts := map[string][]BoolVar{}
		countCoeffs := map[string][]int64{}
		for _, code := range core {
			for _, day := range m.dateRange {
				dateKey := entity.FormatDate(day)
				if v, ok := m.vars[varKey{emp.ID, dateKey, code}]; ok {
					counts[code] = append(counts[code], v)
					countCoeffs[code] = append(countCoeffs[code], 1)
				}
			}
		}
		for i := 0; i < len(core); i++ {
			for j := i + 1; j < len(core); j++ {
				a, b := core[i], core[j]
				m.addPairwiseBalance(counts[a], countCoeffs[a], counts[b], countCoeffs[b], tolerance, weight)
			}
		}
	}
}

func (m *Model) setObjective() {
	for key, penalty := range m.prefTerms {
		m.backend.AddObjectiveTerm(m.vars[key], int64(penalty*float64(WeightScale)))
	}
	for _, entry := range m.softSlacks {
		m.backend.AddObjectiveTerm(entry.slack, entry.weight)
	}
}

// scaledPenalty multiplies a base penalty magnitude by the caller's
// effective constraint weight, scaled for integer objective coefficients.
func scaledPenalty(base int64, weight float64) int64 {
	return int64(float64(base)*entity.EffectiveWeight(weight)*WeightScale + 0.5)
}

// ExtractAssignments reads every boolean variable fixed true by a completed
// solve into an entity.Assignment. Only valid after Solve returns Optimal or
// Feasible.
func (m *Model) ExtractAssignments() []entity.Assignment {
	shiftIDs := map[string]string{}
	for _, s := range m.input.Shifts {
		shiftIDs[string(s.Code)] = s.ID
	}

	var out []entity.Assignment
	for key, v := range m.vars {
		if !m.backend.BoolValue(v) {
			continue
		}
		date, err := entity.ParseDate(key.DateKey)
		if err != nil {
			continue
		}
		shiftID := shiftIDs[key.Code]
		if shiftID == "" {
			shiftID = "shift-" + key.Code
		}
		out = append(out, entity.Assignment{
			EmployeeID: key.EmployeeID,
			Date:       date,
			ShiftID:    shiftID,
			ShiftType:  key.Code,
			IsLocked:   m.specialTargets[key],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

package diagnostics

import (
	"sort"

	"github.com/schedcu/v2/internal/entity"
)

// Collect re-derives the full diagnostics record from a concrete assignment
// set. It never consults anything but input and assignments, so it is safe
// to call at solver time and again at postprocess time — both must agree
// (entity invariant I5, testable property P6). Per DESIGN.md Open Question
// decision #1, shiftPatternBreaks always includes same-code run-length
// excess, rest-after-night violations, consecutive-days/nights cap breaches,
// and night-intensive pattern breaches, in both contexts.
func Collect(input entity.ScheduleInput, assignments []entity.Assignment) *Record {
	rec := &Record{}
	idx := buildIndex(assignments)

	rec.StaffingShortages = collectStaffingShortages(input, assignments)
	rec.StaffingOverages = collectStaffingOverages(input, assignments)
	rec.TeamCoverageGaps = collectTeamCoverageGaps(input, assignments)
	rec.CareerGroupCoverageGaps = collectCareerGroupCoverageGaps(input, assignments)
	rec.TeamWorkloadGaps = collectTeamWorkloadGaps(input, assignments)
	rec.OffBalanceGaps = collectOffBalanceGaps(input, assignments)
	rec.ShiftPatternBreaks = collectShiftPatternBreaks(input, idx)
	rec.SpecialRequestMisses = collectSpecialRequestMisses(input, idx)
	rec.AvoidPatternViolations = collectAvoidPatternViolations(input, idx)
	return rec
}

// effectiveMaxStaff mirrors Model.addStaffingConstraints' cap-resolution: the
// highest configured Shift.MaxStaff for code, widened (never narrowed) to at
// least min so the floor and ceiling never contradict each other.
func effectiveMaxStaff(input entity.ScheduleInput, code string, min int) (int, bool) {
	maxStaff := 0
	hasMax := false
	for _, s := range input.Shifts {
		if string(s.Code) != code || s.MaxStaff == nil {
			continue
		}
		if !hasMax || *s.MaxStaff > maxStaff {
			maxStaff = *s.MaxStaff
			hasMax = true
		}
	}
	if hasMax {
		if min > maxStaff {
			return min, true
		}
		return maxStaff, true
	}
	if min > 0 {
		return min, true
	}
	return 0, false
}

func collectStaffingOverages(input entity.ScheduleInput, assignments []entity.Assignment) []StaffingOverage {
	req := requiredStaff(input)
	counts := map[string]int{}
	for _, a := range assignments {
		key := entity.FormatDate(a.Date) + "|" + a.ShiftType
		counts[key]++
	}

	var out []StaffingOverage
	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		dateStr := entity.FormatDate(day)
		for code, min := range req {
			maxAllowed, ok := effectiveMaxStaff(input, code, min)
			if !ok {
				continue
			}
			covered := counts[dateStr+"|"+code]
			if covered > maxAllowed {
				out = append(out, StaffingOverage{
					Type: "staffingOverage", Date: dateStr, ShiftType: code,
					Max: maxAllowed, Covered: covered, Overage: covered - maxAllowed,
				})
			}
		}
	}
	sortStaffingOverages(out)
	return out
}

func requiredStaff(input entity.ScheduleInput) map[entity.ShiftCode]int {
	req := entity.DefaultRequiredStaffPerShift()
	for k, v := range input.RequiredStaffPerShift {
		req[k] = v
	}
	return req
}

func collectStaffingShortages(input entity.ScheduleInput, assignments []entity.Assignment) []StaffingShortage {
	req := requiredStaff(input)
	counts := map[string]int{} // date|code -> count
	for _, a := range assignments {
		key := entity.FormatDate(a.Date) + "|" + a.ShiftType
		counts[key]++
	}

	var out []StaffingShortage
	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		dateStr := entity.FormatDate(day)
		for code, min := range req {
			if min <= 0 {
				continue
			}
			covered := counts[dateStr+"|"+string(code)]
			if covered < min {
				out = append(out, StaffingShortage{
					Type: "staffingShortage", Date: dateStr, ShiftType: string(code),
					Required: min, Covered: covered, Shortage: min - covered,
				})
			}
		}
	}
	sortStaffingShortages(out)
	return out
}

func collectTeamCoverageGaps(input entity.ScheduleInput, assignments []entity.Assignment) []TeamCoverageGap {
	req := requiredStaff(input)
	teams := teamMembership(input)
	covered := map[string]map[string]bool{} // date|code -> set of teamIDs covered
	for _, a := range assignments {
		emp := employeeByID(input, a.EmployeeID)
		if emp == nil || emp.TeamID == "" {
			continue
		}
		key := entity.FormatDate(a.Date) + "|" + a.ShiftType
		if covered[key] == nil {
			covered[key] = map[string]bool{}
		}
		covered[key][emp.TeamID] = true
	}

	var out []TeamCoverageGap
	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		dateStr := entity.FormatDate(day)
		for code, min := range req {
			if min <= 0 {
				continue
			}
			key := dateStr + "|" + string(code)
			for teamID := range teams {
				if !covered[key][teamID] {
					out = append(out, TeamCoverageGap{
						Type: "teamCoverageGap", Date: dateStr, ShiftType: string(code),
						TeamID: teamID, Shortage: 1,
					})
				}
			}
		}
	}
	sortTeamCoverageGaps(out)
	return out
}

func collectCareerGroupCoverageGaps(input entity.ScheduleInput, assignments []entity.Assignment) []CareerGroupCoverageGap {
	req := requiredStaff(input)
	covered := map[string]map[string]bool{}
	for _, a := range assignments {
		emp := employeeByID(input, a.EmployeeID)
		if emp == nil || emp.CareerGroupAlias == "" {
			continue
		}
		key := entity.FormatDate(a.Date) + "|" + a.ShiftType
		if covered[key] == nil {
			covered[key] = map[string]bool{}
		}
		covered[key][emp.CareerGroupAlias] = true
	}

	var out []CareerGroupCoverageGap
	for _, day := range entity.DateRange(input.StartDate, input.EndDate) {
		dateStr := entity.FormatDate(day)
		for code, min := range req {
			if min <= 0 {
				continue
			}
			key := dateStr + "|" + string(code)
			for _, g := range input.CareerGroups {
				if !covered[key][g.Alias] {
					out = append(out, CareerGroupCoverageGap{
						Type: "careerGroupCoverageGap", Date: dateStr, ShiftType: string(code),
						CareerGroupAlias: g.Alias, Shortage: 1,
					})
				}
			}
		}
	}
	sortCareerGroupCoverageGaps(out)
	return out
}

func collectTeamWorkloadGaps(input entity.ScheduleInput, assignments []entity.Assignment) []TeamWorkloadGap {
	totals := map[string]int{}
	for _, a := range assignments {
		if a.ShiftType == string(entity.CodeOff) {
			continue
		}
		emp := employeeByID(input, a.EmployeeID)
		if emp == nil || emp.TeamID == "" {
			continue
		}
		totals[emp.TeamID]++
	}
	tolerance := input.Options.CSPSettings.ShiftBalanceTolerance
	if tolerance <= 0 {
		tolerance = 2
	}

	var teamIDs []string
	for t := range teamMembership(input) {
		teamIDs = append(teamIDs, t)
	}
	sort.Strings(teamIDs)

	var out []TeamWorkloadGap
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			diff := abs(totals[teamIDs[i]] - totals[teamIDs[j]])
			if diff > tolerance {
				out = append(out, TeamWorkloadGap{
					Type: "teamWorkloadGap", TeamA: teamIDs[i], TeamB: teamIDs[j],
					Difference: diff, Tolerance: tolerance,
				})
			}
		}
	}
	return out
}

func collectOffBalanceGaps(input entity.ScheduleInput, assignments []entity.Assignment) []OffBalanceGap {
	offCounts := map[string]int{}
	for _, a := range assignments {
		if a.ShiftType == string(entity.CodeOff) {
			offCounts[a.EmployeeID]++
		}
	}
	tolerance := input.Options.CSPSettings.OffTolerance
	if tolerance <= 0 {
		tolerance = 2
	}

	byTeam := map[string][]entity.Employee{}
	for _, e := range input.Employees {
		if e.TeamID != "" {
			byTeam[e.TeamID] = append(byTeam[e.TeamID], e)
		}
	}

	var out []OffBalanceGap
	var teamIDs []string
	for t := range byTeam {
		teamIDs = append(teamIDs, t)
	}
	sort.Strings(teamIDs)

	for _, teamID := range teamIDs {
		members := byTeam[teamID]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				diff := abs(offCounts[members[i].ID] - offCounts[members[j].ID])
				if diff > tolerance {
					out = append(out, OffBalanceGap{
						Type: "offBalanceGap", TeamID: teamID,
						EmployeeA: members[i].ID, EmployeeB: members[j].ID,
						Difference: diff, Tolerance: tolerance,
					})
				}
			}
		}
	}
	return out
}

func collectShiftPatternBreaks(input entity.ScheduleInput, idx assignmentIndex) []ShiftPatternBreak {
	maxSameShift := input.Options.CSPSettings.MaxSameShift
	if maxSameShift <= 0 {
		maxSameShift = 3
	}

	var out []ShiftPatternBreak
	var empIDs []string
	for id := range idx.byEmployee {
		empIDs = append(empIDs, id)
	}
	sort.Strings(empIDs)

	for _, empID := range empIDs {
		seq := idx.byEmployee[empID]

		// Same-code run-length excess.
		runStart := 0
		for i := 1; i <= len(seq); i++ {
			if i < len(seq) && seq[i].ShiftType == seq[runStart].ShiftType && seq[i].ShiftType != string(entity.CodeOff) {
				continue
			}
			runLen := i - runStart
			if seq[runStart].ShiftType != string(entity.CodeOff) && runLen > maxSameShift {
				out = append(out, ShiftPatternBreak{
					Type: "shiftPatternBreak", EmployeeID: empID, ShiftType: seq[runStart].ShiftType,
					StartDate: entity.FormatDate(seq[runStart].Date), Window: runLen, Excess: runLen - maxSameShift,
				})
			}
			runStart = i
		}

		// Rest-after-night violations.
		for i := 0; i+1 < len(seq); i++ {
			if !adjacentDays(seq[i].Date, seq[i+1].Date) {
				continue
			}
			if seq[i].ShiftType != string(entity.CodeNight) {
				continue
			}
			next := seq[i+1].ShiftType
			if next == string(entity.CodeDay) || next == string(entity.CodeEve) {
				out = append(out, ShiftPatternBreak{
					Type: "shiftPatternBreak", EmployeeID: empID,
					ShiftType: string(entity.CodeNight) + "->" + next,
					StartDate: entity.FormatDate(seq[i].Date), Window: 2, Excess: 1,
				})
			}
		}
	}

	out = append(out, collectConsecutiveDayCapBreaches(input, idx)...)
	out = append(out, collectConsecutiveNightCapBreaches(input, idx)...)
	out = append(out, collectNightIntensivePatternBreaches(input, idx)...)
	return out
}

// collectConsecutiveDayCapBreaches re-derives breaches of an employee's
// MaxConsecutiveDaysPreferred cap (k <= 0 means unconstrained), folded into
// ShiftPatternBreak under the "consecutiveDaysCap" tag since it is the same
// family of per-employee sequencing constraint.
func collectConsecutiveDayCapBreaches(input entity.ScheduleInput, idx assignmentIndex) []ShiftPatternBreak {
	var out []ShiftPatternBreak
	var empIDs []string
	for id := range idx.byEmployee {
		empIDs = append(empIDs, id)
	}
	sort.Strings(empIDs)

	for _, empID := range empIDs {
		emp := employeeByID(input, empID)
		if emp == nil || emp.MaxConsecutiveDaysPreferred <= 0 {
			continue
		}
		seq := idx.byEmployee[empID]
		runStart := 0
		for i := 1; i <= len(seq); i++ {
			if i < len(seq) && isOffCode(seq[i].ShiftType) == isOffCode(seq[runStart].ShiftType) {
				continue
			}
			runLen := i - runStart
			if !isOffCode(seq[runStart].ShiftType) && runLen > emp.MaxConsecutiveDaysPreferred {
				out = append(out, ShiftPatternBreak{
					Type: "shiftPatternBreak", EmployeeID: empID, ShiftType: "consecutiveDaysCap",
					StartDate: entity.FormatDate(seq[runStart].Date), Window: runLen, Excess: runLen - emp.MaxConsecutiveDaysPreferred,
				})
			}
			runStart = i
		}
	}
	return out
}

// collectConsecutiveNightCapBreaches is collectConsecutiveDayCapBreaches'
// analogue for MaxConsecutiveNightsPreferred, tagged "consecutiveNightsCap".
func collectConsecutiveNightCapBreaches(input entity.ScheduleInput, idx assignmentIndex) []ShiftPatternBreak {
	var out []ShiftPatternBreak
	var empIDs []string
	for id := range idx.byEmployee {
		empIDs = append(empIDs, id)
	}
	sort.Strings(empIDs)

	for _, empID := range empIDs {
		emp := employeeByID(input, empID)
		if emp == nil || emp.MaxConsecutiveNightsPreferred <= 0 {
			continue
		}
		seq := idx.byEmployee[empID]
		runStart := 0
		for i := 1; i <= len(seq); i++ {
			isNight := seq[runStart].ShiftType == string(entity.CodeNight)
			if i < len(seq) && seq[i].ShiftType == string(entity.CodeNight) && isNight {
				continue
			}
			runLen := i - runStart
			if isNight && runLen > emp.MaxConsecutiveNightsPreferred {
				out = append(out, ShiftPatternBreak{
					Type: "shiftPatternBreak", EmployeeID: empID, ShiftType: "consecutiveNightsCap",
					StartDate: entity.FormatDate(seq[runStart].Date), Window: runLen, Excess: runLen - emp.MaxConsecutiveNightsPreferred,
				})
			}
			runStart = i
		}
	}
	return out
}

// collectNightIntensivePatternBreaches re-derives breaches of the
// night-intensive soft pattern (4-day ΣN<=3, 5-day ΣO>=2), tagged
// "nightIntensiveNightCap"/"nightIntensiveOffFloor".
func collectNightIntensivePatternBreaches(input entity.ScheduleInput, idx assignmentIndex) []ShiftPatternBreak {
	var out []ShiftPatternBreak
	var empIDs []string
	for id := range idx.byEmployee {
		empIDs = append(empIDs, id)
	}
	sort.Strings(empIDs)

	for _, empID := range empIDs {
		emp := employeeByID(input, empID)
		if emp == nil || emp.WorkPatternType != entity.WorkPatternNightIntensive {
			continue
		}
		seq := idx.byEmployee[empID]
		for start := 0; start+4 <= len(seq); start++ {
			n := 0
			for _, a := range seq[start : start+4] {
				if a.ShiftType == string(entity.CodeNight) {
					n++
				}
			}
			if n > 3 {
				out = append(out, ShiftPatternBreak{
					Type: "shiftPatternBreak", EmployeeID: empID, ShiftType: "nightIntensiveNightCap",
					StartDate: entity.FormatDate(seq[start].Date), Window: 4, Excess: n - 3,
				})
			}
		}
		for start := 0; start+5 <= len(seq); start++ {
			offCount := 0
			for _, a := range seq[start : start+5] {
				if a.ShiftType == string(entity.CodeOff) {
					offCount++
				}
			}
			if offCount < 2 {
				out = append(out, ShiftPatternBreak{
					Type: "shiftPatternBreak", EmployeeID: empID, ShiftType: "nightIntensiveOffFloor",
					StartDate: entity.FormatDate(seq[start].Date), Window: 5, Excess: 2 - offCount,
				})
			}
		}
	}
	return out
}

func isOffCode(code string) bool {
	return code == string(entity.CodeOff) || code == string(entity.CodeVac)
}

func collectSpecialRequestMisses(input entity.ScheduleInput, idx assignmentIndex) []SpecialRequestMissed {
	var out []SpecialRequestMissed
	for _, req := range input.SpecialRequests {
		key := req.EmployeeID + "|" + entity.FormatDate(req.Date)
		a, ok := idx.byEmployeeDate[key]
		wanted := entity.Normalize(req.Code)
		if !ok || entity.Normalize(a.ShiftType) != wanted {
			out = append(out, SpecialRequestMissed{
				Type: "specialRequestMissed", Date: entity.FormatDate(req.Date),
				ShiftType: string(wanted), EmployeeID: req.EmployeeID,
			})
		}
	}
	return out
}

func collectAvoidPatternViolations(input entity.ScheduleInput, idx assignmentIndex) []AvoidPatternViolation {
	var out []AvoidPatternViolation
	var empIDs []string
	for id := range idx.byEmployee {
		empIDs = append(empIDs, id)
	}
	sort.Strings(empIDs)

	for _, empID := range empIDs {
		seq := idx.byEmployee[empID]
		for _, pattern := range input.TeamPattern.AvoidPatterns {
			L := len(pattern)
			if L == 0 || L > len(seq) {
				continue
			}
			for start := 0; start+L <= len(seq); start++ {
				if !contiguous(seq[start : start+L]) {
					continue
				}
				matches := true
				for k := 0; k < L; k++ {
					if entity.Normalize(seq[start+k].ShiftType) != entity.Normalize(string(pattern[k])) {
						matches = false
						break
					}
				}
				if matches {
					strPattern := make([]string, L)
					for k, c := range pattern {
						strPattern[k] = string(c)
					}
					out = append(out, AvoidPatternViolation{
						Type: "avoidPatternViolation", EmployeeID: empID,
						StartDate: entity.FormatDate(seq[start].Date), Pattern: strPattern,
					})
				}
			}
		}
	}
	return out
}

func contiguous(seq []entity.Assignment) bool {
	for i := 1; i < len(seq); i++ {
		if !adjacentDays(seq[i-1].Date, seq[i].Date) {
			return false
		}
	}
	return true
}

func adjacentDays(a, b entity.Date) bool {
	return b.Sub(a).Hours() >= 23 && b.Sub(a).Hours() <= 25
}

func teamMembership(input entity.ScheduleInput) map[string][]string {
	out := map[string][]string{}
	for _, e := range input.Employees {
		if e.TeamID != "" {
			out[e.TeamID] = append(out[e.TeamID], e.ID)
		}
	}
	return out
}

func employeeByID(input entity.ScheduleInput, id string) *entity.Employee {
	for i := range input.Employees {
		if input.Employees[i].ID == id {
			return &input.Employees[i]
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sortStaffingShortages(s []StaffingShortage) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Date != s[j].Date {
			return s[i].Date < s[j].Date
		}
		return s[i].ShiftType < s[j].ShiftType
	})
}

func sortStaffingOverages(s []StaffingOverage) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Date != s[j].Date {
			return s[i].Date < s[j].Date
		}
		return s[i].ShiftType < s[j].ShiftType
	})
}

func sortTeamCoverageGaps(s []TeamCoverageGap) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Date != s[j].Date {
			return s[i].Date < s[j].Date
		}
		if s[i].ShiftType != s[j].ShiftType {
			return s[i].ShiftType < s[j].ShiftType
		}
		return s[i].TeamID < s[j].TeamID
	})
}

func sortCareerGroupCoverageGaps(s []CareerGroupCoverageGap) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Date != s[j].Date {
			return s[i].Date < s[j].Date
		}
		if s[i].ShiftType != s[j].ShiftType {
			return s[i].ShiftType < s[j].ShiftType
		}
		return s[i].CareerGroupAlias < s[j].CareerGroupAlias
	})
}

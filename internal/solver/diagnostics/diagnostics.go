// Package diagnostics defines the typed violation records that flow between
// the solver, the postprocessor, and the caller, and re-derives them from a
// concrete assignment set so they are never stale (entity invariant I5).
package diagnostics

import "github.com/schedcu/v2/internal/entity"

// StaffingShortage records a (date, code) headcount below the minimum.
type StaffingShortage struct {
	Type      string `json:"type"`
	Date      string `json:"date"`
	ShiftType string `json:"shiftType"`
	Required  int    `json:"required"`
	Covered   int    `json:"covered"`
	Shortage  int    `json:"shortage"`
}

// StaffingOverage records a (date, code) headcount above the maximum
// envelope (the default Shift.MaxStaff-less envelope caps at the minimum
// itself — see Model.addStaffingConstraints). The solver's hard cap should
// make this unreachable out of the solver, but the postprocessor's swap
// moves don't consult that cap, so it is still worth re-deriving here.
type StaffingOverage struct {
	Type      string `json:"type"`
	Date      string `json:"date"`
	ShiftType string `json:"shiftType"`
	Max       int    `json:"max"`
	Covered   int    `json:"covered"`
	Overage   int    `json:"overage"`
}

// TeamCoverageGap records a covered (date, code) on which no member of a team is assigned.
type TeamCoverageGap struct {
	Type      string `json:"type"`
	Date      string `json:"date"`
	ShiftType string `json:"shiftType"`
	TeamID    string `json:"teamId"`
	Shortage  int    `json:"shortage"`
}

// CareerGroupCoverageGap is TeamCoverageGap's career-group analogue.
type CareerGroupCoverageGap struct {
	Type             string `json:"type"`
	Date             string `json:"date"`
	ShiftType        string `json:"shiftType"`
	CareerGroupAlias string `json:"careerGroupAlias"`
	Shortage         int    `json:"shortage"`
}

// TeamWorkloadGap records two teams' total-assignment counts differing
// beyond tolerance.
type TeamWorkloadGap struct {
	Type       string `json:"type"`
	TeamA      string `json:"teamA"`
	TeamB      string `json:"teamB"`
	Difference int    `json:"difference"`
	Tolerance  int    `json:"tolerance"`
}

// OffBalanceGap records two employees' off-day counts differing beyond
// tolerance within the same team.
type OffBalanceGap struct {
	Type       string `json:"type"`
	TeamID     string `json:"teamId"`
	EmployeeA  string `json:"employeeA"`
	EmployeeB  string `json:"employeeB"`
	Difference int    `json:"difference"`
	Tolerance  int    `json:"tolerance"`
}

// ShiftPatternBreak records either a same-code run-length excess or a
// rest-after-night violation (in which case ShiftType is formatted "N->D"
// or "N->E").
type ShiftPatternBreak struct {
	Type       string `json:"type"`
	EmployeeID string `json:"employeeId"`
	ShiftType  string `json:"shiftType"`
	StartDate  string `json:"startDate"`
	Window     int    `json:"window"`
	Excess     int    `json:"excess"`
}

// SpecialRequestMissed records a special request that the final assignments
// did not honor.
type SpecialRequestMissed struct {
	Type       string `json:"type"`
	Date       string `json:"date"`
	ShiftType  string `json:"shiftType"`
	EmployeeID string `json:"employeeId"`
}

// AvoidPatternViolation records a disallowed contiguous shift-code sequence.
type AvoidPatternViolation struct {
	Type       string `json:"type"`
	EmployeeID string `json:"employeeId"`
	StartDate  string `json:"startDate"`
	Pattern    []string `json:"pattern"`
}

// PreflightIssue is a generic structural-issue record (see preflight package
// for the concrete issue kinds).
type PreflightIssue struct {
	Type    string                 `json:"type"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// PostprocessStats summarizes one postprocessor run.
type PostprocessStats struct {
	InitialPenalty float64 `json:"initialPenalty"`
	FinalPenalty   float64 `json:"finalPenalty"`
	Iterations     int     `json:"iterations"`
	Improvements   int     `json:"improvements"`
	AcceptedWorse  int     `json:"acceptedWorse"`
	Temperature    float64 `json:"temperature"`
}

// Record is the full diagnostics bundle attached to a solve result.
type Record struct {
	StaffingShortages      []StaffingShortage       `json:"staffingShortages"`
	StaffingOverages       []StaffingOverage        `json:"staffingOverages"`
	TeamCoverageGaps       []TeamCoverageGap        `json:"teamCoverageGaps"`
	CareerGroupCoverageGaps []CareerGroupCoverageGap `json:"careerGroupCoverageGaps"`
	TeamWorkloadGaps       []TeamWorkloadGap        `json:"teamWorkloadGaps"`
	OffBalanceGaps         []OffBalanceGap          `json:"offBalanceGaps"`
	ShiftPatternBreaks     []ShiftPatternBreak      `json:"shiftPatternBreaks"`
	SpecialRequestMisses   []SpecialRequestMissed   `json:"specialRequestMisses"`
	AvoidPatternViolations []AvoidPatternViolation  `json:"avoidPatternViolations"`
	PreflightIssues        []PreflightIssue         `json:"preflightIssues"`
	Postprocess            *PostprocessStats        `json:"postprocess,omitempty"`
	SolverStatus           string                   `json:"solverStatus"`
	SolverTimedOut         bool                     `json:"solverTimedOut"`
	SolverWallTimeMs       int64                    `json:"solverWallTimeMs"`
}

// TotalViolationCount sums every violation-carrying slice (used by the
// postprocessor's priority selection and the penalty function).
func (r *Record) TotalViolationCount() int {
	return len(r.StaffingShortages) + len(r.StaffingOverages) + len(r.TeamCoverageGaps) + len(r.CareerGroupCoverageGaps) +
		len(r.TeamWorkloadGaps) + len(r.OffBalanceGaps) + len(r.ShiftPatternBreaks) +
		len(r.SpecialRequestMisses) + len(r.AvoidPatternViolations)
}

// assignmentIndex indexes assignments by (employeeId, date) for fast lookup
// during re-derivation.
type assignmentIndex struct {
	byEmployeeDate map[string]entity.Assignment
	byEmployee     map[string][]entity.Assignment
}

func buildIndex(assignments []entity.Assignment) assignmentIndex {
	idx := assignmentIndex{
		byEmployeeDate: make(map[string]entity.Assignment, len(assignments)),
		byEmployee:     make(map[string][]entity.Assignment),
	}
	for _, a := range assignments {
		key := a.EmployeeID + "|" + entity.FormatDate(a.Date)
		idx.byEmployeeDate[key] = a
		idx.byEmployee[a.EmployeeID] = append(idx.byEmployee[a.EmployeeID], a)
	}
	for _, emp := range idx.byEmployee {
		sortAssignmentsByDate(emp)
	}
	return idx
}

func sortAssignmentsByDate(a []entity.Assignment) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j].Date.Before(a[j-1].Date); j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

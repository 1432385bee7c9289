package job

import (
	"encoding/json"
	"math"
	"time"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/solver/diagnostics"
)

// assignmentPayload is the wire shape for one assignment, grounded on
// app.py's serialize_assignments.
type assignmentPayload struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	ShiftID    string `json:"shiftId"`
	ShiftType  string `json:"shiftType"`
	IsLocked   bool   `json:"isLocked"`
}

func serializeAssignments(assignments []entity.Assignment) []assignmentPayload {
	out := make([]assignmentPayload, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentPayload{
			EmployeeID: a.EmployeeID,
			Date:       entity.FormatDate(a.Date),
			ShiftID:    a.ShiftID,
			ShiftType:  string(a.ShiftType),
			IsLocked:   a.IsLocked,
		})
	}
	return out
}

// taggedViolation flattens one violation record with its discriminating
// "type" tag, matching build_solver_result's violations list.
type taggedViolation map[string]interface{}

func violationList(rec *diagnostics.Record) []taggedViolation {
	var violations []taggedViolation
	for _, v := range rec.StaffingShortages {
		violations = append(violations, taggedViolation{
			"type": "staffingShortage", "date": v.Date, "shiftType": v.ShiftType,
			"required": v.Required, "covered": v.Covered, "shortage": v.Shortage,
		})
	}
	for _, v := range rec.StaffingOverages {
		violations = append(violations, taggedViolation{
			"type": "staffingOverage", "date": v.Date, "shiftType": v.ShiftType,
			"max": v.Max, "covered": v.Covered, "overage": v.Overage,
		})
	}
	for _, v := range rec.TeamCoverageGaps {
		violations = append(violations, taggedViolation{
			"type": "teamCoverageGap", "date": v.Date, "shiftType": v.ShiftType,
			"teamId": v.TeamID, "shortage": v.Shortage,
		})
	}
	for _, v := range rec.TeamWorkloadGaps {
		violations = append(violations, taggedViolation{
			"type": "teamWorkloadGap", "teamA": v.TeamA, "teamB": v.TeamB,
			"difference": v.Difference, "tolerance": v.Tolerance,
		})
	}
	for _, v := range rec.CareerGroupCoverageGaps {
		violations = append(violations, taggedViolation{
			"type": "careerGroupCoverageGap", "date": v.Date, "shiftType": v.ShiftType,
			"careerGroupAlias": v.CareerGroupAlias, "shortage": v.Shortage,
		})
	}
	for _, v := range rec.SpecialRequestMisses {
		violations = append(violations, taggedViolation{
			"type": "specialRequestMissed", "date": v.Date, "shiftType": v.ShiftType,
			"employeeId": v.EmployeeID,
		})
	}
	for _, v := range rec.OffBalanceGaps {
		violations = append(violations, taggedViolation{
			"type": "offBalanceGap", "teamId": v.TeamID, "employeeA": v.EmployeeA,
			"employeeB": v.EmployeeB, "difference": v.Difference, "tolerance": v.Tolerance,
		})
	}
	for _, v := range rec.ShiftPatternBreaks {
		violations = append(violations, taggedViolation{
			"type": "shiftPatternBreak", "employeeId": v.EmployeeID, "shiftType": v.ShiftType,
			"startDate": v.StartDate, "window": v.Window, "excess": v.Excess,
		})
	}
	for _, v := range rec.AvoidPatternViolations {
		violations = append(violations, taggedViolation{
			"type": "avoidPatternViolation", "employeeId": v.EmployeeID,
			"startDate": v.StartDate, "pattern": v.Pattern,
		})
	}
	return violations
}

// diagnosticsPayload mirrors the §6 "diagnostics" block inside generationResult.
type diagnosticsPayload struct {
	StaffingShortages       []diagnostics.StaffingShortage       `json:"staffingShortages"`
	StaffingOverages        []diagnostics.StaffingOverage         `json:"staffingOverages"`
	TeamCoverageGaps        []diagnostics.TeamCoverageGap         `json:"teamCoverageGaps"`
	CareerGroupCoverageGaps []diagnostics.CareerGroupCoverageGap  `json:"careerGroupCoverageGaps"`
	TeamWorkloadGaps        []diagnostics.TeamWorkloadGap         `json:"teamWorkloadGaps"`
	OffBalanceGaps          []diagnostics.OffBalanceGap           `json:"offBalanceGaps"`
	ShiftPatternBreaks      []diagnostics.ShiftPatternBreak       `json:"shiftPatternBreaks"`
	SpecialRequestMisses    []diagnostics.SpecialRequestMissed    `json:"specialRequestMisses"`
	PreflightIssues         []diagnostics.PreflightIssue          `json:"preflightIssues"`
	Postprocess             *diagnostics.PostprocessStats         `json:"postprocess,omitempty"`
}

type generationResult struct {
	ComputationTime int64                      `json:"computationTime"`
	SolveStatus     string                     `json:"solveStatus"`
	SolverTimedOut  bool                       `json:"solverTimedOut"`
	Violations      []taggedViolation          `json:"violations"`
	Score           entity.ScheduleScore       `json:"score"`
	OffAccruals     []entity.OffAccrualSummary `json:"offAccruals"`
	Diagnostics     diagnosticsPayload         `json:"diagnostics"`
	Postprocess     *diagnostics.PostprocessStats `json:"postprocess,omitempty"`
}

type resultPayload struct {
	Assignments      []assignmentPayload `json:"assignments"`
	GenerationResult generationResult     `json:"generationResult"`
}

// buildResult assembles the §6 result payload from a finished solve,
// grounded on app.py:build_solver_result.
func buildResult(input entity.ScheduleInput, assignments []entity.Assignment, computation time.Duration, rec *diagnostics.Record) (map[string]interface{}, error) {
	if rec == nil {
		rec = &diagnostics.Record{}
	}

	payload := resultPayload{
		Assignments: serializeAssignments(assignments),
		GenerationResult: generationResult{
			ComputationTime: computation.Milliseconds(),
			SolveStatus:     rec.SolverStatus,
			SolverTimedOut:  rec.SolverTimedOut,
			Violations:      violationList(rec),
			Score:           scheduleScore(input, assignments, rec),
			OffAccruals:     computeOffAccruals(input, assignments),
			Diagnostics: diagnosticsPayload{
				StaffingShortages:       rec.StaffingShortages,
				StaffingOverages:        rec.StaffingOverages,
				TeamCoverageGaps:        rec.TeamCoverageGaps,
				CareerGroupCoverageGaps: rec.CareerGroupCoverageGaps,
				TeamWorkloadGaps:        rec.TeamWorkloadGaps,
				OffBalanceGaps:          rec.OffBalanceGaps,
				ShiftPatternBreaks:      rec.ShiftPatternBreaks,
				SpecialRequestMisses:    rec.SpecialRequestMisses,
				PreflightIssues:         rec.PreflightIssues,
				Postprocess:             rec.Postprocess,
			},
			Postprocess: rec.Postprocess,
		},
	}

	return toMap(payload)
}

// scheduleScore derives a 0-100 quality summary from the violation counts:
// a clean schedule scores 100 in every dimension, each violation knocks
// points off its corresponding facet. preference starts from how well
// assigned shifts match each employee's PreferredShiftTypes weights (see
// preferenceMatchScore), then special-request misses knock further points
// off that base — matching the model builder's own preference objective
// term (Model.initPreferencePenalties), so the reported score and the
// objective being minimized agree on what "preference" means.
func scheduleScore(input entity.ScheduleInput, assignments []entity.Assignment, rec *diagnostics.Record) entity.ScheduleScore {
	coverage := deduct(100, len(rec.StaffingShortages)+len(rec.StaffingOverages)+len(rec.TeamCoverageGaps)+len(rec.CareerGroupCoverageGaps), 5)
	fairness := deduct(100, len(rec.TeamWorkloadGaps)+len(rec.OffBalanceGaps), 5)
	preference := deduct(preferenceMatchScore(input, assignments), len(rec.SpecialRequestMisses), 10)
	constraintSatisfaction := deduct(100, len(rec.ShiftPatternBreaks)+len(rec.AvoidPatternViolations), 5)
	total := (coverage + fairness + preference + constraintSatisfaction) / 4
	return entity.ScheduleScore{
		Total:                  total,
		Fairness:               fairness,
		Preference:             preference,
		Coverage:               coverage,
		ConstraintSatisfaction: constraintSatisfaction,
		Breakdown: map[string]float64{
			"coverage":               coverage,
			"fairness":               fairness,
			"preference":             preference,
			"constraintSatisfaction": constraintSatisfaction,
		},
	}
}

// preferenceMatchScore averages, over every working (non-O/V) assignment of
// an employee who declared PreferredShiftTypes, the declared weight for the
// code they actually got (0 when the code isn't in their map), scaled to
// 0-100. Employees with no declared preferences don't pull the average down;
// an entirely unpreferenced roster scores a neutral 100, same as today.
func preferenceMatchScore(input entity.ScheduleInput, assignments []entity.Assignment) float64 {
	byID := make(map[string]entity.Employee, len(input.Employees))
	for _, e := range input.Employees {
		byID[e.ID] = e
	}

	var weightedSum float64
	var count float64
	for _, a := range assignments {
		if a.ShiftType == string(entity.CodeOff) || a.ShiftType == string(entity.CodeVac) {
			continue
		}
		emp, ok := byID[a.EmployeeID]
		if !ok || len(emp.PreferredShiftTypes) == 0 {
			continue
		}
		weight := emp.PreferredShiftTypes[a.ShiftType]
		clamped := math.Max(0, math.Min(1, weight))
		weightedSum += clamped * 100
		count++
	}
	if count == 0 {
		return 100
	}
	return weightedSum / count
}

func deduct(base float64, count, penaltyPerHit int) float64 {
	score := base - float64(count*penaltyPerHit)
	if score < 0 {
		return 0
	}
	return score
}

// toMap round-trips v through JSON to get the map[string]interface{} shape
// the job repository and HTTP layer expect, the same way the Python service
// returns a plain dict built from Pydantic models.
func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

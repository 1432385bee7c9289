package entity

import (
	"time"

	"github.com/google/uuid"
)

// Type aliases for domain IDs and temporal types. Employee/shift/department
// identifiers are opaque strings supplied by the caller; only the async job
// record gets a server-generated UUID.
type (
	EmployeeID        = string
	ShiftID           = string
	DepartmentID      = string
	TeamID            = string
	CareerGroupAlias  = string
	ShiftCode         = string
	JobID             = uuid.UUID
	Date              = time.Time
)

// Now returns the current time truncated to UTC, matching the rest of the
// pack's timestamp convention.
func Now() time.Time {
	return time.Now().UTC()
}

// NowPtr is Now but returns a pointer, for optional timestamp fields.
func NowPtr() *time.Time {
	now := Now()
	return &now
}

// IntPtr returns a pointer to v, for optional-int fields (Shift.MinStaff,
// Shift.MaxStaff, CSPSettings.TabuSize) where nil and zero carry different
// meanings.
func IntPtr(v int) *int {
	return &v
}

// WorkPatternType classifies how an employee's allowed shifts are restricted.
type WorkPatternType string

const (
	WorkPatternThreeShift    WorkPatternType = "three-shift"
	WorkPatternNightIntensive WorkPatternType = "night-intensive"
	WorkPatternWeekdayOnly   WorkPatternType = "weekday-only"
)

// Canonical shift codes. OFF is an alias of O, collapsed by Normalize.
const (
	CodeDay   ShiftCode = "D"
	CodeEve   ShiftCode = "E"
	CodeNight ShiftCode = "N"
	CodeOff   ShiftCode = "O"
	CodeAdmin ShiftCode = "A"
	CodeVac   ShiftCode = "V"
)

// Employee is a staffing unit participating in the roster.
type Employee struct {
	ID                          EmployeeID
	TeamID                      TeamID
	WorkPatternType             WorkPatternType
	CareerGroupAlias            CareerGroupAlias
	PreferredShiftTypes         map[ShiftCode]float64
	MaxConsecutiveDaysPreferred int
	MaxConsecutiveNightsPreferred int
}

// Shift describes one shift code's staffing envelope.
type Shift struct {
	ID            ShiftID
	Code          ShiftCode
	RequiredStaff int
	MinStaff      *int
	MaxStaff      *int
}

// SpecialRequest is a soft (or locking, when V) per-day target for one employee.
type SpecialRequest struct {
	EmployeeID EmployeeID
	Date       Date
	Code       ShiftCode
}

// Holiday marks a date as weekend-equivalent for coverage/off accrual purposes.
type Holiday struct {
	Date Date
}

// TeamPattern carries the sequences of shift codes that must never appear as
// a contiguous run in any one employee's schedule.
type TeamPattern struct {
	AvoidPatterns [][]ShiftCode
}

// CareerGroup is reporting/aliasing metadata for a career-group partition.
type CareerGroup struct {
	Alias   CareerGroupAlias
	Members []EmployeeID
}

// ConstraintWeights scales the base penalty of each soft-constraint family.
// Zero values are treated as unset and default to 1.0, floored at 0.1.
type ConstraintWeights struct {
	Staffing     float64
	TeamBalance  float64
	CareerBalance float64
	OffBalance   float64
	ShiftPattern float64
}

// AnnealingSettings configures the postprocessor's simulated-annealing
// acceptance of non-improving moves.
type AnnealingSettings struct {
	Temperature float64
	CoolingRate float64
}

// CSPSettings configures the postprocessor's local-search loop. TabuSize is
// a pointer so an explicit 0 ("disable the tabu list") is distinguishable
// from an unset field ("use the postprocessor's default of 32") — every
// other knob here collapses <= 0 to its default since 0 is never a
// meaningful explicit value for them, but a tabu list of size 0 is a real,
// requestable configuration (no recently-applied swap is ever forbidden).
type CSPSettings struct {
	OffTolerance           int
	MaxSameShift           int
	TabuSize               *int
	TimeLimitMs            int
	MaxIterations          int
	ShiftBalanceTolerance  int
	Annealing              AnnealingSettings
}

// PatternConstraints carries global overrides applied before cloning for a
// solve attempt.
type PatternConstraints struct {
	MaxConsecutiveDaysThreeShift int
}

// MultiRunSettings configures the orchestrator's ensemble of perturbed
// restarts.
type MultiRunSettings struct {
	Attempts       int
	WeightJitterPct float64
	Seed           *int64
}

// Options is the tunable envelope threaded through model building,
// postprocessing, and orchestration.
type Options struct {
	ConstraintWeights  ConstraintWeights
	CSPSettings        CSPSettings
	PatternConstraints PatternConstraints
	MultiRun           MultiRunSettings
	MaxSolveTimeMs     int
	Solver             string // "cpsat" | "ortools" | "hybrid" | ""
}

// ScheduleInput is the root aggregate consumed by the engine. It is treated
// as immutable for the duration of one solve; the orchestrator clones it
// (see Clone) before mutating weights for relaxation or jitter.
type ScheduleInput struct {
	DepartmentID                DepartmentID
	StartDate                   Date
	EndDate                     Date
	Employees                   []Employee
	Shifts                      []Shift
	SpecialRequests             []SpecialRequest
	Holidays                    []Holiday
	TeamPattern                 TeamPattern
	RequiredStaffPerShift       map[ShiftCode]int
	PreviousOffAccruals         map[EmployeeID]int
	NightIntensivePaidLeaveDays int
	CareerGroups                []CareerGroup
	Options                     Options
}

// Assignment is the only mutable entity once solving begins: exactly one
// exists per (EmployeeID, Date) in the schedule window.
type Assignment struct {
	EmployeeID EmployeeID
	Date       Date
	ShiftID    ShiftID
	ShiftType  ShiftCode
	IsLocked   bool
}

// OffAccrualSummary reports guaranteed vs. actual off-day counts per employee.
type OffAccrualSummary struct {
	EmployeeID       EmployeeID
	GuaranteedOffDays int
	ActualOffDays     int
	ExtraOffDays      int
}

// ScheduleScore is the result's headline quality summary.
type ScheduleScore struct {
	Total                 float64
	Fairness               float64
	Preference             float64
	Coverage               float64
	ConstraintSatisfaction float64
	Breakdown              map[string]float64
}

// DefaultRequiredStaffPerShift are merged into any input-supplied map for
// codes the caller did not specify.
func DefaultRequiredStaffPerShift() map[ShiftCode]int {
	return map[ShiftCode]int{
		CodeDay:   5,
		CodeEve:   4,
		CodeNight: 3,
	}
}

// DefaultConstraintWeight replaces an unset (zero) constraint weight.
const DefaultConstraintWeight = 1.0

// MinConstraintWeight is the absolute floor a weight may be relaxed to.
const MinConstraintWeight = 0.1

// EffectiveWeight returns w, defaulted to 1.0 when zero and floored at 0.1.
func EffectiveWeight(w float64) float64 {
	if w == 0 {
		w = DefaultConstraintWeight
	}
	if w < MinConstraintWeight {
		return MinConstraintWeight
	}
	return w
}

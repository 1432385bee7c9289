package entity

import "time"

// DateRange returns every date in [start, end], inclusive, one per day.
func DateRange(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	var out []Date
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// ValidateDateRange ensures end is on or after start.
func ValidateDateRange(start, end Date) error {
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

// Clone returns a deep, structural copy of the schedule input. The
// orchestrator clones per attempt so that weight jitter and relaxation never
// mutate a shared options map between attempts (see SPEC_FULL.md §9 "deep
// copying the schedule per attempt").
func (s ScheduleInput) Clone() ScheduleInput {
	out := s

	out.Employees = make([]Employee, len(s.Employees))
	for i, e := range s.Employees {
		out.Employees[i] = e
		if e.PreferredShiftTypes != nil {
			out.Employees[i].PreferredShiftTypes = make(map[ShiftCode]float64, len(e.PreferredShiftTypes))
			for k, v := range e.PreferredShiftTypes {
				out.Employees[i].PreferredShiftTypes[k] = v
			}
		}
	}

	out.Shifts = append([]Shift(nil), s.Shifts...)
	out.SpecialRequests = append([]SpecialRequest(nil), s.SpecialRequests...)
	out.Holidays = append([]Holiday(nil), s.Holidays...)

	out.TeamPattern.AvoidPatterns = make([][]ShiftCode, len(s.TeamPattern.AvoidPatterns))
	for i, p := range s.TeamPattern.AvoidPatterns {
		out.TeamPattern.AvoidPatterns[i] = append([]ShiftCode(nil), p...)
	}

	out.RequiredStaffPerShift = cloneIntMap(s.RequiredStaffPerShift)
	out.PreviousOffAccruals = cloneIntMap(s.PreviousOffAccruals)

	out.CareerGroups = make([]CareerGroup, len(s.CareerGroups))
	for i, g := range s.CareerGroups {
		out.CareerGroups[i] = CareerGroup{Alias: g.Alias, Members: append([]EmployeeID(nil), g.Members...)}
	}

	out.Options = s.Options.Clone()
	return out
}

// Clone returns a deep copy of Options so callers can mutate weights and
// CSP settings per relaxation attempt without aliasing the original.
func (o Options) Clone() Options {
	out := o
	if o.MultiRun.Seed != nil {
		seed := *o.MultiRun.Seed
		out.MultiRun.Seed = &seed
	}
	if o.CSPSettings.TabuSize != nil {
		tabu := *o.CSPSettings.TabuSize
		out.CSPSettings.TabuSize = &tabu
	}
	return out
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ParseDate parses a "YYYY-MM-DD" date string as a UTC midnight Date.
func ParseDate(s string) (Date, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// FormatDate renders d as "YYYY-MM-DD".
func FormatDate(d Date) string {
	return d.Format("2006-01-02")
}

package entity

import "strings"

// Normalize strips '^' request markers and upper-cases a raw shift code,
// collapsing the OFF alias onto O.
func Normalize(code string) ShiftCode {
	u := strings.ToUpper(strings.ReplaceAll(code, "^", ""))
	if u == "OFF" {
		return CodeOff
	}
	return ShiftCode(u)
}

// IsWeekendOrHoliday reports whether d falls on a Saturday, Sunday, or in
// the holidays set.
func IsWeekendOrHoliday(d Date, holidays []Holiday) bool {
	wd := d.Weekday()
	if wd == 0 || wd == 6 {
		return true
	}
	for _, h := range holidays {
		if sameDay(h.Date, d) {
			return true
		}
	}
	return false
}

func sameDay(a, b Date) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsShiftAllowed implements the allowed-shift relation (see §4.3): given an
// employee, a date, and a raw shift code, reports whether assigning that
// code on that date is structurally permitted.
func IsShiftAllowed(e Employee, d Date, code string, holidays []Holiday) bool {
	u := Normalize(code)
	if u == CodeVac {
		return true
	}
	switch e.WorkPatternType {
	case WorkPatternNightIntensive:
		return u == CodeNight || u == CodeOff || u == CodeVac
	case WorkPatternWeekdayOnly:
		if IsWeekendOrHoliday(d, holidays) {
			return u == CodeOff || u == CodeVac
		}
		return u == CodeAdmin || u == CodeVac
	default: // three-shift and unrecognized patterns
		return u != CodeAdmin
	}
}

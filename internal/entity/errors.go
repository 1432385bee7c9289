package entity

import "errors"

// Domain-specific errors
var (
	ErrInvalidDateRange   = errors.New("invalid date range: end date must be on or after start date")
	ErrEmptyScheduleInput = errors.New("schedule input has no employees or no date range")
	ErrUnknownShiftCode   = errors.New("unknown shift code")
	ErrUnknownWorkPattern = errors.New("unknown work pattern type")
)

// ValidateWorkPatternType reports whether s names a recognized work pattern.
func ValidateWorkPatternType(s string) bool {
	switch WorkPatternType(s) {
	case WorkPatternThreeShift, WorkPatternNightIntensive, WorkPatternWeekdayOnly:
		return true
	default:
		return false
	}
}

package engine

import (
	"vigil/internal/clock"
	"vigil/internal/models"
)

// Validation error kinds returned by ValidateBreak. These are expected
// user-input failures; handlers map them to inline messages.
const (
	ErrInvalidRange     = "invalid_range"
	ErrStartInPast      = "start_in_past"
	ErrOverlappingBreak = "overlapping_break"
)

// LongBreakWarning is advisory only and never blocks submission.
const LongBreakWarning = "long_break"

// ValidationResult is the typed outcome of break validation.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	ErrorKind string `json:"error_kind,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

func invalid(kind string) ValidationResult {
	return ValidationResult{Valid: false, ErrorKind: kind}
}

// ValidateBreak decides whether a proposed break range is legal against the
// supplied snapshot of the sender's existing breaks. All dates are canonical
// "YYYY-MM-DD" strings, which order correctly under string comparison. The
// rules run in a fixed order: range validity, start-not-in-past (calendar
// dates only, so a break may start today regardless of the time of day),
// then overlap against every scheduled or active break. A valid range longer
// than 365 days gets LongBreakWarning but stays valid.
func ValidateBreak(proposedStart, proposedEnd, today string, existing []models.Break) ValidationResult {
	start, err := clock.ParseDate(proposedStart)
	if err != nil {
		return invalid(ErrInvalidRange)
	}
	end, err := clock.ParseDate(proposedEnd)
	if err != nil {
		return invalid(ErrInvalidRange)
	}

	if proposedEnd < proposedStart {
		return invalid(ErrInvalidRange)
	}
	if proposedStart < today {
		return invalid(ErrStartInPast)
	}

	for _, b := range existing {
		status := BreakStatusOn(b, today)
		if status != models.BreakScheduled && status != models.BreakActive {
			continue
		}
		// Inclusive ranges overlap in all four relative positions; adjacent
		// but disjoint ranges do not.
		if proposedStart <= b.EndDate && b.StartDate <= proposedEnd {
			return invalid(ErrOverlappingBreak)
		}
	}

	result := ValidationResult{Valid: true}
	if clock.DaysBetween(start, end) > 365 {
		result.Warning = LongBreakWarning
	}
	return result
}

// BreakStatusOn derives a break's status from today's date. Canceled is
// terminal and overrides the date-derived answer.
func BreakStatusOn(b models.Break, today string) string {
	if b.Status == models.BreakCanceled {
		return models.BreakCanceled
	}
	switch {
	case today < b.StartDate:
		return models.BreakScheduled
	case today > b.EndDate:
		return models.BreakCompleted
	default:
		return models.BreakActive
	}
}

// IsSuppressing reports whether any scheduled or active break covers the
// given date. A scheduled break starting today suppresses today.
func IsSuppressing(date string, breaks []models.Break) bool {
	for _, b := range breaks {
		status := BreakStatusOn(b, date)
		if status != models.BreakScheduled && status != models.BreakActive {
			continue
		}
		if b.StartDate <= date && date <= b.EndDate {
			return true
		}
	}
	return false
}

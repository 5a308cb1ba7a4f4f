package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the textual day format used by events and persisted documents.
const DateLayout = "02/01/2006"

// ErrInvalidDate is returned when a value cannot be parsed with DateLayout.
var ErrInvalidDate = errors.New("scheduler: invalid date")

// DateError reports the offending text of a failed date parse.
type DateError struct {
	Value string
}

// Error implements the error interface.
func (e *DateError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid date %q: expected DD/MM/YYYY", e.Value)
}

// Is reports whether target is ErrInvalidDate.
func (e *DateError) Is(target error) bool {
	return target == ErrInvalidDate
}

// ParseDate parses a DD/MM/YYYY value into midnight UTC of that day.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	day, err := time.ParseInLocation(DateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, &DateError{Value: value}
	}
	return day, nil
}

// FormatDate renders the calendar day of t with DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to the calendar day it falls on, keeping the wall clock date
// of t's own location and expressing the result as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b. Both values are
// expected to be results of Day or ParseDate.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

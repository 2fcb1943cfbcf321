package timesheet

import (
	"fmt"
)

// =============================================================================
// CLOCK TIME - Minute-of-day wall clock value
// =============================================================================

// ClockTime is a wall-clock time of day with minute precision, stored as
// minutes since midnight. It deliberately carries no date: midnight rollover
// is resolved by the working-hours computation, not by the value itself.
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime builds a ClockTime, validating the range.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %02d:%02d", hour, minute)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// ParseClockTime parses "HH:MM" (24-hour).
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}
	return NewClockTime(h, m)
}

// MustClockTime is a test/fixture helper; it panics on invalid input.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) MinuteOfDay() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Ptr returns a pointer copy, convenient for the optional clock fields on
// DailyRecord.
func (c ClockTime) Ptr() *ClockTime { return &c }

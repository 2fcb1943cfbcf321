/*
Package timesheet implements time accounting: turning one day's raw
clock-in/out record into a billable working-hours figure.

PURPOSE:
  This is the leaf package of the payroll engine. It knows nothing about
  contracts, money, or approval state — it only converts attendance facts
  (clock times, break minutes, attendance category) into hours under a
  client-specific rounding policy.

KEY CONCEPTS IN THIS FILE (types.go):
  - DailyRecord: one calendar day of attendance for one contract
  - Category:    attendance classification (normal, leave, absence, ...)
  - BreakMinutes: the three break buckets (lunch / evening / other)
  - Typed IDs:   ContractID, PersonID, ClientID, RecordID

DESIGN PRINCIPLES:
  1. Derivation: working hours are computed, never stored on the record,
     so edits to times or breaks always change the effective hours
  2. Precision: decimal.Decimal for hours, no floating-point drift
  3. Purity: hour computation is a function of the record plus an
     explicitly injected RoundingPolicy

SEE ALSO:
  - clock.go:    ClockTime and the minute-of-day arithmetic
  - rounding.go: RoundingPolicy (unit size + mode) and its default
  - yearmonth.go: the YearMonth period key used by submissions
*/
package timesheet

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContractID string
type PersonID string
type ClientID string
type RecordID string

// =============================================================================
// ATTENDANCE CATEGORY
// =============================================================================

type Category string

const (
	CategoryNormal     Category = "normal"
	CategoryPaidLeave  Category = "paid_leave"
	CategorySickLeave  Category = "sick_leave"
	CategoryAbsence    Category = "absence"
	CategoryLate       Category = "late"
	CategoryEarlyLeave Category = "early_leave"
)

// ValidCategory reports whether c is one of the known attendance categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryNormal, CategoryPaidLeave, CategorySickLeave,
		CategoryAbsence, CategoryLate, CategoryEarlyLeave:
		return true
	}
	return false
}

// IsLeave reports whether the category is a leave day (paid or sick).
func (c Category) IsLeave() bool {
	return c == CategoryPaidLeave || c == CategorySickLeave
}

// =============================================================================
// BREAKS
// =============================================================================

// BreakMinutes holds the three break buckets of a working day, in minutes.
type BreakMinutes struct {
	Lunch   int
	Evening int
	Other   int
}

func (b BreakMinutes) Total() int { return b.Lunch + b.Evening + b.Other }

// Valid reports whether no bucket is negative.
func (b BreakMinutes) Valid() bool {
	return b.Lunch >= 0 && b.Evening >= 0 && b.Other >= 0
}

// =============================================================================
// DAILY RECORD
// =============================================================================

// DailyRecord is one calendar day of attendance for one contract.
// At most one record exists per (contract, work date); the store enforces
// this with a unique index.
type DailyRecord struct {
	ID         RecordID
	ContractID ContractID
	WorkDate   time.Time // date only, UTC midnight

	// Optional clock times. A record with either missing yields zero hours.
	ClockIn  *ClockTime
	ClockOut *ClockTime

	Breaks   BreakMinutes
	Category Category
	Remark   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingHours derives the day's billable hours under the given rounding
// policy. Missing clock-in or clock-out yields zero; no partial computation
// is attempted. The result is never negative.
func (r *DailyRecord) WorkingHours(policy RoundingPolicy) decimal.Decimal {
	return WorkingHours(r.ClockIn, r.ClockOut, r.Breaks, policy)
}

// WorkingHours is the pure form of the day computation:
//
//  1. Convert in/out to minute-of-day; clock-out earlier than clock-in means
//     the shift crossed midnight, so a full day is added.
//  2. Subtract all break minutes.
//  3. Apply the rounding policy.
//  4. Clamp to zero (breaks can exceed the shift).
func WorkingHours(in, out *ClockTime, breaks BreakMinutes, policy RoundingPolicy) decimal.Decimal {
	if in == nil || out == nil {
		return decimal.Zero
	}

	startMin := in.MinuteOfDay()
	endMin := out.MinuteOfDay()
	if endMin < startMin {
		endMin += 24 * 60 // shift crossed midnight
	}

	rawMinutes := endMin - startMin - breaks.Total()
	rawHours := decimal.NewFromInt(int64(rawMinutes)).Div(decimal.NewFromInt(60))

	rounded := policy.Apply(rawHours)
	if rounded.IsNegative() {
		return decimal.Zero
	}
	return rounded
}

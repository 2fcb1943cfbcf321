/*
Package billing implements the payroll calculator: converting a month's
actual working hours into a contractually correct billing amount.

PURPOSE:
  A Contract carries the commercial terms of one engagement — a monthly
  base amount plus optional guaranteed / overtime / shortfall thresholds.
  MonthlyPayment evaluates those tiers in a fixed order and returns a
  typed breakdown, so submit-time and display-time computation can never
  drift apart.

TIER ORDER (MonthlyPayment):
  1. Guaranteed-hours: below the guarantee the full base is still owed
     and the shortfall tier is skipped
  2. Overtime: hours above the ceiling, less the free-overtime allowance,
     billed at hourly rate x overtime multiplier
  3. Shortfall: hours below the floor deducted at
     hourly rate x (1 - shortfall multiplier)
  4. total = base + overtime - deduction

  All rates apply to the implied hourly rate
  (unit price / standard working hours); a contract with no thresholds is
  a flat monthly fee and always returns total == base.

SEE ALSO:
  - payment.go: Payment breakdown type and the tier evaluation
  - timesheet:  produces the actual-hours figure this package consumes
*/
package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sesflow/payroll-engine/timesheet"
)

// ErrStandardHoursRequired is returned when a contract's standard working
// hours are missing or non-positive. The value is the divisor for the
// implied hourly rate, so no calculation is possible without it.
var ErrStandardHoursRequired = errors.New("contract standard working hours must be positive")

// Contract is the billing agreement governing a person's engagement.
// It is read-only from the engine's perspective; amendments happen
// elsewhere.
type Contract struct {
	ID       timesheet.ContractID
	ClientID timesheet.ClientID
	PersonID timesheet.PersonID

	// UnitPrice is the monthly base amount.
	UnitPrice decimal.Decimal

	// StandardWorkingHours is the monthly norm; the implied hourly rate
	// is UnitPrice / StandardWorkingHours. Must be positive.
	StandardWorkingHours decimal.Decimal

	// Optional monthly thresholds. Nil means the tier does not apply.
	MinWorkingHours    *decimal.Decimal
	MaxWorkingHours    *decimal.Decimal
	MinGuaranteedHours *decimal.Decimal

	// FreeOvertimeHours is the overage allowance not billed as overtime.
	FreeOvertimeHours decimal.Decimal

	// Rate multipliers against the implied hourly rate.
	OvertimeRate decimal.Decimal
	ShortageRate decimal.Decimal

	StartDate time.Time
	EndDate   time.Time
}

// Validate checks the invariants this engine depends on.
func (c *Contract) Validate() error {
	if !c.StandardWorkingHours.IsPositive() {
		return ErrStandardHoursRequired
	}
	return nil
}

// HourlyRate returns the implied hourly rate.
func (c *Contract) HourlyRate() (decimal.Decimal, error) {
	if err := c.Validate(); err != nil {
		return decimal.Zero, err
	}
	return c.UnitPrice.Div(c.StandardWorkingHours), nil
}

// ActiveOn reports whether the date falls within the contract period.
// Zero boundary dates are treated as open-ended.
func (c *Contract) ActiveOn(date time.Time) bool {
	if !c.StartDate.IsZero() && date.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && date.After(c.EndDate) {
		return false
	}
	return true
}

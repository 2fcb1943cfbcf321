package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT BREAKDOWN
// =============================================================================

// Payment is the monthly billing result. Monetary fields are quantized to
// whole currency units; hour fields keep one decimal place.
type Payment struct {
	ActualHours decimal.Decimal `json:"actual_hours"`

	BasePayment       decimal.Decimal `json:"base_payment"`
	OvertimePayment   decimal.Decimal `json:"overtime_payment"`
	ShortageDeduction decimal.Decimal `json:"shortage_deduction"`
	TotalPayment      decimal.Decimal `json:"total_payment"`

	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	ShortageHours decimal.Decimal `json:"shortage_hours"`

	// Details is the human-readable calculation trace kept with the
	// snapshot for audit display.
	Details []string `json:"details"`
}

// MonthlyPayment evaluates the contract's tiers against the month's actual
// hours. The tiers are evaluated in a fixed order; see the package comment.
func (c *Contract) MonthlyPayment(actualHours decimal.Decimal) (*Payment, error) {
	hourlyRate, err := c.HourlyRate()
	if err != nil {
		return nil, err
	}

	p := &Payment{
		ActualHours:       actualHours,
		BasePayment:       c.UnitPrice.Round(0),
		OvertimePayment:   decimal.Zero,
		ShortageDeduction: decimal.Zero,
		OvertimeHours:     decimal.Zero,
		ShortageHours:     decimal.Zero,
	}
	p.Details = append(p.Details, fmt.Sprintf("base: %s", p.BasePayment))

	// 1. Guaranteed-hours tier: below the guarantee the full base is owed
	//    and the shortfall tier never fires.
	guaranteed := c.MinGuaranteedHours != nil && actualHours.LessThan(*c.MinGuaranteedHours)
	if guaranteed {
		p.Details = append(p.Details, fmt.Sprintf(
			"guaranteed: %sh < %sh minimum, full base retained",
			actualHours, *c.MinGuaranteedHours))
	}

	// 2. Overtime tier.
	if c.MaxWorkingHours != nil && actualHours.GreaterThan(*c.MaxWorkingHours) {
		billable := actualHours.Sub(*c.MaxWorkingHours).Sub(c.FreeOvertimeHours)
		if billable.IsPositive() {
			p.OvertimeHours = billable
			p.OvertimePayment = hourlyRate.Mul(billable).Mul(c.OvertimeRate).Round(0)
			p.Details = append(p.Details, fmt.Sprintf(
				"overtime: %sh x %s/h x %s = %s",
				billable, hourlyRate.Round(2), c.OvertimeRate, p.OvertimePayment))
		}
	}

	// 3. Shortfall tier, unless the guarantee already covered the month.
	if !guaranteed && c.MinWorkingHours != nil && actualHours.LessThan(*c.MinWorkingHours) {
		shortage := c.MinWorkingHours.Sub(actualHours)
		factor := decimal.NewFromInt(1).Sub(c.ShortageRate)
		p.ShortageHours = shortage
		p.ShortageDeduction = hourlyRate.Mul(shortage).Mul(factor).Round(0)
		p.Details = append(p.Details, fmt.Sprintf(
			"shortfall: %sh x %s/h x (1 - %s) = %s",
			shortage, hourlyRate.Round(2), c.ShortageRate, p.ShortageDeduction))
	}

	// 4. Total.
	p.TotalPayment = p.BasePayment.Add(p.OvertimePayment).Sub(p.ShortageDeduction)
	p.Details = append(p.Details, fmt.Sprintf("total: %s", p.TotalPayment))

	return p, nil
}

// DayOvertime is the cheap day-scoped overage signal used for display and
// alerts only: max(0, dayHours - free overtime allowance). It carries none
// of the monthly guaranteed/max-hours logic and must not be confused with
// the billing overtime tier.
func (c *Contract) DayOvertime(dayHours decimal.Decimal) decimal.Decimal {
	over := dayHours.Sub(c.FreeOvertimeHours)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

package submission

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sesflow/payroll-engine/billing"
	"github.com/sesflow/payroll-engine/timesheet"
)

// =============================================================================
// MONTHLY AGGREGATE - The snapshot value
// =============================================================================

// MonthlyAggregate is the typed monthly total. It is produced in exactly
// one place (BuildAggregate, called from the workflow) so submit-time and
// display-time figures can never drift apart. Once a submission is
// approved, its stored aggregate — not a live recomputation — is what
// reporting reads.
type MonthlyAggregate struct {
	YearMonth string `json:"year_month"`

	TotalHours decimal.Decimal `json:"total_hours"`

	WorkingDays    int `json:"working_days"`
	LeaveDays      int `json:"leave_days"`
	AbsenceDays    int `json:"absence_days"`
	LateDays       int `json:"late_days"`
	EarlyLeaveDays int `json:"early_leave_days"`
	TotalDays      int `json:"total_days"`

	// Payment is the contract billing result for the month. Nil when the
	// person had no contract covering the month (hours recorded against a
	// lapsed engagement are still aggregated for display).
	Payment *billing.Payment `json:"payment,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// PolicyResolver returns the rounding policy for a contract. Implementations
// must fail soft: when the client configuration cannot be resolved they
// return the default policy, never an error.
type PolicyResolver func(timesheet.ContractID) timesheet.RoundingPolicy

// BuildAggregate folds a month of daily records into one aggregate.
// Hours are derived per record under that record's contract policy; a month
// with zero records aggregates to zero hours and zero day counts.
func BuildAggregate(ym timesheet.YearMonth, records []timesheet.DailyRecord, policyFor PolicyResolver) MonthlyAggregate {
	agg := MonthlyAggregate{
		YearMonth:  ym.String(),
		TotalHours: decimal.Zero,
		ComputedAt: time.Now().UTC(),
	}

	for i := range records {
		rec := &records[i]
		agg.TotalHours = agg.TotalHours.Add(rec.WorkingHours(policyFor(rec.ContractID)))
		agg.TotalDays++

		switch rec.Category {
		case timesheet.CategoryNormal:
			agg.WorkingDays++
		case timesheet.CategoryPaidLeave, timesheet.CategorySickLeave:
			agg.LeaveDays++
		case timesheet.CategoryAbsence:
			agg.AbsenceDays++
		case timesheet.CategoryLate:
			agg.LateDays++
		case timesheet.CategoryEarlyLeave:
			agg.EarlyLeaveDays++
		}
	}

	return agg
}

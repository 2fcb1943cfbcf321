package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sesflow/payroll-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func dp(f float64) *decimal.Decimal {
	v := decimal.NewFromFloat(f)
	return &v
}

// sesContract mirrors a typical engagement: 800,000/month against a
// 160-hour norm with a 140-180 settlement band.
func sesContract() *billing.Contract {
	return &billing.Contract{
		ID:                   "ct-1",
		ClientID:             "cl-1",
		PersonID:             "p-1",
		UnitPrice:            d(800000),
		StandardWorkingHours: d(160),
		MinWorkingHours:      dp(140),
		MaxWorkingHours:      dp(180),
		FreeOvertimeHours:    d(10),
		OvertimeRate:         d(1.25),
		ShortageRate:         d(0.8),
	}
}

// =============================================================================
// MONTHLY PAYMENT TIERS
// =============================================================================

func TestMonthlyPayment_FlatFeeContract(t *testing.T) {
	// GIVEN: a contract with no min/max/guaranteed thresholds
	// THEN: total == base for any hours figure; hours are informational only

	c := &billing.Contract{
		UnitPrice:            d(600000),
		StandardWorkingHours: d(160),
		OvertimeRate:         d(1.25),
		ShortageRate:         d(1.0),
	}

	for _, h := range []float64{0, 80, 160, 250} {
		p, err := c.MonthlyPayment(d(h))
		if err != nil {
			t.Fatalf("unexpected error at %vh: %v", h, err)
		}
		if !p.TotalPayment.Equal(d(600000)) {
			t.Errorf("at %vh: total = %v, want 600000", h, p.TotalPayment)
		}
		if !p.OvertimePayment.IsZero() || !p.ShortageDeduction.IsZero() {
			t.Errorf("at %vh: unexpected adjustments %v / %v", h, p.OvertimePayment, p.ShortageDeduction)
		}
	}
}

func TestMonthlyPayment_OvertimeTier(t *testing.T) {
	// GIVEN: unit 800000, standard 160h, max 180h, free overtime 10h, rate 1.25
	// WHEN: 200 actual hours
	// THEN: billable = 200-180-10 = 10h; hourly = 5000; overtime = 62500

	c := sesContract()
	p, err := c.MonthlyPayment(d(200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.OvertimeHours.Equal(d(10)) {
		t.Errorf("overtime hours = %v, want 10", p.OvertimeHours)
	}
	if !p.OvertimePayment.Equal(d(62500)) {
		t.Errorf("overtime payment = %v, want 62500", p.OvertimePayment)
	}
	if !p.TotalPayment.Equal(d(862500)) {
		t.Errorf("total = %v, want 862500", p.TotalPayment)
	}
	if !p.ShortageDeduction.IsZero() {
		t.Errorf("unexpected shortage deduction %v", p.ShortageDeduction)
	}
}

func TestMonthlyPayment_OvertimeSwallowedByFreeHours(t *testing.T) {
	// 185 hours is over the 180h ceiling but within the 10h free allowance.
	c := sesContract()
	p, err := c.MonthlyPayment(d(185))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.OvertimePayment.IsZero() {
		t.Errorf("overtime payment = %v, want 0 (within free hours)", p.OvertimePayment)
	}
	if !p.TotalPayment.Equal(d(800000)) {
		t.Errorf("total = %v, want 800000", p.TotalPayment)
	}
}

func TestMonthlyPayment_ShortfallTier(t *testing.T) {
	// GIVEN: min 140h, shortage rate 0.8 => deduction factor (1 - 0.8) = 0.2
	// WHEN: 130 actual hours
	// THEN: shortage 10h x 5000/h x 0.2 = 10000 deducted

	c := sesContract()
	p, err := c.MonthlyPayment(d(130))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.ShortageHours.Equal(d(10)) {
		t.Errorf("shortage hours = %v, want 10", p.ShortageHours)
	}
	if !p.ShortageDeduction.Equal(d(10000)) {
		t.Errorf("shortage deduction = %v, want 10000", p.ShortageDeduction)
	}
	if !p.TotalPayment.Equal(d(790000)) {
		t.Errorf("total = %v, want 790000", p.TotalPayment)
	}
}

func TestMonthlyPayment_GuaranteeSuppressesShortfall(t *testing.T) {
	// GIVEN: a guarantee at 120h and a floor at 140h
	// WHEN: 100 actual hours (below both)
	// THEN: full base is owed and no deduction occurs

	c := sesContract()
	c.MinGuaranteedHours = dp(120)

	p, err := c.MonthlyPayment(d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.ShortageDeduction.IsZero() {
		t.Errorf("shortage deduction = %v, want 0 under guarantee", p.ShortageDeduction)
	}
	if !p.TotalPayment.Equal(d(800000)) {
		t.Errorf("total = %v, want full base 800000", p.TotalPayment)
	}
}

func TestMonthlyPayment_AboveGuaranteeShortfallStillApplies(t *testing.T) {
	// 125h is above the 120h guarantee but below the 140h floor:
	// the guarantee does not fire, so the shortfall tier does.
	c := sesContract()
	c.MinGuaranteedHours = dp(120)

	p, err := c.MonthlyPayment(d(125))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ShortageDeduction.IsZero() {
		t.Error("expected a shortfall deduction above the guarantee")
	}
	if !p.ShortageHours.Equal(d(15)) {
		t.Errorf("shortage hours = %v, want 15", p.ShortageHours)
	}
}

func TestMonthlyPayment_WithinBand(t *testing.T) {
	c := sesContract()
	p, err := c.MonthlyPayment(d(160))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.TotalPayment.Equal(d(800000)) {
		t.Errorf("total = %v, want 800000", p.TotalPayment)
	}
	if len(p.Details) == 0 {
		t.Error("expected a calculation trace")
	}
}

func TestMonthlyPayment_MissingStandardHours(t *testing.T) {
	c := &billing.Contract{UnitPrice: d(800000)}
	if _, err := c.MonthlyPayment(d(160)); err != billing.ErrStandardHoursRequired {
		t.Errorf("expected ErrStandardHoursRequired, got %v", err)
	}
}

// =============================================================================
// DAY OVERTIME SIGNAL
// =============================================================================

func TestDayOvertime(t *testing.T) {
	c := sesContract() // free overtime 10h

	cases := []struct{ day, want float64 }{
		{8, 0},
		{10, 0},
		{12, 2},
		{0, 0},
	}
	for _, tc := range cases {
		if got := c.DayOvertime(d(tc.day)); !got.Equal(d(tc.want)) {
			t.Errorf("DayOvertime(%v) = %v, want %v", tc.day, got, tc.want)
		}
	}
}

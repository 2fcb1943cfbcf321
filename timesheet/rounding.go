package timesheet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING POLICY - Client-configured hour rounding
// =============================================================================

// RoundingMode selects how a fractional unit count is resolved.
type RoundingMode string

const (
	RoundNearest RoundingMode = "nearest"
	RoundFloor   RoundingMode = "floor"
	RoundCeiling RoundingMode = "ceiling"
)

func ValidRoundingMode(m RoundingMode) bool {
	switch m {
	case RoundNearest, RoundFloor, RoundCeiling:
		return true
	}
	return false
}

// RoundingPolicy expresses a client's attendance rounding rule: hours are
// snapped to a whole number of units of UnitMinutes each, using Mode.
//
// The policy is an explicit value injected into the hour computation. When a
// client's configuration cannot be resolved, callers fall back to
// DefaultRoundingPolicy rather than failing — attendance display must never
// hard-fail on a missing config row.
type RoundingPolicy struct {
	UnitMinutes int
	Mode        RoundingMode
}

// DefaultRoundingPolicy is 15-minute units, round to nearest.
func DefaultRoundingPolicy() RoundingPolicy {
	return RoundingPolicy{UnitMinutes: 15, Mode: RoundNearest}
}

// Valid reports whether the policy can be applied as-is.
func (p RoundingPolicy) Valid() bool {
	return p.UnitMinutes > 0 && ValidRoundingMode(p.Mode)
}

// Apply snaps an hours value to the policy's unit grid. Applying the same
// policy to an already-rounded value returns it unchanged.
func (p RoundingPolicy) Apply(hours decimal.Decimal) decimal.Decimal {
	if !p.Valid() {
		p = DefaultRoundingPolicy()
	}

	unitHours := decimal.NewFromInt(int64(p.UnitMinutes)).Div(decimal.NewFromInt(60))
	units := hours.Div(unitHours)

	var whole decimal.Decimal
	switch p.Mode {
	case RoundFloor:
		whole = units.Floor()
	case RoundCeiling:
		whole = units.Ceil()
	default:
		whole = units.Round(0)
	}

	return whole.Mul(unitHours)
}

func (p RoundingPolicy) String() string {
	return fmt.Sprintf("%dmin/%s", p.UnitMinutes, p.Mode)
}

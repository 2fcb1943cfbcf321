/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a client, a contract,
	and a month of attendance that demonstrates one billing behavior.

AVAILABLE SCENARIOS:

	standard-month:     Hours inside the contract band, flat fee
	overtime-month:     Long days pushing past the upper limit
	shortfall-month:    Sparse attendance below the lower limit
	guaranteed-minimum: Guaranteed-hours clause suppressing the deduction
	approval-flow:      A month already submitted and approved (locked)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create client with its rounding rule
 3. Create contract with billing terms
 4. Record a month of attendance through the engine
 5. Optionally run the submit/approve workflow

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "overtime-month"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler context and error helpers
  - submission/service.go: The engine the loaders drive
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sesflow/payroll-engine/billing"
	"github.com/sesflow/payroll-engine/store/sqlite"
	"github.com/sesflow/payroll-engine/submission"
	"github.com/sesflow/payroll-engine/timesheet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-month",
		Name:        "Standard Month",
		Description: "Twenty 8-hour days inside the 140-180h band: flat monthly fee",
	},
	{
		ID:          "overtime-month",
		Name:        "Overtime Month",
		Description: "Long days past the upper limit: overtime billed at 1.25x after 10 free hours",
	},
	{
		ID:          "shortfall-month",
		Name:        "Shortfall Month",
		Description: "Sparse attendance below the lower limit: shortage deduction applies",
	},
	{
		ID:          "guaranteed-minimum",
		Name:        "Guaranteed Minimum",
		Description: "Guaranteed-hours clause pays the flat fee despite low attendance",
	},
	{
		ID:          "approval-flow",
		Name:        "Approval Flow",
		Description: "A month already submitted and approved: records are locked, snapshot frozen",
	},
}

// demoMonth is the month every scenario populates.
var demoMonth = timesheet.YearMonth{Year: 2026, Month: time.March}

// ListScenarios returns all available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "standard-month":
		err = h.loadStandardMonthScenario(ctx)
	case "overtime-month":
		err = h.loadOvertimeMonthScenario(ctx)
	case "shortfall-month":
		err = h.loadShortfallMonthScenario(ctx)
	case "guaranteed-minimum":
		err = h.loadGuaranteedMinimumScenario(ctx)
	case "approval-flow":
		err = h.loadApprovalFlowScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":     req.ScenarioID,
		"person_id":  "p-demo",
		"year_month": demoMonth.String(),
	})
}

// ResetDatabase wipes all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedDemoContract creates the demo client and a contract for p-demo. The
// guarantee pointer is nil for every scenario except guaranteed-minimum.
func (h *Handler) seedDemoContract(ctx context.Context, guarantee *decimal.Decimal) error {
	if err := h.Store.SaveClient(ctx, sqlite.Client{
		ID:       "cl-demo",
		Name:     "Demo Client KK",
		Rounding: timesheet.DefaultRoundingPolicy(),
	}); err != nil {
		return err
	}

	min := decimal.NewFromInt(140)
	max := decimal.NewFromInt(180)
	return h.Store.SaveContract(ctx, &billing.Contract{
		ID:                   "ct-demo",
		ClientID:             "cl-demo",
		PersonID:             "p-demo",
		UnitPrice:            decimal.NewFromInt(800000),
		StandardWorkingHours: decimal.NewFromInt(160),
		MinWorkingHours:      &min,
		MaxWorkingHours:      &max,
		MinGuaranteedHours:   guarantee,
		FreeOvertimeHours:    decimal.NewFromInt(10),
		OvertimeRate:         decimal.NewFromFloat(1.25),
		ShortageRate:         decimal.NewFromFloat(0.8),
		StartDate:            time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
}

// recordBusinessDays records `days` weekdays with the given clock-out time,
// starting from the beginning of the demo month.
func (h *Handler) recordBusinessDays(ctx context.Context, days int, clockOut string) error {
	out, err := timesheet.ParseClockTime(clockOut)
	if err != nil {
		return err
	}

	recorded := 0
	for _, date := range demoMonth.Days() {
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		_, err := h.Engine.RecordDay(ctx, submission.RecordDayInput{
			ContractID: "ct-demo",
			WorkDate:   date,
			ClockIn:    timesheet.MustClockTime("09:00").Ptr(),
			ClockOut:   out.Ptr(),
			Breaks:     timesheet.BreakMinutes{Lunch: 60},
		})
		if err != nil {
			return err
		}
		recorded++
		if recorded == days {
			return nil
		}
	}
	return fmt.Errorf("month %s has fewer than %d business days", demoMonth, days)
}

// loadStandardMonthScenario: 20 x 8h = 160h, inside the band.
func (h *Handler) loadStandardMonthScenario(ctx context.Context) error {
	if err := h.seedDemoContract(ctx, nil); err != nil {
		return err
	}
	return h.recordBusinessDays(ctx, 20, "18:00")
}

// loadOvertimeMonthScenario: 22 x 9h = 198h. Above the 180h limit, with
// 10 free hours, 8 billable overtime hours remain.
func (h *Handler) loadOvertimeMonthScenario(ctx context.Context) error {
	if err := h.seedDemoContract(ctx, nil); err != nil {
		return err
	}
	return h.recordBusinessDays(ctx, 22, "19:00")
}

// loadShortfallMonthScenario: 15 x 8h = 120h, below the 140h lower limit.
func (h *Handler) loadShortfallMonthScenario(ctx context.Context) error {
	if err := h.seedDemoContract(ctx, nil); err != nil {
		return err
	}
	return h.recordBusinessDays(ctx, 15, "18:00")
}

// loadGuaranteedMinimumScenario: same 120h as the shortfall scenario, but
// the 130h guarantee covers it and suppresses the deduction.
func (h *Handler) loadGuaranteedMinimumScenario(ctx context.Context) error {
	guarantee := decimal.NewFromInt(130)
	if err := h.seedDemoContract(ctx, &guarantee); err != nil {
		return err
	}
	return h.recordBusinessDays(ctx, 15, "18:00")
}

// loadApprovalFlowScenario: a full month submitted and approved, leaving
// the records locked and the snapshot authoritative.
func (h *Handler) loadApprovalFlowScenario(ctx context.Context) error {
	if err := h.loadStandardMonthScenario(ctx); err != nil {
		return err
	}
	if _, err := h.Engine.Submit(ctx, "p-demo", demoMonth, "demo submission"); err != nil {
		return err
	}
	_, err := h.Engine.Approve(ctx, "p-demo", demoMonth, "mgr-demo", "demo approval")
	return err
}

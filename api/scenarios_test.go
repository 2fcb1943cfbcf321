/*
scenarios_test.go - Tests for demo scenario loaders

PURPOSE:
	Tests that each scenario sets up the expected state:
	- Client and contract are created
	- The demo month carries the right total hours
	- The resulting payment lands in the intended billing tier

These tests double as integration tests for the month aggregation path.
*/
package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scenarioAggregate struct {
	TotalHours string `json:"total_hours"`
	Payment    *struct {
		TotalPayment      string `json:"total_payment"`
		OvertimePayment   string `json:"overtime_payment"`
		ShortageDeduction string `json:"shortage_deduction"`
	} `json:"payment"`
}

func loadScenario(t *testing.T, router http.Handler, id string) scenarioAggregate {
	t.Helper()

	rr := doJSON(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{
		"scenario_id": id,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodGet, "/api/persons/p-demo/months/2026-03", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var agg scenarioAggregate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &agg))
	require.NotNil(t, agg.Payment)
	return agg
}

func TestScenario_StandardMonth(t *testing.T) {
	router := newTestServer(t)

	agg := loadScenario(t, router, "standard-month")
	assert.Equal(t, "160", agg.TotalHours)
	assert.Equal(t, "800000", agg.Payment.TotalPayment)
	assert.Equal(t, "0", agg.Payment.OvertimePayment)
	assert.Equal(t, "0", agg.Payment.ShortageDeduction)
}

func TestScenario_OvertimeMonth(t *testing.T) {
	// 22 x 9h = 198h: 8 billable overtime hours at 5000/h x 1.25 = 50000.
	router := newTestServer(t)

	agg := loadScenario(t, router, "overtime-month")
	assert.Equal(t, "198", agg.TotalHours)
	assert.Equal(t, "50000", agg.Payment.OvertimePayment)
	assert.Equal(t, "850000", agg.Payment.TotalPayment)
}

func TestScenario_ShortfallMonth(t *testing.T) {
	// 15 x 8h = 120h: 20h short x 5000/h x (1 - 0.8) = 20000 deducted.
	router := newTestServer(t)

	agg := loadScenario(t, router, "shortfall-month")
	assert.Equal(t, "120", agg.TotalHours)
	assert.Equal(t, "20000", agg.Payment.ShortageDeduction)
	assert.Equal(t, "780000", agg.Payment.TotalPayment)
}

func TestScenario_GuaranteedMinimum(t *testing.T) {
	// Same 120h, but the 130h guarantee pays the flat fee.
	router := newTestServer(t)

	agg := loadScenario(t, router, "guaranteed-minimum")
	assert.Equal(t, "120", agg.TotalHours)
	assert.Equal(t, "0", agg.Payment.ShortageDeduction)
	assert.Equal(t, "800000", agg.Payment.TotalPayment)
}

func TestScenario_ApprovalFlow_LocksMonth(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{
		"scenario_id": "approval-flow",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// The month is approved: further edits conflict.
	body := recordBody("2026-03-31")
	body.ContractID = "ct-demo"
	rr = doJSON(t, router, http.MethodPost, "/api/records", body)
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodGet, "/api/persons/p-demo/months/2026-03/detail", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decode[MonthDetailDTO](t, rr)
	assert.Equal(t, "approved", detail.Status)
	assert.False(t, detail.CanEdit)
}

func TestScenario_Unknown_400(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{
		"scenario_id": "time-travel",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScenario_List(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	list := decode[[]ScenarioDTO](t, rr)
	assert.Len(t, list, 5)
}

/*
handlers_test.go - HTTP-level tests for API handlers

Tests for:
- Record creation, validation, and conflict mapping
- The month workflow endpoints end to end
- What-if payment and calendar endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesflow/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	router := NewRouter(NewHandler(store, log))

	// Seed one client and one contract through the API itself.
	rr := doJSON(t, router, http.MethodPost, "/api/clients", CreateClientRequest{
		ID:   "cl-acme",
		Name: "Acme Systems",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/contracts", CreateContractRequest{
		ID:                   "ct-1",
		ClientID:             "cl-acme",
		PersonID:             "p-1",
		UnitPrice:            "800000",
		StandardWorkingHours: "160",
		MinWorkingHours:      "140",
		MaxWorkingHours:      "180",
		FreeOvertimeHours:    "10",
		OvertimeRate:         "1.25",
		ShortageRate:         "0.8",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func recordBody(date string) CreateRecordRequest {
	return CreateRecordRequest{
		ContractID: "ct-1",
		WorkDate:   date,
		ClockIn:    "09:00",
		ClockOut:   "18:00",
		LunchBreak: 60,
	}
}

// =============================================================================
// RECORD ENDPOINT TESTS
// =============================================================================

func TestCreateRecord_HTTP(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-02"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rec := decode[DailyRecordDTO](t, rr)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "2026-03-02", rec.WorkDate)
	assert.Equal(t, "09:00", rec.ClockIn)
	assert.Equal(t, "normal", rec.Category)
}

func TestCreateRecord_DuplicateDay_409(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-02"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-02"))
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
}

func TestCreateRecord_BadInput_400(t *testing.T) {
	router := newTestServer(t)

	body := recordBody("2026-03-02")
	body.WorkDate = "03/02/2026"
	rr := doJSON(t, router, http.MethodPost, "/api/records", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body = recordBody("2026-03-02")
	body.ClockIn = "25:99"
	rr = doJSON(t, router, http.MethodPost, "/api/records", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body = recordBody("2026-03-02")
	body.Category = "vacation-ish"
	rr = doJSON(t, router, http.MethodPost, "/api/records", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRecord_UnknownContract_404(t *testing.T) {
	router := newTestServer(t)

	body := recordBody("2026-03-02")
	body.ContractID = "ct-missing"
	rr := doJSON(t, router, http.MethodPost, "/api/records", body)
	assert.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())
}

func TestUpdateAndDeleteRecord_HTTP(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-02"))
	require.Equal(t, http.StatusCreated, rr.Code)
	rec := decode[DailyRecordDTO](t, rr)

	out := "20:00"
	rr = doJSON(t, router, http.MethodPut, "/api/records/"+rec.ID, UpdateRecordRequest{
		ClockOut: &out,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[DailyRecordDTO](t, rr)
	assert.Equal(t, "20:00", updated.ClockOut)
	assert.Equal(t, "09:00", updated.ClockIn)

	rr = doJSON(t, router, http.MethodDelete, "/api/records/"+rec.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/records/"+rec.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// =============================================================================
// MONTH WORKFLOW TESTS
// =============================================================================

func TestMonthWorkflow_HTTP(t *testing.T) {
	// GIVEN: One recorded day in March
	// WHEN: The month is submitted and then approved over HTTP
	// THEN: The aggregate endpoint serves the frozen snapshot

	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-02"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/submit", SubmitRequest{
		Remark: "march report",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sub := decode[SubmissionDTO](t, rr)
	assert.Equal(t, "pending", sub.Status)
	require.NotNil(t, sub.Snapshot)
	assert.Equal(t, "8", sub.Snapshot.TotalHours.String())

	// Submitting again conflicts.
	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/submit", SubmitRequest{})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Editing a pending month conflicts.
	rr = doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-03"))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Approval requires an approver.
	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/approve", ReviewRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/approve", ReviewRequest{
		ApproverID: "mgr-1",
		Remark:     "ok",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	approved := decode[SubmissionDTO](t, rr)
	assert.Equal(t, "approved", approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	rr = doJSON(t, router, http.MethodGet, "/api/persons/p-1/months/2026-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var agg struct {
		TotalHours string `json:"total_hours"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &agg))
	assert.Equal(t, "8", agg.TotalHours)
}

func TestRejectMonth_RequiresReason_HTTP(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/submit", SubmitRequest{})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/reject", ReviewRequest{
		ApproverID: "mgr-1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/reject", ReviewRequest{
		ApproverID: "mgr-1",
		Reason:     "missing days",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	sub := decode[SubmissionDTO](t, rr)
	assert.Equal(t, "rejected", sub.Status)
}

func TestWithdrawMonth_HTTP(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/submit", SubmitRequest{})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/withdraw", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sub := decode[SubmissionDTO](t, rr)
	assert.Equal(t, "withdrawn", sub.Status)
	assert.Nil(t, sub.Snapshot)

	// Withdrawing a non-pending month conflicts.
	rr = doJSON(t, router, http.MethodPost, "/api/persons/p-1/months/2026-03/withdraw", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestMonthDetail_HTTP(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodPost, "/api/records", recordBody("2026-03-02"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/persons/p-1/months/2026-03/detail", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	detail := decode[MonthDetailDTO](t, rr)
	assert.Equal(t, "draft", detail.Status)
	assert.True(t, detail.CanEdit)
	assert.True(t, detail.CanSubmit)
	assert.Len(t, detail.Records, 1)
	assert.Equal(t, "8", detail.Aggregate.TotalHours.String())

	rr = doJSON(t, router, http.MethodGet, "/api/persons/p-1/months/invalid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// CONTRACT ENDPOINT TESTS
// =============================================================================

func TestContractPayment_HTTP(t *testing.T) {
	router := newTestServer(t)

	rr := doJSON(t, router, http.MethodGet, "/api/contracts/ct-1/payment?hours=200", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payment struct {
		TotalPayment    string `json:"total_payment"`
		OvertimeHours   string `json:"overtime_hours"`
		OvertimePayment string `json:"overtime_payment"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payment))
	assert.Equal(t, "862500", payment.TotalPayment)
	assert.Equal(t, "10", payment.OvertimeHours)
	assert.Equal(t, "62500", payment.OvertimePayment)

	rr = doJSON(t, router, http.MethodGet, "/api/contracts/ct-1/payment", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/contracts/ct-missing/payment?hours=160", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContractCalendar_HTTP(t *testing.T) {
	router := newTestServer(t)

	for _, day := range []string{"2026-03-02", "2026-03-03"} {
		rr := doJSON(t, router, http.MethodPost, "/api/records", recordBody(day))
		require.Equal(t, http.StatusCreated, rr.Code, fmt.Sprintf("day %s: %s", day, rr.Body.String()))
	}

	rr := doJSON(t, router, http.MethodGet, "/api/contracts/ct-1/calendar/2026-03", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cal := decode[CalendarDTO](t, rr)
	assert.Len(t, cal.Days, 31)
	assert.Equal(t, 2, cal.RecordedDays)
	assert.Equal(t, "16", cal.TotalHours.String())
}

func TestCreateContract_Validation_HTTP(t *testing.T) {
	router := newTestServer(t)

	// Standard working hours are mandatory for the hourly rate.
	rr := doJSON(t, router, http.MethodPost, "/api/contracts", CreateContractRequest{
		ID:        "ct-bad",
		ClientID:  "cl-acme",
		PersonID:  "p-9",
		UnitPrice: "500000",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

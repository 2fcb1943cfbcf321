/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the attendance and payroll engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Records:
    POST   /api/records                 Record one attendance day
    PUT    /api/records/{id}            Edit a day
    DELETE /api/records/{id}            Remove a day

  Months:
    GET    /api/persons/{personID}/months/{yearMonth}          Aggregate
    GET    /api/persons/{personID}/months/{yearMonth}/detail   Day listing
    POST   /api/persons/{personID}/months/{yearMonth}/submit
    POST   /api/persons/{personID}/months/{yearMonth}/approve
    POST   /api/persons/{personID}/months/{yearMonth}/reject
    POST   /api/persons/{personID}/months/{yearMonth}/withdraw

  Contracts:
    POST   /api/clients                 Register a client company
    POST   /api/contracts               Register a contract
    GET    /api/contracts/{id}/payment?hours=H   What-if payment
    GET    /api/contracts/{id}/calendar/{yearMonth}

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (submission.Engine)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record, contract or submission not found
  - 409: Conflict (locked month, duplicate day, illegal transition)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. Actor identity comes from
  the request body; a production deployment puts an auth middleware in
  front and derives it from the session.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sesflow/payroll-engine/billing"
	"github.com/sesflow/payroll-engine/store/sqlite"
	"github.com/sesflow/payroll-engine/submission"
	"github.com/sesflow/payroll-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *submission.Engine
	Log    *logrus.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:  store,
		Engine: submission.NewEngine(store),
		Log:    log,
	}
}

// =============================================================================
// DAILY RECORD HANDLERS
// =============================================================================

// CreateRecord records one attendance day.
// POST /api/records
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date format (use YYYY-MM-DD)", err)
		return
	}

	in := submission.RecordDayInput{
		ContractID: timesheet.ContractID(req.ContractID),
		WorkDate:   workDate,
		Breaks: timesheet.BreakMinutes{
			Lunch:   req.LunchBreak,
			Evening: req.EveningBreak,
			Other:   req.OtherBreak,
		},
		Category: timesheet.Category(req.Category),
		Remark:   req.Remark,
	}
	if in.ClockIn, err = parseOptionalClock(req.ClockIn); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid clock_in format (use HH:MM)", err)
		return
	}
	if in.ClockOut, err = parseOptionalClock(req.ClockOut); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid clock_out format (use HH:MM)", err)
		return
	}

	rec, err := h.Engine.RecordDay(r.Context(), in)
	if err != nil {
		h.writeEngineError(w, "Failed to create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(rec))
}

// UpdateRecord edits an existing day.
// PUT /api/records/{id}
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := timesheet.RecordID(chi.URLParam(r, "id"))

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var in submission.UpdateRecordInput
	if req.ClockIn != nil {
		if *req.ClockIn == "" {
			in.ClearIn = true
		} else {
			c, err := timesheet.ParseClockTime(*req.ClockIn)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid clock_in format (use HH:MM)", err)
				return
			}
			in.ClockIn = &c
		}
	}
	if req.ClockOut != nil {
		if *req.ClockOut == "" {
			in.ClearOut = true
		} else {
			c, err := timesheet.ParseClockTime(*req.ClockOut)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid clock_out format (use HH:MM)", err)
				return
			}
			in.ClockOut = &c
		}
	}
	if req.LunchBreak != nil || req.EveningBreak != nil || req.OtherBreak != nil {
		current, err := h.Store.Record(r.Context(), id)
		if err != nil {
			h.writeEngineError(w, "Failed to load record", err)
			return
		}
		breaks := current.Breaks
		if req.LunchBreak != nil {
			breaks.Lunch = *req.LunchBreak
		}
		if req.EveningBreak != nil {
			breaks.Evening = *req.EveningBreak
		}
		if req.OtherBreak != nil {
			breaks.Other = *req.OtherBreak
		}
		in.Breaks = &breaks
	}
	if req.Category != nil {
		category := timesheet.Category(*req.Category)
		in.Category = &category
	}
	in.Remark = req.Remark

	rec, err := h.Engine.UpdateRecord(r.Context(), id, in)
	if err != nil {
		h.writeEngineError(w, "Failed to update record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// DeleteRecord removes a day.
// DELETE /api/records/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := timesheet.RecordID(chi.URLParam(r, "id"))

	if err := h.Engine.DeleteRecord(r.Context(), id); err != nil {
		h.writeEngineError(w, "Failed to delete record", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// MONTH HANDLERS
// =============================================================================

// GetMonthAggregate returns the effective monthly aggregate: the frozen
// snapshot for approved months, a live recomputation otherwise.
// GET /api/persons/{personID}/months/{yearMonth}
func (h *Handler) GetMonthAggregate(w http.ResponseWriter, r *http.Request) {
	personID, ym, ok := h.monthParams(w, r)
	if !ok {
		return
	}

	agg, err := h.Engine.MonthAggregate(r.Context(), personID, ym)
	if err != nil {
		h.writeEngineError(w, "Failed to compute month aggregate", err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// GetMonthDetail returns the day listing plus workflow state.
// GET /api/persons/{personID}/months/{yearMonth}/detail
func (h *Handler) GetMonthDetail(w http.ResponseWriter, r *http.Request) {
	personID, ym, ok := h.monthParams(w, r)
	if !ok {
		return
	}

	detail, err := h.Engine.MonthDetail(r.Context(), personID, ym)
	if err != nil {
		h.writeEngineError(w, "Failed to load month detail", err)
		return
	}

	records := make([]DailyRecordDTO, 0, len(detail.Records))
	for i := range detail.Records {
		records = append(records, toRecordDTO(&detail.Records[i]))
	}
	writeJSON(w, http.StatusOK, MonthDetailDTO{
		PersonID:    string(detail.PersonID),
		YearMonth:   detail.YearMonth.String(),
		Status:      string(detail.Status),
		Submission:  toSubmissionDTO(detail.Submission),
		Records:     records,
		Aggregate:   detail.Aggregate,
		CanEdit:     detail.CanEdit,
		CanSubmit:   detail.CanSubmit,
		CanWithdraw: detail.CanWithdraw,
	})
}

// SubmitMonth moves the month to Pending and freezes its snapshot.
// POST /api/persons/{personID}/months/{yearMonth}/submit
func (h *Handler) SubmitMonth(w http.ResponseWriter, r *http.Request) {
	personID, ym, ok := h.monthParams(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	sub, err := h.Engine.Submit(r.Context(), personID, ym, req.Remark)
	if err != nil {
		h.writeEngineError(w, "Failed to submit month", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"person_id":  personID,
		"year_month": ym.String(),
	}).Info("month submitted")
	writeJSON(w, http.StatusOK, toSubmissionDTO(sub))
}

// ApproveMonth finalizes a pending month.
// POST /api/persons/{personID}/months/{yearMonth}/approve
func (h *Handler) ApproveMonth(w http.ResponseWriter, r *http.Request) {
	personID, ym, ok := h.monthParams(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approver_id is required", nil)
		return
	}

	sub, err := h.Engine.Approve(r.Context(), personID, ym, req.ApproverID, req.Remark)
	if err != nil {
		h.writeEngineError(w, "Failed to approve month", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"person_id":   personID,
		"year_month":  ym.String(),
		"approver_id": req.ApproverID,
	}).Info("month approved")
	writeJSON(w, http.StatusOK, toSubmissionDTO(sub))
}

// RejectMonth returns a pending month for correction. A reason is required.
// POST /api/persons/{personID}/months/{yearMonth}/reject
func (h *Handler) RejectMonth(w http.ResponseWriter, r *http.Request) {
	personID, ym, ok := h.monthParams(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approver_id is required", nil)
		return
	}

	sub, err := h.Engine.Reject(r.Context(), personID, ym, req.ApproverID, req.Reason)
	if err != nil {
		h.writeEngineError(w, "Failed to reject month", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionDTO(sub))
}

// WithdrawMonth pulls a pending month back to editable state.
// POST /api/persons/{personID}/months/{yearMonth}/withdraw
func (h *Handler) WithdrawMonth(w http.ResponseWriter, r *http.Request) {
	personID, ym, ok := h.monthParams(w, r)
	if !ok {
		return
	}

	sub, err := h.Engine.Withdraw(r.Context(), personID, ym)
	if err != nil {
		h.writeEngineError(w, "Failed to withdraw month", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionDTO(sub))
}

func (h *Handler) monthParams(w http.ResponseWriter, r *http.Request) (timesheet.PersonID, timesheet.YearMonth, bool) {
	personID := timesheet.PersonID(chi.URLParam(r, "personID"))
	ym, err := timesheet.ParseYearMonth(chi.URLParam(r, "yearMonth"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year-month (use YYYY-MM)", err)
		return "", timesheet.YearMonth{}, false
	}
	return personID, ym, true
}

// =============================================================================
// CLIENT AND CONTRACT HANDLERS
// =============================================================================

// CreateClient registers a client company and its rounding rule.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	rounding := timesheet.DefaultRoundingPolicy()
	if req.RoundingUnitMinutes != 0 {
		rounding.UnitMinutes = req.RoundingUnitMinutes
	}
	if req.RoundingMode != "" {
		rounding.Mode = timesheet.RoundingMode(req.RoundingMode)
	}
	if !rounding.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid rounding configuration", nil)
		return
	}

	client := sqlite.Client{
		ID:       timesheet.ClientID(req.ID),
		Name:     req.Name,
		Rounding: rounding,
	}
	if err := h.Store.SaveClient(r.Context(), client); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID})
}

// CreateContract registers a contract.
// POST /api/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	contract, err := contractFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract", err)
		return
	}
	if err := contract.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract", err)
		return
	}

	if err := h.Store.SaveContract(r.Context(), contract); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID})
}

func contractFromRequest(req CreateContractRequest) (*billing.Contract, error) {
	c := &billing.Contract{
		ID:       timesheet.ContractID(req.ID),
		ClientID: timesheet.ClientID(req.ClientID),
		PersonID: timesheet.PersonID(req.PersonID),
	}

	var err error
	if c.UnitPrice, err = decimal.NewFromString(req.UnitPrice); err != nil {
		return nil, fmt.Errorf("unit_price: %w", err)
	}
	if c.StandardWorkingHours, err = decimal.NewFromString(req.StandardWorkingHours); err != nil {
		return nil, fmt.Errorf("standard_working_hours: %w", err)
	}
	if c.MinWorkingHours, err = parseOptionalDecimal(req.MinWorkingHours); err != nil {
		return nil, fmt.Errorf("min_working_hours: %w", err)
	}
	if c.MaxWorkingHours, err = parseOptionalDecimal(req.MaxWorkingHours); err != nil {
		return nil, fmt.Errorf("max_working_hours: %w", err)
	}
	if c.MinGuaranteedHours, err = parseOptionalDecimal(req.MinGuaranteedHours); err != nil {
		return nil, fmt.Errorf("min_guaranteed_hours: %w", err)
	}
	if c.FreeOvertimeHours, err = decimalOrDefault(req.FreeOvertimeHours, decimal.Zero); err != nil {
		return nil, fmt.Errorf("free_overtime_hours: %w", err)
	}
	if c.OvertimeRate, err = decimalOrDefault(req.OvertimeRate, decimal.NewFromInt(1)); err != nil {
		return nil, fmt.Errorf("overtime_rate: %w", err)
	}
	if c.ShortageRate, err = decimalOrDefault(req.ShortageRate, decimal.NewFromInt(1)); err != nil {
		return nil, fmt.Errorf("shortage_rate: %w", err)
	}
	if req.StartDate != "" {
		if c.StartDate, err = time.Parse("2006-01-02", req.StartDate); err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
	}
	if req.EndDate != "" {
		if c.EndDate, err = time.Parse("2006-01-02", req.EndDate); err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
	}
	return c, nil
}

// GetContractPayment runs a what-if payment for the given hours.
// GET /api/contracts/{id}/payment?hours=H
func (h *Handler) GetContractPayment(w http.ResponseWriter, r *http.Request) {
	contractID := timesheet.ContractID(chi.URLParam(r, "id"))

	hoursParam := r.URL.Query().Get("hours")
	if hoursParam == "" {
		writeError(w, http.StatusBadRequest, "hours query parameter is required", nil)
		return
	}
	hours, err := decimal.NewFromString(hoursParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours value", err)
		return
	}

	payment, err := h.Engine.ContractPayment(r.Context(), contractID, hours)
	if err != nil {
		h.writeEngineError(w, "Failed to compute payment", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// GetContractCalendar returns the month grid for a contract.
// GET /api/contracts/{id}/calendar/{yearMonth}
func (h *Handler) GetContractCalendar(w http.ResponseWriter, r *http.Request) {
	contractID := timesheet.ContractID(chi.URLParam(r, "id"))
	ym, err := timesheet.ParseYearMonth(chi.URLParam(r, "yearMonth"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year-month (use YYYY-MM)", err)
		return
	}

	cal, err := h.Engine.Calendar(r.Context(), contractID, ym)
	if err != nil {
		h.writeEngineError(w, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarDTO(cal))
}

// =============================================================================
// ERROR MAPPING AND HELPERS
// =============================================================================

// writeEngineError maps domain errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case submission.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case submission.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case submission.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseOptionalClock(s string) (*timesheet.ClockTime, error) {
	if s == "" {
		return nil, nil
	}
	c, err := timesheet.ParseClockTime(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func parseOptionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalOrDefault(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	return decimal.NewFromString(s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

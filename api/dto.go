/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Records:
    DailyRecordDTO, CreateRecordRequest, UpdateRecordRequest

  Months:
    SubmissionDTO, MonthDetailDTO, SubmitRequest, ReviewRequest

  Contracts:
    CreateClientRequest, CreateContractRequest, CalendarDTO

DECIMALS:
  Monetary amounts and hour figures travel as JSON strings ("862500",
  "7.75") to keep exactness end to end. Clients must not parse them as
  floats.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - submission/aggregate.go: MonthlyAggregate is serialized as-is
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sesflow/payroll-engine/submission"
	"github.com/sesflow/payroll-engine/timesheet"
)

// =============================================================================
// DAILY RECORDS
// =============================================================================

// DailyRecordDTO represents one attendance day in API responses.
type DailyRecordDTO struct {
	ID           string `json:"id"`
	ContractID   string `json:"contract_id"`
	WorkDate     string `json:"work_date"`
	ClockIn      string `json:"clock_in,omitempty"`
	ClockOut     string `json:"clock_out,omitempty"`
	LunchBreak   int    `json:"lunch_break_minutes"`
	EveningBreak int    `json:"evening_break_minutes"`
	OtherBreak   int    `json:"other_break_minutes"`
	Category     string `json:"category"`
	Remark       string `json:"remark,omitempty"`
}

func toRecordDTO(rec *timesheet.DailyRecord) DailyRecordDTO {
	dto := DailyRecordDTO{
		ID:           string(rec.ID),
		ContractID:   string(rec.ContractID),
		WorkDate:     rec.WorkDate.Format("2006-01-02"),
		LunchBreak:   rec.Breaks.Lunch,
		EveningBreak: rec.Breaks.Evening,
		OtherBreak:   rec.Breaks.Other,
		Category:     string(rec.Category),
		Remark:       rec.Remark,
	}
	if rec.ClockIn != nil {
		dto.ClockIn = rec.ClockIn.String()
	}
	if rec.ClockOut != nil {
		dto.ClockOut = rec.ClockOut.String()
	}
	return dto
}

// CreateRecordRequest is the body of POST /api/records.
type CreateRecordRequest struct {
	ContractID   string `json:"contract_id"`
	WorkDate     string `json:"work_date"`
	ClockIn      string `json:"clock_in,omitempty"`
	ClockOut     string `json:"clock_out,omitempty"`
	LunchBreak   int    `json:"lunch_break_minutes"`
	EveningBreak int    `json:"evening_break_minutes"`
	OtherBreak   int    `json:"other_break_minutes"`
	Category     string `json:"category,omitempty"`
	Remark       string `json:"remark,omitempty"`
}

// UpdateRecordRequest is the body of PUT /api/records/{id}. Absent fields
// stay unchanged; an explicit empty clock string clears it.
type UpdateRecordRequest struct {
	ClockIn      *string `json:"clock_in,omitempty"`
	ClockOut     *string `json:"clock_out,omitempty"`
	LunchBreak   *int    `json:"lunch_break_minutes,omitempty"`
	EveningBreak *int    `json:"evening_break_minutes,omitempty"`
	OtherBreak   *int    `json:"other_break_minutes,omitempty"`
	Category     *string `json:"category,omitempty"`
	Remark       *string `json:"remark,omitempty"`
}

// =============================================================================
// MONTHS AND WORKFLOW
// =============================================================================

// SubmissionDTO represents the workflow state of a month.
type SubmissionDTO struct {
	ID            string                       `json:"id"`
	PersonID      string                       `json:"person_id"`
	YearMonth     string                       `json:"year_month"`
	Status        string                       `json:"status"`
	Snapshot      *submission.MonthlyAggregate `json:"snapshot,omitempty"`
	SubmittedAt   *time.Time                   `json:"submitted_at,omitempty"`
	ApprovedAt    *time.Time                   `json:"approved_at,omitempty"`
	ApproverID    string                       `json:"approver_id,omitempty"`
	SubmitRemark  string                       `json:"submit_remark,omitempty"`
	ApproveRemark string                       `json:"approve_remark,omitempty"`
}

func toSubmissionDTO(sub *submission.MonthlySubmission) *SubmissionDTO {
	if sub == nil {
		return nil
	}
	return &SubmissionDTO{
		ID:            string(sub.ID),
		PersonID:      string(sub.PersonID),
		YearMonth:     sub.YearMonth.String(),
		Status:        string(sub.Status),
		Snapshot:      sub.Snapshot,
		SubmittedAt:   sub.SubmittedAt,
		ApprovedAt:    sub.ApprovedAt,
		ApproverID:    sub.ApproverID,
		SubmitRemark:  sub.SubmitRemark,
		ApproveRemark: sub.ApproveRemark,
	}
}

// MonthDetailDTO is the month view returned by the detail endpoint.
type MonthDetailDTO struct {
	PersonID    string                      `json:"person_id"`
	YearMonth   string                      `json:"year_month"`
	Status      string                      `json:"status"`
	Submission  *SubmissionDTO              `json:"submission,omitempty"`
	Records     []DailyRecordDTO            `json:"records"`
	Aggregate   submission.MonthlyAggregate `json:"aggregate"`
	CanEdit     bool                        `json:"can_edit"`
	CanSubmit   bool                        `json:"can_submit"`
	CanWithdraw bool                        `json:"can_withdraw"`
}

// SubmitRequest is the body of the submit endpoint.
type SubmitRequest struct {
	Remark string `json:"remark,omitempty"`
}

// ReviewRequest is the body of the approve / reject endpoints. Reason is
// mandatory for rejection.
type ReviewRequest struct {
	ApproverID string `json:"approver_id"`
	Remark     string `json:"remark,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// =============================================================================
// CLIENTS AND CONTRACTS
// =============================================================================

// CreateClientRequest registers a client company and its rounding rule.
type CreateClientRequest struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	RoundingUnitMinutes int    `json:"rounding_unit_minutes,omitempty"`
	RoundingMode        string `json:"rounding_mode,omitempty"`
}

// CreateContractRequest registers a contract. Decimal fields are strings;
// optional band limits may be omitted.
type CreateContractRequest struct {
	ID                   string `json:"id"`
	ClientID             string `json:"client_id"`
	PersonID             string `json:"person_id"`
	UnitPrice            string `json:"unit_price"`
	StandardWorkingHours string `json:"standard_working_hours"`
	MinWorkingHours      string `json:"min_working_hours,omitempty"`
	MaxWorkingHours      string `json:"max_working_hours,omitempty"`
	MinGuaranteedHours   string `json:"min_guaranteed_hours,omitempty"`
	FreeOvertimeHours    string `json:"free_overtime_hours,omitempty"`
	OvertimeRate         string `json:"overtime_rate,omitempty"`
	ShortageRate         string `json:"shortage_rate,omitempty"`
	StartDate            string `json:"start_date,omitempty"`
	EndDate              string `json:"end_date,omitempty"`
}

// CalendarDayDTO is one cell of the month grid.
type CalendarDayDTO struct {
	Date        string          `json:"date"`
	Weekday     string          `json:"weekday"`
	IsWeekend   bool            `json:"is_weekend"`
	Record      *DailyRecordDTO `json:"record,omitempty"`
	Hours       decimal.Decimal `json:"hours"`
	DayOvertime decimal.Decimal `json:"day_overtime"`
}

// CalendarDTO is the contract-scoped month grid with progress totals.
type CalendarDTO struct {
	ContractID    string           `json:"contract_id"`
	YearMonth     string           `json:"year_month"`
	Days          []CalendarDayDTO `json:"days"`
	BusinessDays  int              `json:"business_days"`
	RecordedDays  int              `json:"recorded_days"`
	RemainingDays int              `json:"remaining_days"`
	TotalHours    decimal.Decimal  `json:"total_hours"`
	TargetHours   decimal.Decimal  `json:"target_hours"`
}

func toCalendarDTO(cal *submission.MonthCalendar) CalendarDTO {
	dto := CalendarDTO{
		ContractID:    string(cal.ContractID),
		YearMonth:     cal.YearMonth.String(),
		Days:          make([]CalendarDayDTO, 0, len(cal.Days)),
		BusinessDays:  cal.BusinessDays,
		RecordedDays:  cal.RecordedDays,
		RemainingDays: cal.RemainingDays,
		TotalHours:    cal.TotalHours,
		TargetHours:   cal.TargetHours,
	}
	for _, day := range cal.Days {
		cell := CalendarDayDTO{
			Date:        day.Date.Format("2006-01-02"),
			Weekday:     day.Weekday.String(),
			IsWeekend:   day.IsWeekend,
			Hours:       day.Hours,
			DayOvertime: day.DayOvertime,
		}
		if day.Record != nil {
			rec := toRecordDTO(day.Record)
			cell.Record = &rec
		}
		dto.Days = append(dto.Days, cell)
	}
	return dto
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

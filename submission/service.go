package submission

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sesflow/payroll-engine/billing"
	"github.com/sesflow/payroll-engine/timesheet"
)

// ErrInvalidInput is the root of request validation failures; wrap it with
// the specific complaint.
var ErrInvalidInput = errors.New("invalid input")

// ErrReasonRequired is returned by Reject when no reason is given.
var ErrReasonRequired = fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)

// IsValidation reports whether the error is a request validation failure
// (HTTP 400 territory).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, billing.ErrStandardHoursRequired)
}

// =============================================================================
// ENGINE - The workflow service
// =============================================================================

// Engine orchestrates daily records, the payroll calculator, and the
// approval state machine over one Store. It holds no state of its own;
// every operation is a single bounded read-compute-write.
type Engine struct {
	Store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store}
}

// policyFor builds the fail-soft rounding policy resolver: a missing or
// invalid client configuration degrades to the default policy instead of
// failing the computation.
func (e *Engine) policyFor(ctx context.Context, st Store) PolicyResolver {
	return func(id timesheet.ContractID) timesheet.RoundingPolicy {
		policy, err := st.RoundingPolicyForContract(ctx, id)
		if err != nil || !policy.Valid() {
			return timesheet.DefaultRoundingPolicy()
		}
		return policy
	}
}

var idSeq atomic.Uint64

func newID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), idSeq.Add(1))
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

// RecordDayInput carries one day of attendance to be recorded.
type RecordDayInput struct {
	ContractID timesheet.ContractID
	WorkDate   time.Time
	ClockIn    *timesheet.ClockTime
	ClockOut   *timesheet.ClockTime
	Breaks     timesheet.BreakMinutes
	Category   timesheet.Category
	Remark     string
}

func (in *RecordDayInput) validate() error {
	if in.ContractID == "" {
		return fmt.Errorf("%w: contract id is required", ErrInvalidInput)
	}
	if in.WorkDate.IsZero() {
		return fmt.Errorf("%w: work date is required", ErrInvalidInput)
	}
	if in.Category == "" {
		in.Category = timesheet.CategoryNormal
	}
	if !timesheet.ValidCategory(in.Category) {
		return fmt.Errorf("%w: unknown attendance category %q", ErrInvalidInput, in.Category)
	}
	if !in.Breaks.Valid() {
		return fmt.Errorf("%w: break minutes must not be negative", ErrInvalidInput)
	}
	return nil
}

// RecordDay creates a daily record. It fails with ErrMonthLocked when the
// owning month is Pending or Approved, and with a DuplicateRecordError when
// the (contract, date) pair already exists.
func (e *Engine) RecordDay(ctx context.Context, in RecordDayInput) (*timesheet.DailyRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var rec *timesheet.DailyRecord
	err := e.Store.WithTx(ctx, func(st Store) error {
		contract, err := st.Contract(ctx, in.ContractID)
		if err != nil {
			return err
		}

		workDate := midnightUTC(in.WorkDate)
		if err := e.guardEditable(ctx, st, contract.PersonID, timesheet.YearMonthOf(workDate)); err != nil {
			return err
		}

		now := time.Now().UTC()
		rec = &timesheet.DailyRecord{
			ID:         timesheet.RecordID(newID("rec")),
			ContractID: in.ContractID,
			WorkDate:   workDate,
			ClockIn:    in.ClockIn,
			ClockOut:   in.ClockOut,
			Breaks:     in.Breaks,
			Category:   in.Category,
			Remark:     in.Remark,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return st.CreateRecord(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateRecordInput holds the mutable fields of a daily record. Nil fields
// are left unchanged; the work date and contract are immutable.
type UpdateRecordInput struct {
	ClockIn   *timesheet.ClockTime
	ClockOut  *timesheet.ClockTime
	ClearIn   bool
	ClearOut  bool
	Breaks    *timesheet.BreakMinutes
	Category  *timesheet.Category
	Remark    *string
}

// UpdateRecord edits a daily record under the same month-editability guard
// as creation.
func (e *Engine) UpdateRecord(ctx context.Context, id timesheet.RecordID, in UpdateRecordInput) (*timesheet.DailyRecord, error) {
	if in.Category != nil && !timesheet.ValidCategory(*in.Category) {
		return nil, fmt.Errorf("%w: unknown attendance category %q", ErrInvalidInput, *in.Category)
	}
	if in.Breaks != nil && !in.Breaks.Valid() {
		return nil, fmt.Errorf("%w: break minutes must not be negative", ErrInvalidInput)
	}

	var rec *timesheet.DailyRecord
	err := e.Store.WithTx(ctx, func(st Store) error {
		var err error
		rec, err = st.Record(ctx, id)
		if err != nil {
			return err
		}
		contract, err := st.Contract(ctx, rec.ContractID)
		if err != nil {
			return err
		}
		if err := e.guardEditable(ctx, st, contract.PersonID, timesheet.YearMonthOf(rec.WorkDate)); err != nil {
			return err
		}

		if in.ClockIn != nil {
			rec.ClockIn = in.ClockIn
		}
		if in.ClockOut != nil {
			rec.ClockOut = in.ClockOut
		}
		if in.ClearIn {
			rec.ClockIn = nil
		}
		if in.ClearOut {
			rec.ClockOut = nil
		}
		if in.Breaks != nil {
			rec.Breaks = *in.Breaks
		}
		if in.Category != nil {
			rec.Category = *in.Category
		}
		if in.Remark != nil {
			rec.Remark = *in.Remark
		}
		rec.UpdatedAt = time.Now().UTC()

		return st.UpdateRecord(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes a daily record. A record whose month has been
// approved is never deleted.
func (e *Engine) DeleteRecord(ctx context.Context, id timesheet.RecordID) error {
	return e.Store.WithTx(ctx, func(st Store) error {
		rec, err := st.Record(ctx, id)
		if err != nil {
			return err
		}
		contract, err := st.Contract(ctx, rec.ContractID)
		if err != nil {
			return err
		}
		if err := e.guardEditable(ctx, st, contract.PersonID, timesheet.YearMonthOf(rec.WorkDate)); err != nil {
			return err
		}
		return st.DeleteRecord(ctx, id)
	})
}

// guardEditable rejects writes to a month that is Pending or Approved.
// A month with no submission row is implicitly Draft and editable.
func (e *Engine) guardEditable(ctx context.Context, st Store, personID timesheet.PersonID, ym timesheet.YearMonth) error {
	sub, err := st.Submission(ctx, personID, ym)
	if err != nil {
		return err
	}
	if sub != nil && !sub.Status.Editable() {
		return ErrMonthLocked
	}
	return nil
}

// =============================================================================
// MONTH READS
// =============================================================================

// MonthAggregate returns the month's aggregate. For an Approved month this
// is the stored snapshot — never a recomputation — so approved numbers are
// immune to later edits. Every other status recomputes live from the
// current daily records.
func (e *Engine) MonthAggregate(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) (*MonthlyAggregate, error) {
	sub, err := e.Store.Submission(ctx, personID, ym)
	if err != nil {
		return nil, err
	}
	if sub != nil && sub.Status.SnapshotAuthoritative() && sub.Snapshot != nil {
		return sub.Snapshot, nil
	}
	agg, err := e.liveAggregate(ctx, e.Store, personID, ym)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// MonthDetail is the month view: the submission (nil status fields when the
// month was never submitted), the day records, the effective aggregate, and
// the capability flags for the UI.
type MonthDetail struct {
	PersonID    timesheet.PersonID
	YearMonth   timesheet.YearMonth
	Status      Status
	Submission  *MonthlySubmission
	Records     []timesheet.DailyRecord
	Aggregate   MonthlyAggregate
	CanEdit     bool
	CanSubmit   bool
	CanWithdraw bool
}

// MonthDetail returns the per-day listing plus the effective aggregate.
func (e *Engine) MonthDetail(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) (*MonthDetail, error) {
	sub, err := e.Store.Submission(ctx, personID, ym)
	if err != nil {
		return nil, err
	}
	records, err := e.Store.RecordsForPerson(ctx, personID, ym)
	if err != nil {
		return nil, err
	}

	status := StatusDraft
	if sub != nil {
		status = sub.Status
	}

	var agg MonthlyAggregate
	if sub != nil && status.SnapshotAuthoritative() && sub.Snapshot != nil {
		agg = *sub.Snapshot
	} else {
		agg, err = e.liveAggregate(ctx, e.Store, personID, ym)
		if err != nil {
			return nil, err
		}
	}

	return &MonthDetail{
		PersonID:    personID,
		YearMonth:   ym,
		Status:      status,
		Submission:  sub,
		Records:     records,
		Aggregate:   agg,
		CanEdit:     status.Editable(),
		CanSubmit:   status.CanSubmit(),
		CanWithdraw: status.CanReview(),
	}, nil
}

// liveAggregate recomputes the month from current records and attaches the
// contract payment. A person without a contract covering the month still
// gets an hours aggregate; the payment is simply absent.
func (e *Engine) liveAggregate(ctx context.Context, st Store, personID timesheet.PersonID, ym timesheet.YearMonth) (MonthlyAggregate, error) {
	records, err := st.RecordsForPerson(ctx, personID, ym)
	if err != nil {
		return MonthlyAggregate{}, err
	}

	agg := BuildAggregate(ym, records, e.policyFor(ctx, st))

	contract, err := st.ContractForPerson(ctx, personID, ym.Last())
	switch {
	case errors.Is(err, ErrContractNotFound):
		return agg, nil
	case err != nil:
		return MonthlyAggregate{}, err
	}

	payment, err := contract.MonthlyPayment(agg.TotalHours)
	if err != nil {
		return MonthlyAggregate{}, err
	}
	agg.Payment = payment
	return agg, nil
}

// =============================================================================
// WORKFLOW TRANSITIONS
// =============================================================================

// Submit moves the month to Pending. The aggregate and payment are computed
// inside the same transaction that flips the status, and the snapshot is
// overwritten wholesale — a re-submit after rejection never leaks values
// from the rejected snapshot.
func (e *Engine) Submit(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth, remark string) (*MonthlySubmission, error) {
	var result *MonthlySubmission
	err := e.Store.WithTx(ctx, func(st Store) error {
		sub, err := st.Submission(ctx, personID, ym)
		if err != nil {
			return err
		}

		created := false
		if sub == nil {
			now := time.Now().UTC()
			sub = &MonthlySubmission{
				ID:        SubmissionID(newID("sub")),
				PersonID:  personID,
				YearMonth: ym,
				Status:    StatusDraft,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := st.CreateSubmission(ctx, sub); err != nil {
				return err
			}
			created = true
		}

		from := sub.Status
		if !from.CanSubmit() {
			return &TransitionError{Op: "submit", From: from}
		}

		agg, err := e.liveAggregate(ctx, st, personID, ym)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		sub.Status = StatusPending
		sub.Snapshot = &agg
		sub.SubmittedAt = &now
		sub.SubmitRemark = remark
		sub.UpdatedAt = now

		if err := st.UpdateSubmission(ctx, sub, from); err != nil {
			return err
		}

		op := "submit"
		if !created && from != StatusDraft {
			op = "resubmit"
		}
		result = sub
		return st.AppendLog(ctx, LogEntry{
			SubmissionID: sub.ID,
			Operation:    op,
			ActorID:      string(personID),
			FromStatus:   from,
			ToStatus:     StatusPending,
			Remark:       remark,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Approve finalizes a Pending month. The snapshot is retained unchanged
// and becomes the authoritative read.
func (e *Engine) Approve(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth, approverID, remark string) (*MonthlySubmission, error) {
	return e.review(ctx, personID, ym, approverID, remark, "approve", StatusApproved)
}

// Reject returns a Pending month to the person for correction. The snapshot
// is retained as an audit trail of what was rejected, but it is no longer
// authoritative; daily records become editable again.
func (e *Engine) Reject(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth, approverID, reason string) (*MonthlySubmission, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return e.review(ctx, personID, ym, approverID, reason, "reject", StatusRejected)
}

func (e *Engine) review(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth, approverID, remark, op string, to Status) (*MonthlySubmission, error) {
	var result *MonthlySubmission
	err := e.Store.WithTx(ctx, func(st Store) error {
		sub, err := st.Submission(ctx, personID, ym)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrSubmissionNotFound
		}

		from := sub.Status
		if !from.CanReview() {
			return &TransitionError{Op: op, From: from}
		}

		now := time.Now().UTC()
		sub.Status = to
		sub.ApproverID = approverID
		sub.ApproveRemark = remark
		sub.UpdatedAt = now
		if to == StatusApproved {
			sub.ApprovedAt = &now
		}

		if err := st.UpdateSubmission(ctx, sub, from); err != nil {
			return err
		}

		result = sub
		return st.AppendLog(ctx, LogEntry{
			SubmissionID: sub.ID,
			Operation:    op,
			ActorID:      approverID,
			FromStatus:   from,
			ToStatus:     to,
			Remark:       remark,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdraw pulls a Pending month back. The snapshot is cleared so display
// reverts to live recomputation.
func (e *Engine) Withdraw(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) (*MonthlySubmission, error) {
	var result *MonthlySubmission
	err := e.Store.WithTx(ctx, func(st Store) error {
		sub, err := st.Submission(ctx, personID, ym)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrSubmissionNotFound
		}

		from := sub.Status
		if !from.CanReview() {
			return &TransitionError{Op: "withdraw", From: from}
		}

		now := time.Now().UTC()
		sub.Status = StatusWithdrawn
		sub.Snapshot = nil
		sub.UpdatedAt = now

		if err := st.UpdateSubmission(ctx, sub, from); err != nil {
			return err
		}

		result = sub
		return st.AppendLog(ctx, LogEntry{
			SubmissionID: sub.ID,
			Operation:    "withdraw",
			ActorID:      string(personID),
			FromStatus:   from,
			ToStatus:     StatusWithdrawn,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// CONTRACT PAYMENT
// =============================================================================

// ContractPayment runs the payroll calculator for an arbitrary hours figure
// against a contract, without touching any submission state.
func (e *Engine) ContractPayment(ctx context.Context, contractID timesheet.ContractID, actualHours decimal.Decimal) (*billing.Payment, error) {
	contract, err := e.Store.Contract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return contract.MonthlyPayment(actualHours)
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date        time.Time
	Weekday     time.Weekday
	IsWeekend   bool
	Record      *timesheet.DailyRecord
	Hours       decimal.Decimal
	DayOvertime decimal.Decimal
}

// MonthCalendar is the contract-scoped day grid with progress totals.
type MonthCalendar struct {
	ContractID    timesheet.ContractID
	YearMonth     timesheet.YearMonth
	Days          []CalendarDay
	BusinessDays  int
	RecordedDays  int
	RemainingDays int
	TotalHours    decimal.Decimal
	TargetHours   decimal.Decimal
}

// Calendar builds the day grid for a contract's month. The per-day overtime
// figure is the informational display signal, not the billing tier.
func (e *Engine) Calendar(ctx context.Context, contractID timesheet.ContractID, ym timesheet.YearMonth) (*MonthCalendar, error) {
	contract, err := e.Store.Contract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	records, err := e.Store.RecordsForContract(ctx, contractID, ym)
	if err != nil {
		return nil, err
	}
	policy := e.policyFor(ctx, e.Store)(contractID)

	byDay := make(map[int]*timesheet.DailyRecord, len(records))
	for i := range records {
		byDay[records[i].WorkDate.Day()] = &records[i]
	}

	cal := &MonthCalendar{
		ContractID:  contractID,
		YearMonth:   ym,
		TotalHours:  decimal.Zero,
		TargetHours: contract.StandardWorkingHours,
	}

	for _, date := range ym.Days() {
		wd := date.Weekday()
		day := CalendarDay{
			Date:        date,
			Weekday:     wd,
			IsWeekend:   wd == time.Saturday || wd == time.Sunday,
			Hours:       decimal.Zero,
			DayOvertime: decimal.Zero,
		}
		if rec, ok := byDay[date.Day()]; ok {
			day.Record = rec
			day.Hours = rec.WorkingHours(policy)
			day.DayOvertime = contract.DayOvertime(day.Hours)
			cal.RecordedDays++
			cal.TotalHours = cal.TotalHours.Add(day.Hours)
		}
		if !day.IsWeekend {
			cal.BusinessDays++
		}
		cal.Days = append(cal.Days, day)
	}
	cal.RemainingDays = cal.BusinessDays - cal.RecordedDays

	return cal, nil
}

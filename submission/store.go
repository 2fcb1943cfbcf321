package submission

import (
	"context"
	"time"

	"github.com/sesflow/payroll-engine/billing"
	"github.com/sesflow/payroll-engine/timesheet"
)

// =============================================================================
// MONTHLY SUBMISSION - The unit of approval
// =============================================================================

type SubmissionID string

// MonthlySubmission is one approval record per (person, year-month).
// The snapshot is non-nil iff the record has been submitted at least once
// and not withdrawn; it is authoritative only while Status is Approved.
type MonthlySubmission struct {
	ID        SubmissionID
	PersonID  timesheet.PersonID
	YearMonth timesheet.YearMonth
	Status    Status

	Snapshot *MonthlyAggregate

	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	ApproverID  string

	SubmitRemark  string
	ApproveRemark string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// LogEntry is one append-only audit row recording a workflow transition.
type LogEntry struct {
	SubmissionID SubmissionID
	Operation    string // submit, resubmit, approve, reject, withdraw
	ActorID      string
	FromStatus   Status
	ToStatus     Status
	Remark       string
	CreatedAt    time.Time
}

// =============================================================================
// STORE - Persistence contract for the workflow
// =============================================================================

// Store is the persistence the engine depends on. WithTx runs fn against a
// transactional view of the same store; every multi-step operation (submit,
// approve, reject, withdraw) commits atomically or not at all.
type Store interface {
	// Contracts and rounding configuration are read-only collaborators.
	Contract(ctx context.Context, id timesheet.ContractID) (*billing.Contract, error)
	ContractForPerson(ctx context.Context, personID timesheet.PersonID, asOf time.Time) (*billing.Contract, error)
	RoundingPolicyForContract(ctx context.Context, id timesheet.ContractID) (timesheet.RoundingPolicy, error)

	// Daily records.
	CreateRecord(ctx context.Context, rec *timesheet.DailyRecord) error
	UpdateRecord(ctx context.Context, rec *timesheet.DailyRecord) error
	DeleteRecord(ctx context.Context, id timesheet.RecordID) error
	Record(ctx context.Context, id timesheet.RecordID) (*timesheet.DailyRecord, error)
	RecordsForPerson(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error)
	RecordsForContract(ctx context.Context, contractID timesheet.ContractID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error)

	// Monthly submissions. Submission returns nil (no error) when the
	// month has never been submitted.
	Submission(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) (*MonthlySubmission, error)
	CreateSubmission(ctx context.Context, sub *MonthlySubmission) error

	// UpdateSubmission persists sub only if the stored row still has
	// status `from`; it returns ErrConflict otherwise. This is the
	// compare-and-swap that serializes concurrent transitions.
	UpdateSubmission(ctx context.Context, sub *MonthlySubmission, from Status) error

	AppendLog(ctx context.Context, entry LogEntry) error

	// WithTx runs fn inside one transaction boundary.
	WithTx(ctx context.Context, fn func(Store) error) error
}

package submission

import (
	"errors"
	"fmt"
	"time"

	"github.com/sesflow/payroll-engine/timesheet"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMonthLocked is returned when a daily record is created, edited,
	// or deleted while its month is Pending or Approved.
	ErrMonthLocked = errors.New("month is not editable")

	// ErrDuplicateRecord is returned when a (contract, work date) pair
	// already has a daily record.
	ErrDuplicateRecord = errors.New("daily record already exists for this date")

	// ErrRecordNotFound is returned for an unknown daily record id.
	ErrRecordNotFound = errors.New("daily record not found")

	// ErrContractNotFound is returned for an unknown contract, or when a
	// person has no contract covering the requested month.
	ErrContractNotFound = errors.New("contract not found")

	// ErrSubmissionNotFound is returned when a review operation targets a
	// month that was never submitted.
	ErrSubmissionNotFound = errors.New("monthly submission not found")

	// ErrConflict is returned when a concurrent transition won the
	// compare-and-swap on the submission status.
	ErrConflict = errors.New("submission was modified concurrently")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// TransitionError reports an operation attempted from an incompatible
// status. These are deterministic and rejected before any write.
type TransitionError struct {
	Op   string
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s submission", e.Op, e.From)
}

// DuplicateRecordError carries the conflicting key.
type DuplicateRecordError struct {
	ContractID timesheet.ContractID
	WorkDate   time.Time
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("daily record already exists for contract %s on %s",
		e.ContractID, e.WorkDate.Format("2006-01-02"))
}

func (e *DuplicateRecordError) Unwrap() error { return ErrDuplicateRecord }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound reports whether the error names a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}

// IsConflict reports whether the error is a state or uniqueness conflict
// (HTTP 409 territory).
func IsConflict(err error) bool {
	var te *TransitionError
	return errors.Is(err, ErrMonthLocked) ||
		errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrConflict) ||
		errors.As(err, &te)
}

/*
Package submission implements the monthly approval workflow: the state
machine by which a person's timesheet for one month moves from editable
draft to an immutable, approved financial fact.

PURPOSE:
  One MonthlySubmission exists per (person, year-month). While it sits in
  an editable state the month's daily records may change and every read is
  a live recomputation. Submitting computes the month's aggregate and the
  contract payment (via timesheet and billing) and freezes them as a
  snapshot; approval makes that snapshot authoritative. Approved numbers
  never change because a daily record was edited afterward.

STATE MACHINE:

   Draft ──submit──▶ Pending ──approve──▶ Approved (terminal)
     ▲                 │ │
     │            reject │ withdraw
     │                 ▼ ▼
     └──submit── Rejected / Withdrawn

  submit    from Draft, Rejected, Withdrawn: recompute + overwrite snapshot
  approve   from Pending only: snapshot becomes authoritative
  reject    from Pending only: snapshot retained for audit, not authoritative
  withdraw  from Pending only: snapshot cleared, display reverts to live

  Every guard violation fails atomically with no partial state change.

SEE ALSO:
  - aggregate.go: the typed MonthlyAggregate snapshot value
  - service.go:   the engine service orchestrating records and transitions
  - errors.go:    the error taxonomy (validation / transition / not-found)
*/
package submission

// Status is the approval state of a MonthlySubmission.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// Editable reports whether daily records of the month may be created,
// edited, or deleted. Pending and Approved months are read-only.
func (s Status) Editable() bool {
	switch s {
	case StatusDraft, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// CanSubmit reports whether submit (or re-submit) is allowed.
func (s Status) CanSubmit() bool { return s.Editable() }

// CanReview reports whether approve, reject, or withdraw is allowed.
func (s Status) CanReview() bool { return s == StatusPending }

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool { return s == StatusApproved }

// SnapshotAuthoritative reports whether consumers must read the stored
// snapshot instead of recomputing live.
func (s Status) SnapshotAuthoritative() bool { return s == StatusApproved }

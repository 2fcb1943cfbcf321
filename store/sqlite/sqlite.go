/*
Package sqlite provides the SQLite-backed implementation of the payroll
engine's storage interfaces.

PURPOSE:
  Implements submission.Store plus the admin surface (clients, contracts)
  using database/sql. In production the same patterns apply to PostgreSQL;
  only minor SQL dialect differences.

KEY TABLES:
  clients:              rounding configuration per client company
  contracts:            billing terms (read-only to the calculators)
  daily_records:        one row per (contract, work date); UNIQUE enforced
  monthly_submissions:  one row per (person, year_month) with the frozen
                        aggregate stored as a JSON blob; UNIQUE enforced
  submission_logs:      append-only audit trail of workflow transitions

CONCURRENCY:
  Submission and approval for a given (person, month) are serialized by a
  compare-and-swap on the status column (UPDATE ... WHERE status = ?)
  inside a single SQL transaction, not by application-level locks. The
  struct-level RWMutex only covers SQLite's single-writer limitation.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := submission.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - submission/store.go: interface definition and transition semantics
  - submission/service.go: the engine driving these queries
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sesflow/payroll-engine/billing"
	"github.com/sesflow/payroll-engine/submission"
	"github.com/sesflow/payroll-engine/timesheet"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339
)

// Store implements submission.Store over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx abstracts *sql.DB and *sql.Tx so the same query code serves both
// the plain store and its transactional view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rounding_unit_minutes INTEGER NOT NULL DEFAULT 15,
		rounding_mode TEXT NOT NULL DEFAULT 'nearest',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		standard_working_hours TEXT NOT NULL,
		min_working_hours TEXT,
		max_working_hours TEXT,
		min_guaranteed_hours TEXT,
		free_overtime_hours TEXT NOT NULL DEFAULT '0',
		overtime_rate TEXT NOT NULL DEFAULT '1',
		shortage_rate TEXT NOT NULL DEFAULT '1',
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_person
		ON contracts(person_id);

	CREATE TABLE IF NOT EXISTS daily_records (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		clock_in TEXT,
		clock_out TEXT,
		lunch_break_min INTEGER NOT NULL DEFAULT 0,
		evening_break_min INTEGER NOT NULL DEFAULT 0,
		other_break_min INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL,
		remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(contract_id, work_date)
	);

	CREATE INDEX IF NOT EXISTS idx_daily_records_contract_date
		ON daily_records(contract_id, work_date);

	CREATE TABLE IF NOT EXISTS monthly_submissions (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		year_month TEXT NOT NULL,
		status TEXT NOT NULL,
		snapshot_json TEXT,
		submitted_at TEXT,
		approved_at TEXT,
		approver_id TEXT NOT NULL DEFAULT '',
		submit_remark TEXT NOT NULL DEFAULT '',
		approve_remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(person_id, year_month)
	);

	CREATE TABLE IF NOT EXISTS submission_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submission_logs_submission
		ON submission_logs(submission_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset wipes every table. Demo and test tooling only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"submission_logs", "monthly_submissions", "daily_records", "contracts", "clients",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// CLIENTS - Rounding configuration
// =============================================================================

// Client is a client company carrying the attendance rounding rule applied
// to everyone working its contracts.
type Client struct {
	ID       timesheet.ClientID
	Name     string
	Rounding timesheet.RoundingPolicy
}

// SaveClient inserts or updates a client.
func (s *Store) SaveClient(ctx context.Context, c Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, rounding_unit_minutes, rounding_mode, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rounding_unit_minutes = excluded.rounding_unit_minutes,
			rounding_mode = excluded.rounding_mode`,
		c.ID, c.Name, c.Rounding.UnitMinutes, string(c.Rounding.Mode),
		time.Now().UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// GetClient returns a client, or nil when it does not exist.
func (s *Store) GetClient(ctx context.Context, id timesheet.ClientID) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Client
	var mode string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, rounding_unit_minutes, rounding_mode
		FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Rounding.UnitMinutes, &mode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c.Rounding.Mode = timesheet.RoundingMode(mode)
	return &c, nil
}

// RoundingPolicyForContract resolves contract -> client -> rounding rule.
// Callers treat any error here as "use the default policy".
func (s *Store) RoundingPolicyForContract(ctx context.Context, id timesheet.ContractID) (timesheet.RoundingPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return roundingPolicyForContract(ctx, s.db, id)
}

func roundingPolicyForContract(ctx context.Context, q dbtx, id timesheet.ContractID) (timesheet.RoundingPolicy, error) {
	var policy timesheet.RoundingPolicy
	var mode string
	err := q.QueryRowContext(ctx, `
		SELECT cl.rounding_unit_minutes, cl.rounding_mode
		FROM contracts ct JOIN clients cl ON cl.id = ct.client_id
		WHERE ct.id = ?`, id).
		Scan(&policy.UnitMinutes, &mode)
	if err != nil {
		return timesheet.RoundingPolicy{}, fmt.Errorf("failed to resolve rounding policy: %w", err)
	}
	policy.Mode = timesheet.RoundingMode(mode)
	return policy, nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

// SaveContract inserts or updates a contract. Monetary and hour fields are
// stored as decimal strings to avoid float drift.
func (s *Store) SaveContract(ctx context.Context, c *billing.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts
		(id, client_id, person_id, unit_price, standard_working_hours,
		 min_working_hours, max_working_hours, min_guaranteed_hours,
		 free_overtime_hours, overtime_rate, shortage_rate,
		 start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			person_id = excluded.person_id,
			unit_price = excluded.unit_price,
			standard_working_hours = excluded.standard_working_hours,
			min_working_hours = excluded.min_working_hours,
			max_working_hours = excluded.max_working_hours,
			min_guaranteed_hours = excluded.min_guaranteed_hours,
			free_overtime_hours = excluded.free_overtime_hours,
			overtime_rate = excluded.overtime_rate,
			shortage_rate = excluded.shortage_rate,
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		c.ID, c.ClientID, c.PersonID,
		c.UnitPrice.String(), c.StandardWorkingHours.String(),
		nullDecimal(c.MinWorkingHours), nullDecimal(c.MaxWorkingHours),
		nullDecimal(c.MinGuaranteedHours),
		c.FreeOvertimeHours.String(), c.OvertimeRate.String(), c.ShortageRate.String(),
		optionalDate(c.StartDate), optionalDate(c.EndDate),
		time.Now().UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

// Contract returns a contract by ID.
func (s *Store) Contract(ctx context.Context, id timesheet.ContractID) (*billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contractQuery(ctx, s.db, `WHERE id = ?`, id)
}

// ContractForPerson returns the contract covering the person on the given
// date. With overlapping contracts the one ending last wins.
func (s *Store) ContractForPerson(ctx context.Context, personID timesheet.PersonID, asOf time.Time) (*billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contractForPerson(ctx, s.db, personID, asOf)
}

func contractForPerson(ctx context.Context, q dbtx, personID timesheet.PersonID, asOf time.Time) (*billing.Contract, error) {
	day := asOf.Format(dateLayout)
	return contractQuery(ctx, q, `
		WHERE person_id = ?
		  AND (start_date = '' OR start_date <= ?)
		  AND (end_date = '' OR end_date >= ?)
		ORDER BY end_date DESC LIMIT 1`, personID, day, day)
}

const contractColumns = `
	SELECT id, client_id, person_id, unit_price, standard_working_hours,
	       min_working_hours, max_working_hours, min_guaranteed_hours,
	       free_overtime_hours, overtime_rate, shortage_rate,
	       start_date, end_date
	FROM contracts `

func contractQuery(ctx context.Context, q dbtx, where string, args ...any) (*billing.Contract, error) {
	row := q.QueryRowContext(ctx, contractColumns+where, args...)

	var c billing.Contract
	var unitPrice, stdHours, freeOT, otRate, shRate string
	var minH, maxH, guarH sql.NullString
	var start, end string

	err := row.Scan(&c.ID, &c.ClientID, &c.PersonID, &unitPrice, &stdHours,
		&minH, &maxH, &guarH, &freeOT, &otRate, &shRate, &start, &end)
	if err == sql.ErrNoRows {
		return nil, submission.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}

	if c.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("corrupt unit_price: %w", err)
	}
	if c.StandardWorkingHours, err = decimal.NewFromString(stdHours); err != nil {
		return nil, fmt.Errorf("corrupt standard_working_hours: %w", err)
	}
	if c.FreeOvertimeHours, err = decimal.NewFromString(freeOT); err != nil {
		return nil, fmt.Errorf("corrupt free_overtime_hours: %w", err)
	}
	if c.OvertimeRate, err = decimal.NewFromString(otRate); err != nil {
		return nil, fmt.Errorf("corrupt overtime_rate: %w", err)
	}
	if c.ShortageRate, err = decimal.NewFromString(shRate); err != nil {
		return nil, fmt.Errorf("corrupt shortage_rate: %w", err)
	}
	c.MinWorkingHours = scanNullDecimal(minH)
	c.MaxWorkingHours = scanNullDecimal(maxH)
	c.MinGuaranteedHours = scanNullDecimal(guarH)
	c.StartDate = parseOptionalDate(start)
	c.EndDate = parseOptionalDate(end)

	return &c, nil
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

// CreateRecord inserts a new daily record. A second record for the same
// (contract, work date) returns a DuplicateRecordError.
func (s *Store) CreateRecord(ctx context.Context, rec *timesheet.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createRecord(ctx, s.db, rec)
}

func createRecord(ctx context.Context, q dbtx, rec *timesheet.DailyRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO daily_records
		(id, contract_id, work_date, clock_in, clock_out,
		 lunch_break_min, evening_break_min, other_break_min,
		 category, remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ContractID, rec.WorkDate.Format(dateLayout),
		nullClock(rec.ClockIn), nullClock(rec.ClockOut),
		rec.Breaks.Lunch, rec.Breaks.Evening, rec.Breaks.Other,
		string(rec.Category), rec.Remark,
		rec.CreatedAt.Format(tsLayout), rec.UpdatedAt.Format(tsLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &submission.DuplicateRecordError{
				ContractID: rec.ContractID,
				WorkDate:   rec.WorkDate,
			}
		}
		return fmt.Errorf("failed to create daily record: %w", err)
	}
	return nil
}

// UpdateRecord rewrites the mutable fields of an existing record.
// Contract and work date never change after creation.
func (s *Store) UpdateRecord(ctx context.Context, rec *timesheet.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRecord(ctx, s.db, rec)
}

func updateRecord(ctx context.Context, q dbtx, rec *timesheet.DailyRecord) error {
	res, err := q.ExecContext(ctx, `
		UPDATE daily_records SET
			clock_in = ?, clock_out = ?,
			lunch_break_min = ?, evening_break_min = ?, other_break_min = ?,
			category = ?, remark = ?, updated_at = ?
		WHERE id = ?`,
		nullClock(rec.ClockIn), nullClock(rec.ClockOut),
		rec.Breaks.Lunch, rec.Breaks.Evening, rec.Breaks.Other,
		string(rec.Category), rec.Remark, rec.UpdatedAt.Format(tsLayout),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update daily record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return submission.ErrRecordNotFound
	}
	return nil
}

// DeleteRecord removes a record.
func (s *Store) DeleteRecord(ctx context.Context, id timesheet.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s.db, id)
}

func deleteRecord(ctx context.Context, q dbtx, id timesheet.RecordID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM daily_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete daily record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return submission.ErrRecordNotFound
	}
	return nil
}

const recordColumns = `
	SELECT id, contract_id, work_date, clock_in, clock_out,
	       lunch_break_min, evening_break_min, other_break_min,
	       category, remark, created_at, updated_at
	FROM daily_records `

// Record returns a record by ID.
func (s *Store) Record(ctx context.Context, id timesheet.RecordID) (*timesheet.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return record(ctx, s.db, id)
}

func record(ctx context.Context, q dbtx, id timesheet.RecordID) (*timesheet.DailyRecord, error) {
	rows, err := q.QueryContext(ctx, recordColumns+`WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to load daily record: %w", err)
		}
		return nil, submission.ErrRecordNotFound
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordsForPerson returns all of a person's records for a month, across
// all of their contracts, ordered by work date.
func (s *Store) RecordsForPerson(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recordsForPerson(ctx, s.db, personID, ym)
}

func recordsForPerson(ctx context.Context, q dbtx, personID timesheet.PersonID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error) {
	return queryRecords(ctx, q, `
		SELECT r.id, r.contract_id, r.work_date, r.clock_in, r.clock_out,
		       r.lunch_break_min, r.evening_break_min, r.other_break_min,
		       r.category, r.remark, r.created_at, r.updated_at
		FROM daily_records r JOIN contracts c ON c.id = r.contract_id
		WHERE c.person_id = ? AND r.work_date BETWEEN ? AND ?
		ORDER BY r.work_date`,
		personID, ym.First().Format(dateLayout), ym.Last().Format(dateLayout))
}

// RecordsForContract returns a single contract's records for a month.
func (s *Store) RecordsForContract(ctx context.Context, contractID timesheet.ContractID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recordsForContract(ctx, s.db, contractID, ym)
}

func recordsForContract(ctx context.Context, q dbtx, contractID timesheet.ContractID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error) {
	return queryRecords(ctx, q, recordColumns+`
		WHERE contract_id = ? AND work_date BETWEEN ? AND ?
		ORDER BY work_date`,
		contractID, ym.First().Format(dateLayout), ym.Last().Format(dateLayout))
}

func queryRecords(ctx context.Context, q dbtx, query string, args ...any) ([]timesheet.DailyRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily records: %w", err)
	}
	defer rows.Close()

	var records []timesheet.DailyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (timesheet.DailyRecord, error) {
	var rec timesheet.DailyRecord
	var workDate, createdAt, updatedAt string
	var clockIn, clockOut sql.NullString

	err := rows.Scan(&rec.ID, &rec.ContractID, &workDate, &clockIn, &clockOut,
		&rec.Breaks.Lunch, &rec.Breaks.Evening, &rec.Breaks.Other,
		&rec.Category, &rec.Remark, &createdAt, &updatedAt)
	if err != nil {
		return rec, fmt.Errorf("failed to scan daily record: %w", err)
	}

	if rec.WorkDate, err = time.Parse(dateLayout, workDate); err != nil {
		return rec, fmt.Errorf("corrupt work_date: %w", err)
	}
	if rec.ClockIn, err = scanNullClock(clockIn); err != nil {
		return rec, err
	}
	if rec.ClockOut, err = scanNullClock(clockOut); err != nil {
		return rec, err
	}
	rec.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	rec.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)
	return rec, nil
}

// =============================================================================
// MONTHLY SUBMISSIONS
// =============================================================================

const submissionColumns = `
	SELECT id, person_id, year_month, status, snapshot_json,
	       submitted_at, approved_at, approver_id,
	       submit_remark, approve_remark, created_at, updated_at
	FROM monthly_submissions `

// Submission returns the (person, month) submission, or nil when none
// exists yet (the month is implicitly an editable draft).
func (s *Store) Submission(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) (*submission.MonthlySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSubmission(ctx, s.db, personID, ym)
}

func getSubmission(ctx context.Context, q dbtx, personID timesheet.PersonID, ym timesheet.YearMonth) (*submission.MonthlySubmission, error) {
	row := q.QueryRowContext(ctx, submissionColumns+`WHERE person_id = ? AND year_month = ?`,
		personID, ym.String())

	var sub submission.MonthlySubmission
	var ymStr, createdAt, updatedAt string
	var snapshot, submittedAt, approvedAt sql.NullString

	err := row.Scan(&sub.ID, &sub.PersonID, &ymStr, &sub.Status, &snapshot,
		&submittedAt, &approvedAt, &sub.ApproverID,
		&sub.SubmitRemark, &sub.ApproveRemark, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	if sub.YearMonth, err = timesheet.ParseYearMonth(ymStr); err != nil {
		return nil, fmt.Errorf("corrupt year_month: %w", err)
	}
	if snapshot.Valid && snapshot.String != "" {
		var agg submission.MonthlyAggregate
		if err := json.Unmarshal([]byte(snapshot.String), &agg); err != nil {
			return nil, fmt.Errorf("corrupt snapshot: %w", err)
		}
		sub.Snapshot = &agg
	}
	sub.SubmittedAt = scanNullTime(submittedAt)
	sub.ApprovedAt = scanNullTime(approvedAt)
	sub.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	sub.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)
	return &sub, nil
}

// CreateSubmission inserts the (person, month) row. A concurrent insert
// losing the UNIQUE race returns ErrConflict.
func (s *Store) CreateSubmission(ctx context.Context, sub *submission.MonthlySubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createSubmission(ctx, s.db, sub)
}

func createSubmission(ctx context.Context, q dbtx, sub *submission.MonthlySubmission) error {
	snapshot, err := marshalSnapshot(sub.Snapshot)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO monthly_submissions
		(id, person_id, year_month, status, snapshot_json,
		 submitted_at, approved_at, approver_id,
		 submit_remark, approve_remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.PersonID, sub.YearMonth.String(), string(sub.Status), snapshot,
		nullTime(sub.SubmittedAt), nullTime(sub.ApprovedAt), sub.ApproverID,
		sub.SubmitRemark, sub.ApproveRemark,
		sub.CreatedAt.Format(tsLayout), sub.UpdatedAt.Format(tsLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return submission.ErrConflict
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// UpdateSubmission is the compare-and-swap: the row is written only if its
// status is still `from`. Zero affected rows means a concurrent transition
// won, and the caller's transaction rolls back with ErrConflict.
func (s *Store) UpdateSubmission(ctx context.Context, sub *submission.MonthlySubmission, from submission.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSubmission(ctx, s.db, sub, from)
}

func updateSubmission(ctx context.Context, q dbtx, sub *submission.MonthlySubmission, from submission.Status) error {
	snapshot, err := marshalSnapshot(sub.Snapshot)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE monthly_submissions SET
			status = ?, snapshot_json = ?,
			submitted_at = ?, approved_at = ?, approver_id = ?,
			submit_remark = ?, approve_remark = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(sub.Status), snapshot,
		nullTime(sub.SubmittedAt), nullTime(sub.ApprovedAt), sub.ApproverID,
		sub.SubmitRemark, sub.ApproveRemark, sub.UpdatedAt.Format(tsLayout),
		sub.ID, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return submission.ErrConflict
	}
	return nil
}

func marshalSnapshot(agg *submission.MonthlyAggregate) (sql.NullString, error) {
	if agg == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(agg)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AppendLog records a workflow transition. Rows are never updated or
// deleted.
func (s *Store) AppendLog(ctx context.Context, entry submission.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLog(ctx, s.db, entry)
}

func appendLog(ctx context.Context, q dbtx, entry submission.LogEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO submission_logs
		(submission_id, operation, actor_id, from_status, to_status, remark, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SubmissionID, entry.Operation, entry.ActorID,
		string(entry.FromStatus), string(entry.ToStatus), entry.Remark,
		entry.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append submission log: %w", err)
	}
	return nil
}

// Logs returns the audit trail for a submission, oldest first.
func (s *Store) Logs(ctx context.Context, id submission.SubmissionID) ([]submission.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_id, operation, actor_id, from_status, to_status, remark, created_at
		FROM submission_logs WHERE submission_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission logs: %w", err)
	}
	defer rows.Close()

	var entries []submission.LogEntry
	for rows.Next() {
		var e submission.LogEntry
		var createdAt string
		if err := rows.Scan(&e.SubmissionID, &e.Operation, &e.ActorID,
			&e.FromStatus, &e.ToStatus, &e.Remark, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission log: %w", err)
		}
		e.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a transactional view of the store. The engine's
// multi-step operations (submit, approve, reject, withdraw) use this so a
// status change, its snapshot and its audit log commit together or not at
// all.
func (s *Store) WithTx(ctx context.Context, fn func(submission.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transactional view; every query runs through the
// enclosing *sql.Tx. Nested WithTx calls reuse the same transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Contract(ctx context.Context, id timesheet.ContractID) (*billing.Contract, error) {
	return contractQuery(ctx, ts.tx, `WHERE id = ?`, id)
}

func (ts *txStore) ContractForPerson(ctx context.Context, personID timesheet.PersonID, asOf time.Time) (*billing.Contract, error) {
	return contractForPerson(ctx, ts.tx, personID, asOf)
}

func (ts *txStore) RoundingPolicyForContract(ctx context.Context, id timesheet.ContractID) (timesheet.RoundingPolicy, error) {
	return roundingPolicyForContract(ctx, ts.tx, id)
}

func (ts *txStore) CreateRecord(ctx context.Context, rec *timesheet.DailyRecord) error {
	return createRecord(ctx, ts.tx, rec)
}

func (ts *txStore) UpdateRecord(ctx context.Context, rec *timesheet.DailyRecord) error {
	return updateRecord(ctx, ts.tx, rec)
}

func (ts *txStore) DeleteRecord(ctx context.Context, id timesheet.RecordID) error {
	return deleteRecord(ctx, ts.tx, id)
}

func (ts *txStore) Record(ctx context.Context, id timesheet.RecordID) (*timesheet.DailyRecord, error) {
	return record(ctx, ts.tx, id)
}

func (ts *txStore) RecordsForPerson(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error) {
	return recordsForPerson(ctx, ts.tx, personID, ym)
}

func (ts *txStore) RecordsForContract(ctx context.Context, contractID timesheet.ContractID, ym timesheet.YearMonth) ([]timesheet.DailyRecord, error) {
	return recordsForContract(ctx, ts.tx, contractID, ym)
}

func (ts *txStore) Submission(ctx context.Context, personID timesheet.PersonID, ym timesheet.YearMonth) (*submission.MonthlySubmission, error) {
	return getSubmission(ctx, ts.tx, personID, ym)
}

func (ts *txStore) CreateSubmission(ctx context.Context, sub *submission.MonthlySubmission) error {
	return createSubmission(ctx, ts.tx, sub)
}

func (ts *txStore) UpdateSubmission(ctx context.Context, sub *submission.MonthlySubmission, from submission.Status) error {
	return updateSubmission(ctx, ts.tx, sub, from)
}

func (ts *txStore) AppendLog(ctx context.Context, entry submission.LogEntry) error {
	return appendLog(ctx, ts.tx, entry)
}

func (ts *txStore) WithTx(ctx context.Context, fn func(submission.Store) error) error {
	return fn(ts)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanNullDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func nullClock(c *timesheet.ClockTime) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func scanNullClock(ns sql.NullString) (*timesheet.ClockTime, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	c, err := timesheet.ParseClockTime(ns.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt clock time: %w", err)
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(tsLayout), Valid: true}
}

func scanNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(tsLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func optionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseOptionalDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

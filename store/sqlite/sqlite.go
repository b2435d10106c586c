/*
Package sqlite provides a SQLite-backed implementation of the storage and
directory interfaces.

PURPOSE:
  Implements wfh.TxStore and wfh.Directory using SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Decision, withdraw-decision and status-log tables only ever receive
  INSERTs. Occurrences are never deleted; their history lives in the status
  log.

KEY TABLES:
  wfh_occurrences:    One row per (request_id, specific_date)
  request_decisions:  Append-only approve/reject records
  withdraw_decisions: Append-only withdrawal decision records
  wfh_status_log:     Append-only status-change trail
  employees:          Directory records (read-only to the engine)

CONCURRENCY:
  A store-wide mutex is held for the duration of WithTx, which is what
  serializes check-then-write approval sequences: no other approval for the
  same team/date/session can interleave between a capacity read and its
  status commit. Directory reads deliberately do NOT take the mutex - the
  engine reads the directory while inside WithTx, and the directory is
  read-only from the engine's perspective.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/wfh.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - wfh/store.go: Interface definitions
  - wfh/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/wfh-engine/wfh"
)

// memSeq names in-memory databases so every New(":memory:") is isolated.
var memSeq atomic.Int64

// Store implements wfh.TxStore and wfh.Directory using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		// Each pooled connection to a plain ":memory:" DSN gets its own
		// empty database. A named shared-cache database keeps the whole
		// pool on one schema while staying isolated per New call.
		dsn = fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_foreign_keys=on", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite3", dsn)
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

func (s *Store) migrate() error {
	schema := `
	-- WFH occurrences: one row per (request_id, specific_date)
	CREATE TABLE IF NOT EXISTS wfh_occurrences (
		request_id TEXT NOT NULL,
		specific_date TEXT NOT NULL,
		staff_id INTEGER NOT NULL,
		manager_id INTEGER NOT NULL,
		is_am BOOLEAN NOT NULL,
		is_pm BOOLEAN NOT NULL,
		status TEXT NOT NULL,
		apply_date TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (request_id, specific_date)
	);

	-- Duplicate-apply check (hot path on every apply)
	CREATE INDEX IF NOT EXISTS idx_occurrences_staff_date
		ON wfh_occurrences(staff_id, specific_date);

	-- Capacity counting: team occupants per date/session
	CREATE INDEX IF NOT EXISTS idx_occurrences_date_status
		ON wfh_occurrences(specific_date, status);

	-- Auto-reject sweep
	CREATE INDEX IF NOT EXISTS idx_occurrences_status_apply
		ON wfh_occurrences(status, apply_date);

	CREATE INDEX IF NOT EXISTS idx_occurrences_manager
		ON wfh_occurrences(manager_id, specific_date);

	-- Manager decisions (append-only)
	CREATE TABLE IF NOT EXISTS request_decisions (
		decision_id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		specific_date TEXT NOT NULL,
		manager_id INTEGER NOT NULL,
		decision_status TEXT NOT NULL,
		decision_date TEXT NOT NULL,
		decision_notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_request
		ON request_decisions(request_id, specific_date);

	-- Withdrawal decisions (append-only)
	CREATE TABLE IF NOT EXISTS withdraw_decisions (
		withdraw_decision_id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		specific_date TEXT NOT NULL,
		manager_id INTEGER NOT NULL,
		decision_status TEXT NOT NULL,
		decision_date TEXT NOT NULL,
		decision_notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_withdraw_decisions_request
		ON withdraw_decisions(request_id, specific_date);

	-- Status-change trail (append-only)
	CREATE TABLE IF NOT EXISTS wfh_status_log (
		log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		log_datetime TEXT NOT NULL,
		request_id TEXT NOT NULL,
		specific_date TEXT NOT NULL,
		status TEXT NOT NULL,
		apply_date TEXT NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_status_log_request
		ON wfh_status_log(request_id, log_datetime);

	-- Employee directory
	CREATE TABLE IF NOT EXISTS employees (
		staff_id INTEGER PRIMARY KEY,
		staff_fname TEXT NOT NULL,
		staff_lname TEXT NOT NULL,
		dept TEXT NOT NULL,
		position TEXT NOT NULL,
		country TEXT NOT NULL,
		email TEXT NOT NULL,
		reporting_manager INTEGER,
		role INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(reporting_manager);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query helper can
// run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// OCCURRENCE STORE (wfh.Store interface)
// =============================================================================

const occurrenceColumns = `request_id, specific_date, staff_id, manager_id, is_am, is_pm, status, apply_date, reason`

func (s *Store) CreateOccurrences(ctx context.Context, occs []wfh.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createOccurrences(ctx, s.db, occs)
}

func createOccurrences(ctx context.Context, db dbtx, occs []wfh.Occurrence) error {
	query := `
		INSERT INTO wfh_occurrences
		(` + occurrenceColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339)
	for _, occ := range occs {
		_, err := db.ExecContext(ctx, query,
			occ.RequestID,
			occ.SpecificDate.String(),
			occ.StaffID,
			occ.ManagerID,
			occ.IsAM,
			occ.IsPM,
			occ.Status,
			occ.ApplyDate.String(),
			occ.Reason,
			now,
			now,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("occurrence %s/%s: %w", occ.RequestID, occ.SpecificDate, wfh.ErrDuplicateRequest)
			}
			return fmt.Errorf("failed to insert occurrence: %w", err)
		}
	}
	return nil
}

func (s *Store) GetOccurrence(ctx context.Context, id wfh.RequestID, date wfh.Date) (*wfh.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOccurrence(ctx, s.db, id, date)
}

func getOccurrence(ctx context.Context, db dbtx, id wfh.RequestID, date wfh.Date) (*wfh.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM wfh_occurrences
		WHERE request_id = ? AND specific_date = ?
	`
	occs, err := queryOccurrences(ctx, db, query, id, date.String())
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		return nil, nil
	}
	return &occs[0], nil
}

func (s *Store) ListByRequest(ctx context.Context, id wfh.RequestID) ([]wfh.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByRequest(ctx, s.db, id)
}

func listByRequest(ctx context.Context, db dbtx, id wfh.RequestID) ([]wfh.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM wfh_occurrences
		WHERE request_id = ?
		ORDER BY specific_date ASC
	`
	return queryOccurrences(ctx, db, query, id)
}

func (s *Store) FindByStaffAndDate(ctx context.Context, staffID wfh.StaffID, date wfh.Date) (*wfh.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByStaffAndDate(ctx, s.db, staffID, date)
}

func findByStaffAndDate(ctx context.Context, db dbtx, staffID wfh.StaffID, date wfh.Date) (*wfh.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM wfh_occurrences
		WHERE staff_id = ? AND specific_date = ?
		LIMIT 1
	`
	occs, err := queryOccurrences(ctx, db, query, staffID, date.String())
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		return nil, nil
	}
	return &occs[0], nil
}

func (s *Store) ListByStaff(ctx context.Context, staffID wfh.StaffID, from, to wfh.Date) ([]wfh.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByStaff(ctx, s.db, staffID, from, to)
}

func listByStaff(ctx context.Context, db dbtx, staffID wfh.StaffID, from, to wfh.Date) ([]wfh.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM wfh_occurrences
		WHERE staff_id = ? AND specific_date >= ? AND specific_date <= ?
		ORDER BY specific_date ASC
	`
	return queryOccurrences(ctx, db, query, staffID, from.String(), to.String())
}

func (s *Store) ListByManager(ctx context.Context, managerID wfh.StaffID) ([]wfh.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByManager(ctx, s.db, managerID)
}

func listByManager(ctx context.Context, db dbtx, managerID wfh.StaffID) ([]wfh.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM wfh_occurrences
		WHERE manager_id = ?
		ORDER BY specific_date ASC
	`
	return queryOccurrences(ctx, db, query, managerID)
}

func (s *Store) UpdateStatus(ctx context.Context, id wfh.RequestID, date wfh.Date, upd wfh.StatusUpdate) (*wfh.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateStatus(ctx, s.db, id, date, upd)
}

func updateStatus(ctx context.Context, db dbtx, id wfh.RequestID, date wfh.Date, upd wfh.StatusUpdate) (*wfh.Occurrence, error) {
	// Only the fields StatusUpdate enumerates are mutable.
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{upd.Status, time.Now().UTC().Format(time.RFC3339)}

	if upd.Reason != nil {
		sets = append(sets, "reason = ?")
		args = append(args, *upd.Reason)
	}
	if upd.ApplyDate != nil {
		sets = append(sets, "apply_date = ?")
		args = append(args, upd.ApplyDate.String())
	}
	args = append(args, id, date.String())

	query := `UPDATE wfh_occurrences SET ` + strings.Join(sets, ", ") + `
		WHERE request_id = ? AND specific_date = ?`

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update occurrence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, wfh.ErrNotFound
	}

	return getOccurrence(ctx, db, id, date)
}

func (s *Store) CountSessionOccupants(ctx context.Context, staff []wfh.StaffID, date wfh.Date, session wfh.Session, exclude wfh.OccurrenceKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countSessionOccupants(ctx, s.db, staff, date, session, exclude)
}

func countSessionOccupants(ctx context.Context, db dbtx, staff []wfh.StaffID, date wfh.Date, session wfh.Session, exclude wfh.OccurrenceKey) (int, error) {
	if len(staff) == 0 {
		return 0, nil
	}

	sessionCol := "is_am"
	if session == wfh.SessionPM {
		sessionCol = "is_pm"
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(staff)), ",")
	query := `
		SELECT COUNT(*) FROM wfh_occurrences
		WHERE specific_date = ?
		  AND ` + sessionCol + ` = TRUE
		  AND status IN (?, ?)
		  AND staff_id IN (` + placeholders + `)
		  AND NOT (request_id = ? AND specific_date = ?)
	`

	args := []any{date.String(), wfh.StatusApproved, wfh.StatusPendingWithdraw}
	for _, id := range staff {
		args = append(args, id)
	}
	args = append(args, exclude.RequestID, exclude.SpecificDate.String())

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count session occupants: %w", err)
	}
	return count, nil
}

func (s *Store) ListStalePending(ctx context.Context, cutoff wfh.Date) ([]wfh.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStalePending(ctx, s.db, cutoff)
}

func listStalePending(ctx context.Context, db dbtx, cutoff wfh.Date) ([]wfh.Occurrence, error) {
	// Strictly before: exactly-at-cutoff rows stay pending.
	query := `
		SELECT ` + occurrenceColumns + `
		FROM wfh_occurrences
		WHERE status = ? AND apply_date < ?
		ORDER BY specific_date ASC
	`
	return queryOccurrences(ctx, db, query, wfh.StatusPending, cutoff.String())
}

func queryOccurrences(ctx context.Context, db dbtx, query string, args ...any) ([]wfh.Occurrence, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	var occs []wfh.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occs = append(occs, occ)
	}
	return occs, rows.Err()
}

func scanOccurrence(rows *sql.Rows) (wfh.Occurrence, error) {
	var (
		occ          wfh.Occurrence
		specificDate string
		applyDate    string
		reason       sql.NullString
	)

	err := rows.Scan(
		&occ.RequestID, &specificDate, &occ.StaffID, &occ.ManagerID,
		&occ.IsAM, &occ.IsPM, &occ.Status, &applyDate, &reason,
	)
	if err != nil {
		return occ, fmt.Errorf("failed to scan occurrence: %w", err)
	}

	occ.SpecificDate, err = wfh.ParseDate(specificDate)
	if err != nil {
		return occ, err
	}
	occ.ApplyDate, err = wfh.ParseDate(applyDate)
	if err != nil {
		return occ, err
	}
	occ.Reason = reason.String
	return occ, nil
}

// =============================================================================
// DECISION AND STATUS LOGS (append-only)
// =============================================================================

func (s *Store) AppendDecision(ctx context.Context, d wfh.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendDecision(ctx, s.db, "request_decisions", d.RequestID, d.SpecificDate, d.ManagerID, d.Status, d.DecisionDate, d.Notes)
}

func (s *Store) AppendWithdrawDecision(ctx context.Context, d wfh.WithdrawDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendDecision(ctx, s.db, "withdraw_decisions", d.RequestID, d.SpecificDate, d.ManagerID, d.Status, d.DecisionDate, d.Notes)
}

func appendDecision(ctx context.Context, db dbtx, table string, id wfh.RequestID, date wfh.Date, managerID wfh.StaffID, status wfh.DecisionStatus, decisionDate wfh.Date, notes string) error {
	query := `
		INSERT INTO ` + table + `
		(request_id, specific_date, manager_id, decision_status, decision_date, decision_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		id, date.String(), managerID, status, decisionDate.String(), notes,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

func (s *Store) AppendStatusLog(ctx context.Context, e wfh.StatusLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendStatusLog(ctx, s.db, e)
}

func appendStatusLog(ctx context.Context, db dbtx, e wfh.StatusLogEntry) error {
	query := `
		INSERT INTO wfh_status_log
		(log_datetime, request_id, specific_date, status, apply_date, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.LogTime.UTC().Format(time.RFC3339Nano),
		e.RequestID, e.SpecificDate.String(), e.Status, e.ApplyDate.String(), e.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to append status log: %w", err)
	}
	return nil
}

func (s *Store) ListStatusLog(ctx context.Context, id wfh.RequestID) ([]wfh.StatusLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStatusLog(ctx, s.db, id)
}

func listStatusLog(ctx context.Context, db dbtx, id wfh.RequestID) ([]wfh.StatusLogEntry, error) {
	query := `
		SELECT log_datetime, request_id, specific_date, status, apply_date, reason
		FROM wfh_status_log
		WHERE request_id = ?
		ORDER BY log_datetime ASC, log_id ASC
	`
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	var entries []wfh.StatusLogEntry
	for rows.Next() {
		var (
			e            wfh.StatusLogEntry
			logTime      string
			specificDate string
			applyDate    string
			reason       sql.NullString
		)
		if err := rows.Scan(&logTime, &e.RequestID, &specificDate, &e.Status, &applyDate, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		e.LogTime, _ = time.Parse(time.RFC3339Nano, logTime)
		if e.SpecificDate, err = wfh.ParseDate(specificDate); err != nil {
			return nil, err
		}
		if e.ApplyDate, err = wfh.ParseDate(applyDate); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONS (wfh.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store mutex is held
// for the whole call, serializing approval check-then-write sequences.
func (s *Store) WithTx(ctx context.Context, fn func(wfh.Store) error) error {
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

// txStore runs every operation against the open transaction. It never takes
// the store mutex: WithTx already holds it.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateOccurrences(ctx context.Context, occs []wfh.Occurrence) error {
	return createOccurrences(ctx, ts.tx, occs)
}

func (ts *txStore) GetOccurrence(ctx context.Context, id wfh.RequestID, date wfh.Date) (*wfh.Occurrence, error) {
	return getOccurrence(ctx, ts.tx, id, date)
}

func (ts *txStore) ListByRequest(ctx context.Context, id wfh.RequestID) ([]wfh.Occurrence, error) {
	return listByRequest(ctx, ts.tx, id)
}

func (ts *txStore) FindByStaffAndDate(ctx context.Context, staffID wfh.StaffID, date wfh.Date) (*wfh.Occurrence, error) {
	return findByStaffAndDate(ctx, ts.tx, staffID, date)
}

func (ts *txStore) ListByStaff(ctx context.Context, staffID wfh.StaffID, from, to wfh.Date) ([]wfh.Occurrence, error) {
	return listByStaff(ctx, ts.tx, staffID, from, to)
}

func (ts *txStore) ListByManager(ctx context.Context, managerID wfh.StaffID) ([]wfh.Occurrence, error) {
	return listByManager(ctx, ts.tx, managerID)
}

func (ts *txStore) UpdateStatus(ctx context.Context, id wfh.RequestID, date wfh.Date, upd wfh.StatusUpdate) (*wfh.Occurrence, error) {
	return updateStatus(ctx, ts.tx, id, date, upd)
}

func (ts *txStore) CountSessionOccupants(ctx context.Context, staff []wfh.StaffID, date wfh.Date, session wfh.Session, exclude wfh.OccurrenceKey) (int, error) {
	return countSessionOccupants(ctx, ts.tx, staff, date, session, exclude)
}

func (ts *txStore) ListStalePending(ctx context.Context, cutoff wfh.Date) ([]wfh.Occurrence, error) {
	return listStalePending(ctx, ts.tx, cutoff)
}

func (ts *txStore) AppendDecision(ctx context.Context, d wfh.Decision) error {
	return appendDecision(ctx, ts.tx, "request_decisions", d.RequestID, d.SpecificDate, d.ManagerID, d.Status, d.DecisionDate, d.Notes)
}

func (ts *txStore) AppendWithdrawDecision(ctx context.Context, d wfh.WithdrawDecision) error {
	return appendDecision(ctx, ts.tx, "withdraw_decisions", d.RequestID, d.SpecificDate, d.ManagerID, d.Status, d.DecisionDate, d.Notes)
}

func (ts *txStore) AppendStatusLog(ctx context.Context, e wfh.StatusLogEntry) error {
	return appendStatusLog(ctx, ts.tx, e)
}

func (ts *txStore) ListStatusLog(ctx context.Context, id wfh.RequestID) ([]wfh.StatusLogEntry, error) {
	return listStatusLog(ctx, ts.tx, id)
}

// =============================================================================
// EMPLOYEE DIRECTORY (wfh.Directory interface)
// =============================================================================
// No store mutex here: the engine reads the directory while holding a
// WithTx, and directory rows never change under the engine.

const employeeColumns = `staff_id, staff_fname, staff_lname, dept, position, country, email, COALESCE(reporting_manager, 0), role`

func (s *Store) EmployeeByID(ctx context.Context, id wfh.StaffID) (*wfh.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE staff_id = ?`

	var e wfh.Employee
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.StaffID, &e.FirstName, &e.LastName, &e.Dept, &e.Position,
		&e.Country, &e.Email, &e.ReportingManager, &e.Role,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	return &e, nil
}

func (s *Store) DirectReports(ctx context.Context, id wfh.StaffID) ([]wfh.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees
		WHERE reporting_manager = ?
		ORDER BY staff_id ASC`
	return s.queryEmployees(ctx, query, id)
}

// ListEmployees returns the whole directory, ordered by staff id.
func (s *Store) ListEmployees(ctx context.Context) ([]wfh.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY staff_id ASC`
	return s.queryEmployees(ctx, query)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]wfh.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []wfh.Employee
	for rows.Next() {
		var e wfh.Employee
		if err := rows.Scan(
			&e.StaffID, &e.FirstName, &e.LastName, &e.Dept, &e.Position,
			&e.Country, &e.Email, &e.ReportingManager, &e.Role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// SaveEmployee upserts one directory record (roster seeding).
func (s *Store) SaveEmployee(ctx context.Context, e wfh.Employee) error {
	query := `
		INSERT INTO employees
		(staff_id, staff_fname, staff_lname, dept, position, country, email, reporting_manager, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(staff_id) DO UPDATE SET
			staff_fname = excluded.staff_fname,
			staff_lname = excluded.staff_lname,
			dept = excluded.dept,
			position = excluded.position,
			country = excluded.country,
			email = excluded.email,
			reporting_manager = excluded.reporting_manager,
			role = excluded.role
	`

	var manager any
	if e.ReportingManager != 0 {
		manager = int(e.ReportingManager)
	}

	_, err := s.db.ExecContext(ctx, query,
		e.StaffID, e.FirstName, e.LastName, e.Dept, e.Position,
		e.Country, e.Email, manager, e.Role,
	)
	return err
}

// SeedEmployees loads a roster in one shot.
func (s *Store) SeedEmployees(ctx context.Context, employees []wfh.Employee) error {
	for _, e := range employees {
		if err := s.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("failed to seed employee %d: %w", e.StaffID, err)
		}
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"wfh_occurrences", "request_decisions", "withdraw_decisions", "wfh_status_log", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

/*
Package sqlite provides the SQLite-backed destination (attendance) store.

PURPOSE:
  Implements schedule.TxStore: reference reads for the reconciliation run and
  the transactional writes of schedule assignments, exception rows and the
  schedule id counter.

KEY TABLES:
  employee_badge:     Employee master (active flag, workgroup)
  schedule_type:      Allowed schedule type codes
  group_schedule_hd:  Group schedule headers, one per workgroup and period
  employee_schedule:  Schedule assignments
  user_wfm_exception: Exception rows of the last run(s), append-only
  ofcctrlid:          Named counters; 'employee_schedule' holds the next id

UNIQUENESS:
  idx_employee_schedule_unique enforces one row per
  (badge_no, schedule_date, seq_no). Violations surface as
  schedule.ErrDuplicateAssignment; the writer decides what to do with them.
  employee_schedule.id is indexed but not unique: a counter that fell behind
  is a known limitation, not something a run repairs.

PARAMETERS:
  Every statement is parameterized. No SQL is built from values.

CONCURRENCY:
  One connection, guarded by sync.RWMutex. A run holds the write lock for the
  whole of WithTx.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  runner := schedule.NewRunner(store, source, "WFM_IFACE")

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/wfm-interface/schedule"
)

// CounterScheduleID is the ofcctrlid row holding the next schedule id.
const CounterScheduleID = "employee_schedule"

// TimestampLayout is how audit timestamps are stored.
const TimestampLayout = "2006-01-02 15:04:05"

// Store implements schedule.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

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
	CREATE TABLE IF NOT EXISTS employee_badge (
		employee_no TEXT PRIMARY KEY,
		employee_name TEXT NOT NULL,
		work_group_code TEXT NOT NULL DEFAULT '',
		employee_status TEXT NOT NULL DEFAULT 'A'
	);

	CREATE INDEX IF NOT EXISTS idx_employee_badge_status
		ON employee_badge(employee_status);

	CREATE TABLE IF NOT EXISTS schedule_type (
		schedule_type_code TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT ''
	);

	-- work_period_id is mm/dd/yyyy; only month and year matter
	CREATE TABLE IF NOT EXISTS group_schedule_hd (
		id INTEGER PRIMARY KEY,
		work_group TEXT NOT NULL,
		work_period_id TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_group_schedule_unique
		ON group_schedule_hd(work_group, work_period_id);

	CREATE TABLE IF NOT EXISTS employee_schedule (
		id INTEGER NOT NULL,
		refer_id INTEGER NOT NULL,
		badge_no TEXT NOT NULL,
		employee_no TEXT NOT NULL,
		schedule_date TEXT NOT NULL,
		seq_no INTEGER NOT NULL,
		schedule_type TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_date TEXT NOT NULL
	);

	-- CRITICAL: at most one assignment per badge, day and sequence
	CREATE UNIQUE INDEX IF NOT EXISTS idx_employee_schedule_unique
		ON employee_schedule(badge_no, schedule_date, seq_no);

	CREATE INDEX IF NOT EXISTS idx_employee_schedule_id
		ON employee_schedule(id);

	CREATE TABLE IF NOT EXISTS user_wfm_exception (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_no TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		schedule_date TEXT NOT NULL,
		schedule_type TEXT NOT NULL DEFAULT '',
		work_group TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ofcctrlid (
		ctrlcol TEXT PRIMARY KEY,
		ctrlctr INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO ofcctrlid (ctrlcol, ctrlctr) VALUES ('employee_schedule', 1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY (schedule.Directory interface)
// =============================================================================

// ListScheduleTypes returns every schedule type code.
func (s *Store) ListScheduleTypes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT schedule_type_code FROM schedule_type")
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule types: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan schedule type: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ListGroupSchedules returns headers whose period lies in [from, to].
func (s *Store) ListGroupSchedules(ctx context.Context, from, to schedule.Period) ([]schedule.GroupScheduleHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, work_group, work_period_id
		FROM group_schedule_hd
		WHERE (substr(work_period_id, 7, 4) || substr(work_period_id, 1, 2)) BETWEEN ? AND ?
		ORDER BY work_group, id
	`

	rows, err := s.db.QueryContext(ctx, query, from.Key(), to.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to query group schedules: %w", err)
	}
	defer rows.Close()

	var headers []schedule.GroupScheduleHeader
	for rows.Next() {
		var (
			h          schedule.GroupScheduleHeader
			workGroup  string
			workPeriod string
		)
		if err := rows.Scan(&h.ReferenceID, &workGroup, &workPeriod); err != nil {
			return nil, fmt.Errorf("failed to scan group schedule: %w", err)
		}
		h.Workgroup = schedule.Workgroup(workGroup)
		if h.Period, err = schedule.ParseWorkPeriod(workPeriod); err != nil {
			return nil, fmt.Errorf("group schedule %d: %w", h.ReferenceID, err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// ListActiveEmployees returns employees with status 'A'.
func (s *Store) ListActiveEmployees(ctx context.Context) ([]schedule.EmployeeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_no, employee_name, work_group_code FROM employee_badge WHERE employee_status = ?",
		StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []schedule.EmployeeRow
	for rows.Next() {
		var e schedule.EmployeeRow
		if err := rows.Scan(&e.EmployeeNo, &e.Name, &e.Workgroup); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// ListExceptions returns every exception row by employee name, then date.
func (s *Store) ListExceptions(ctx context.Context) ([]schedule.ExceptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_no, employee_name, schedule_date, schedule_type,
		       work_group, remarks, created_by, created_date
		FROM user_wfm_exception
		ORDER BY employee_name, schedule_date, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exceptions: %w", err)
	}
	defer rows.Close()

	var records []schedule.ExceptionRecord
	for rows.Next() {
		var (
			e           schedule.ExceptionRecord
			employeeNo  string
			workGroup   string
			date        string
			createdDate string
		)
		if err := rows.Scan(&e.ID, &employeeNo, &e.EmployeeName, &date, &e.ScheduleType,
			&workGroup, &e.Remarks, &e.CreatedBy, &createdDate); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		e.EmployeeID = schedule.EmployeeID(employeeNo)
		e.Workgroup = schedule.Workgroup(workGroup)
		if e.Date, err = schedule.ParseDate(date); err != nil {
			return nil, fmt.Errorf("failed to scan exception %d: %w", e.ID, err)
		}
		if e.CreatedAt, err = time.Parse(TimestampLayout, createdDate); err != nil {
			return nil, fmt.Errorf("failed to scan exception %d created date: %w", e.ID, err)
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (schedule.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store schedule.ScheduleStore) error) error {
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

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) NextID(ctx context.Context) (int64, error) {
	return readCounter(ctx, ts.tx, CounterScheduleID)
}

func (ts *txStore) SaveNextID(ctx context.Context, next int64) error {
	res, err := ts.tx.ExecContext(ctx,
		"UPDATE ofcctrlid SET ctrlctr = ? WHERE ctrlcol = ?",
		next, CounterScheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrCounterMissing
	}
	return nil
}

func (ts *txStore) InsertAssignment(ctx context.Context, a schedule.ScheduleAssignment) error {
	return insertAssignment(ctx, ts.tx, a)
}

func (ts *txStore) DeleteAssignment(ctx context.Context, key schedule.AssignmentKey) error {
	_, err := ts.tx.ExecContext(ctx,
		"DELETE FROM employee_schedule WHERE badge_no = ? AND schedule_date = ? AND seq_no = ?",
		key.BadgeNo, key.Date.String(), key.Sequence,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

func (ts *txStore) AppendException(ctx context.Context, e schedule.ExceptionRecord) error {
	query := `
		INSERT INTO user_wfm_exception
		(employee_no, employee_name, schedule_date, schedule_type, work_group,
		 remarks, created_by, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ts.tx.ExecContext(ctx, query,
		string(e.EmployeeID),
		e.EmployeeName,
		e.Date.String(),
		e.ScheduleType,
		string(e.Workgroup),
		e.Remarks,
		e.CreatedBy,
		e.CreatedAt.Format(TimestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append exception: %w", err)
	}
	return nil
}

// TruncateExceptions clears the exception table. SQLite has no TRUNCATE;
// an unqualified DELETE takes the truncate optimization.
func (ts *txStore) TruncateExceptions(ctx context.Context) error {
	if _, err := ts.tx.ExecContext(ctx, "DELETE FROM user_wfm_exception"); err != nil {
		return fmt.Errorf("failed to truncate exceptions: %w", err)
	}
	return nil
}

func insertAssignment(ctx context.Context, db execer, a schedule.ScheduleAssignment) error {
	query := `
		INSERT INTO employee_schedule
		(id, refer_id, badge_no, employee_no, schedule_date, seq_no, schedule_type,
		 created_by, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		a.ID,
		int64(a.ReferenceID),
		a.BadgeNo,
		string(a.EmployeeID),
		a.Date.String(),
		a.Sequence,
		a.ScheduleType,
		a.CreatedBy,
		a.CreatedAt.Format(TimestampLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return schedule.ErrDuplicateAssignment
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func readCounter(ctx context.Context, db execer, name string) (int64, error) {
	var next int64
	err := db.QueryRowContext(ctx, "SELECT ctrlctr FROM ofcctrlid WHERE ctrlcol = ?", name).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, schedule.ErrCounterMissing
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return next, nil
}

// =============================================================================
// ADMIN / SEEDING
// =============================================================================

// Employee statuses.
const (
	StatusActive   = "A"
	StatusInactive = "I"
)

// EmployeeRecord is an employee_badge row.
type EmployeeRecord struct {
	EmployeeNo string
	Name       string // "Last,First"
	Workgroup  string
	Status     string
}

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp EmployeeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.Status == "" {
		emp.Status = StatusActive
	}

	query := `
		INSERT INTO employee_badge (employee_no, employee_name, work_group_code, employee_status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_no) DO UPDATE SET
			employee_name = excluded.employee_name,
			work_group_code = excluded.work_group_code,
			employee_status = excluded.employee_status
	`
	_, err := s.db.ExecContext(ctx, query, emp.EmployeeNo, emp.Name, emp.Workgroup, emp.Status)
	return err
}

// SaveScheduleType adds a schedule type code.
func (s *Store) SaveScheduleType(ctx context.Context, code, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_type (schedule_type_code, description) VALUES (?, ?)
		 ON CONFLICT(schedule_type_code) DO UPDATE SET description = excluded.description`,
		code, description,
	)
	return err
}

// SaveGroupSchedule inserts or replaces a group schedule header.
func (s *Store) SaveGroupSchedule(ctx context.Context, h schedule.GroupScheduleHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_schedule_hd (id, work_group, work_period_id) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			work_group = excluded.work_group,
			work_period_id = excluded.work_period_id`,
		int64(h.ReferenceID), string(h.Workgroup), workPeriodID(h.Period),
	)
	return err
}

// PutAssignment inserts an assignment outside of a run.
func (s *Store) PutAssignment(ctx context.Context, a schedule.ScheduleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAssignment(ctx, s.db, a)
}

// NextID reads the committed schedule id counter.
func (s *Store) NextID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCounter(ctx, s.db, CounterScheduleID)
}

// ListAssignments returns assignments dated within [from, to].
func (s *Store) ListAssignments(ctx context.Context, from, to schedule.Date) ([]schedule.ScheduleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, refer_id, badge_no, employee_no, schedule_date, seq_no, schedule_type,
		       created_by, created_date
		FROM employee_schedule
		WHERE schedule_date >= ? AND schedule_date <= ?
		ORDER BY badge_no, schedule_date, seq_no
	`

	rows, err := s.db.QueryContext(ctx, query, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []schedule.ScheduleAssignment
	for rows.Next() {
		var (
			a           schedule.ScheduleAssignment
			refID       int64
			employeeNo  string
			date        string
			createdDate string
		)
		if err := rows.Scan(&a.ID, &refID, &a.BadgeNo, &employeeNo, &date, &a.Sequence,
			&a.ScheduleType, &a.CreatedBy, &createdDate); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.ReferenceID = schedule.ReferenceID(refID)
		a.EmployeeID = schedule.EmployeeID(employeeNo)
		if a.Date, err = schedule.ParseDate(date); err != nil {
			return nil, fmt.Errorf("failed to scan assignment %d: %w", a.ID, err)
		}
		if a.CreatedAt, err = time.Parse(TimestampLayout, createdDate); err != nil {
			return nil, fmt.Errorf("failed to scan assignment %d created date: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func workPeriodID(p schedule.Period) string {
	return fmt.Sprintf("%02d/01/%04d", int(p.Month), p.Year)
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

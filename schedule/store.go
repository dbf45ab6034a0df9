/*
store.go - Persistence interfaces for the two data stores

PURPOSE:
  Separates the reconciliation logic from the databases. The destination
  (attendance) store is read for reference data and written inside a single
  transaction; the source (roster) store is read-only.

KEY INTERFACES:
  Directory:     Destination reads (schedule types, group schedules, employees)
  ScheduleStore: Destination writes, only reachable inside WithTx
  TxStore:       Directory + WithTx (one commit per run)
  ShiftSource:   Source roster reads

ROW SHAPES:
  Stores return plain rows (EmployeeRow, ShiftRow). Turning them into
  Employees and schedule codes is loader work, not store work.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: destination on SQLite
  - store/roster/roster.go: source on PostgreSQL
  - schedule/store/memory.go: in-memory, for tests and dry runs
*/
package schedule

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EmployeeRow is an active employee as the destination stores it.
// Name is "Last,First[,...]".
type EmployeeRow struct {
	EmployeeNo string
	Name       string
	Workgroup  string
}

// ShiftRow is one raw roster row from the source system.
type ShiftRow struct {
	EmployeeNo string
	Date       time.Time
	Shift      string
	Start      time.Time
	End        time.Time
	Hours      decimal.Decimal
}

// Directory reads reference data from the destination.
type Directory interface {
	// ListScheduleTypes returns every allowed schedule type code.
	ListScheduleTypes(ctx context.Context) ([]string, error)

	// ListGroupSchedules returns headers whose period lies in [from, to].
	ListGroupSchedules(ctx context.Context, from, to Period) ([]GroupScheduleHeader, error)

	// ListActiveEmployees returns employees flagged active.
	ListActiveEmployees(ctx context.Context) ([]EmployeeRow, error)
}

// ScheduleStore holds the destination writes of a run.
type ScheduleStore interface {
	// NextID reads the next schedule-assignment identifier.
	NextID(ctx context.Context) (int64, error)

	// SaveNextID persists the next schedule-assignment identifier.
	SaveNextID(ctx context.Context, next int64) error

	// InsertAssignment returns ErrDuplicateAssignment on a (badge, date, seq) conflict.
	InsertAssignment(ctx context.Context, a ScheduleAssignment) error

	// DeleteAssignment removes the assignment with the given key, if any.
	DeleteAssignment(ctx context.Context, key AssignmentKey) error

	// AppendException appends an exception row. Never updates.
	AppendException(ctx context.Context, e ExceptionRecord) error

	// TruncateExceptions removes every exception row.
	TruncateExceptions(ctx context.Context) error
}

// TxStore is the destination as seen by a run.
type TxStore interface {
	Directory

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(ScheduleStore) error) error

	// ListExceptions returns exception rows ordered by employee name, then date.
	ListExceptions(ctx context.Context) ([]ExceptionRecord, error)
}

// ShiftSource reads raw shift rows from the source roster system.
type ShiftSource interface {
	// ListShifts returns rows whose shift starts within r, ordered by
	// employee number then roster date.
	ListShifts(ctx context.Context, r DateRange) ([]ShiftRow, error)
}

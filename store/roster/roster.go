// Package roster reads shift rows from the source workforce-management
// database (PostgreSQL in production).
package roster

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/warp/wfm-interface/schedule"
)

// DefaultDriver is the database/sql driver used when none is configured.
const DefaultDriver = "postgres"

const timestampLayout = "2006-01-02 15:04:05"

// Store implements schedule.ShiftSource.
type Store struct {
	db *sql.DB
}

// Open connects to the source database.
func Open(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListShifts returns the roster rows whose shift starts on a day of r.
// The upper bound is exclusive at midnight after r.To, so shifts starting
// during the last day are included.
func (s *Store) ListShifts(ctx context.Context, r schedule.DateRange) ([]schedule.ShiftRow, error) {
	query := `
		SELECT rs.payroll, rs.rdate, r.shift, rs.start, rs.finish, rs.hours
		FROM roster r
		JOIN roster_staff rs ON r."key" = rs.roster_key
		WHERE r.start >= $1 AND r.start < $2
		ORDER BY rs.payroll, rs.rdate
	`

	from := r.From.Time().Format(timestampLayout)
	until := r.To.AddDays(1).Time().Format(timestampLayout)

	rows, err := s.db.QueryContext(ctx, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var shifts []schedule.ShiftRow
	for rows.Next() {
		var (
			row   schedule.ShiftRow
			shift sql.NullString
			hours decimal.NullDecimal
		)
		if err := rows.Scan(&row.EmployeeNo, &row.Date, &shift, &row.Start, &row.End, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		row.Shift = shift.String
		row.Hours = hours.Decimal
		shifts = append(shifts, row)
	}
	return shifts, rows.Err()
}

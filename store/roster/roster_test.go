package roster_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wfm-interface/schedule"
	"github.com/warp/wfm-interface/store/roster"
)

// The roster query only uses portable SQL, so SQLite stands in for the
// source database here.
func newSource(t *testing.T) (*roster.Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE roster ("key" INTEGER PRIMARY KEY, shift TEXT, start TIMESTAMP);
		CREATE TABLE roster_staff (
			roster_key INTEGER, payroll TEXT, rdate DATE,
			start TIMESTAMP, finish TIMESTAMP, hours REAL
		);
	`)
	require.NoError(t, err)

	st := roster.NewStore(db)
	t.Cleanup(func() { st.Close() })
	return st, db
}

func addShift(t *testing.T, db *sql.DB, key int, payroll, rdate, start, finish string, hours any) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO roster ("key", shift, start) VALUES (?, ?, ?)`, key, "DAY", start)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO roster_staff (roster_key, payroll, rdate, start, finish, hours) VALUES (?, ?, ?, ?, ?, ?)`,
		key, payroll, rdate, start, finish, hours,
	)
	require.NoError(t, err)
}

func TestListShifts_IncludesLastDay(t *testing.T) {
	// GIVEN: Shifts on Feb 29, Mar 1, Mar 2 (late evening) and Mar 3
	// WHEN: Listing Mar 1..Mar 2
	// THEN: The Mar 1 and Mar 2 shifts, including the one starting at 22:00 on the last day
	st, db := newSource(t)
	addShift(t, db, 1, "E1", "2024-02-29", "2024-02-29 07:00:00", "2024-02-29 16:00:00", 9)
	addShift(t, db, 2, "E1", "2024-03-01", "2024-03-01 07:00:00", "2024-03-01 16:00:00", 9)
	addShift(t, db, 3, "E2", "2024-03-02", "2024-03-02 22:00:00", "2024-03-03 07:00:00", 9)
	addShift(t, db, 4, "E1", "2024-03-03", "2024-03-03 07:00:00", "2024-03-03 16:00:00", 9)

	r := schedule.DateRange{
		From: schedule.NewDate(2024, time.March, 1),
		To:   schedule.NewDate(2024, time.March, 2),
	}
	got, err := st.ListShifts(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "E1", got[0].EmployeeNo)
	assert.Equal(t, "0716", schedule.ShiftCode(got[0].Start, got[0].End))
	assert.Equal(t, "E2", got[1].EmployeeNo)
	assert.Equal(t, "2207", schedule.ShiftCode(got[1].Start, got[1].End))
	assert.Equal(t, schedule.NewDate(2024, time.March, 2), schedule.DateOf(got[1].Date))
	assert.True(t, got[1].Hours.Equal(schedule.DefaultWorkHours))
}

func TestListShifts_NullHours(t *testing.T) {
	st, db := newSource(t)
	addShift(t, db, 1, "E1", "2024-03-01", "2024-03-01 07:00:00", "2024-03-01 19:00:00", nil)

	r := schedule.DateRange{From: schedule.NewDate(2024, time.March, 1), To: schedule.NewDate(2024, time.March, 1)}
	got, err := st.ListShifts(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.True(t, got[0].Hours.IsZero())
	assert.Equal(t, "DAY", got[0].Shift)
}

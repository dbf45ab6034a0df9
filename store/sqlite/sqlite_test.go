package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wfm-interface/schedule"
	"github.com/warp/wfm-interface/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func day(d int) schedule.Date { return schedule.NewDate(2024, time.March, d) }

func assignment(badge string, d int, code string, id int64) schedule.ScheduleAssignment {
	return schedule.ScheduleAssignment{
		ID:           id,
		ReferenceID:  77,
		BadgeNo:      badge,
		EmployeeID:   schedule.EmployeeID(badge),
		Date:         day(d),
		Sequence:     1,
		ScheduleType: code,
		CreatedBy:    schedule.DefaultCreatedBy,
		CreatedAt:    time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// REFERENCE READS
// =============================================================================

func TestStore_ListGroupSchedules_AcrossYearEnd(t *testing.T) {
	// GIVEN: Headers for Nov 2023 .. Feb 2024
	// WHEN: Asking for Dec 2023 .. Jan 2024
	// THEN: Exactly the two headers in between
	ctx := context.Background()
	st := newStore(t)
	periods := []schedule.Period{
		{Month: time.November, Year: 2023},
		{Month: time.December, Year: 2023},
		{Month: time.January, Year: 2024},
		{Month: time.February, Year: 2024},
	}
	for i, p := range periods {
		require.NoError(t, st.SaveGroupSchedule(ctx, schedule.GroupScheduleHeader{
			ReferenceID: schedule.ReferenceID(100 + i), Workgroup: "W1", Period: p,
		}))
	}

	got, err := st.ListGroupSchedules(ctx, periods[1], periods[2])
	require.NoError(t, err)

	assert.Equal(t, []schedule.GroupScheduleHeader{
		{ReferenceID: 101, Workgroup: "W1", Period: periods[1]},
		{ReferenceID: 102, Workgroup: "W1", Period: periods[2]},
	}, got)
}

func TestStore_ListActiveEmployees(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	require.NoError(t, st.SaveEmployee(ctx, sqlite.EmployeeRecord{EmployeeNo: "E1", Name: "Reyes,Ana", Workgroup: "W1"}))
	require.NoError(t, st.SaveEmployee(ctx, sqlite.EmployeeRecord{EmployeeNo: "E2", Name: "Gone,Ghost", Workgroup: "W1", Status: sqlite.StatusInactive}))

	got, err := st.ListActiveEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []schedule.EmployeeRow{{EmployeeNo: "E1", Name: "Reyes,Ana", Workgroup: "W1"}}, got)

	require.NoError(t, st.SaveScheduleType(ctx, "RD08", "Rest day"))
	codes, err := st.ListScheduleTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"RD08"}, codes)
}

// =============================================================================
// TRANSACTIONAL WRITES
// =============================================================================

func TestStore_InsertAssignment_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	require.NoError(t, st.PutAssignment(ctx, assignment("E1", 1, "0716", 5)))

	err := st.WithTx(ctx, func(tx schedule.ScheduleStore) error {
		return tx.InsertAssignment(ctx, assignment("E1", 1, "RD08", 6))
	})
	assert.ErrorIs(t, err, schedule.ErrDuplicateAssignment)

	// Different sequence on the same day is a different key.
	other := assignment("E1", 1, "RD08", 6)
	other.Sequence = 2
	require.NoError(t, st.PutAssignment(ctx, other))
}

func TestStore_DeleteThenInsert(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	old := assignment("E1", 1, "0716", 5)
	require.NoError(t, st.PutAssignment(ctx, old))

	err := st.WithTx(ctx, func(tx schedule.ScheduleStore) error {
		if err := tx.DeleteAssignment(ctx, old.Key()); err != nil {
			return err
		}
		return tx.InsertAssignment(ctx, assignment("E1", 1, "RD08", 6))
	})
	require.NoError(t, err)

	got, err := st.ListAssignments(ctx, day(1), day(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, assignment("E1", 1, "RD08", 6), got[0])
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that writes everything and then fails
	// THEN: No assignment, exception or counter change is visible
	ctx := context.Background()
	st := newStore(t)
	errFail := errors.New("engine failed")

	err := st.WithTx(ctx, func(tx schedule.ScheduleStore) error {
		require.NoError(t, tx.InsertAssignment(ctx, assignment("E1", 1, "RD08", 1)))
		require.NoError(t, tx.AppendException(ctx, schedule.ExceptionRecord{
			EmployeeID: "E2", EmployeeName: "Santos, Ben", Date: day(1), Remarks: schedule.RemarkNoWorkgroupSchedule,
		}))
		require.NoError(t, tx.SaveNextID(ctx, 99))
		return errFail
	})
	require.ErrorIs(t, err, errFail)

	got, err := st.ListAssignments(ctx, day(1), day(31))
	require.NoError(t, err)
	assert.Empty(t, got)

	exceptions, err := st.ListExceptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, exceptions)

	next, err := st.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestStore_Counter(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	err := st.WithTx(ctx, func(tx schedule.ScheduleStore) error {
		next, err := tx.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), next)
		return tx.SaveNextID(ctx, 42)
	})
	require.NoError(t, err)

	next, err := st.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), next)
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

func TestStore_Exceptions_OrderAndTruncate(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	created := time.Date(2024, time.April, 1, 8, 30, 0, 0, time.UTC)

	err := st.WithTx(ctx, func(tx schedule.ScheduleStore) error {
		for _, e := range []schedule.ExceptionRecord{
			{EmployeeID: "E2", EmployeeName: "Santos, Ben", Date: day(2), ScheduleType: "RD08", Workgroup: "W1", Remarks: schedule.RemarkInvalidScheduleType},
			{EmployeeID: "E1", EmployeeName: "Reyes, Ana", Date: day(1), Workgroup: "W2", Remarks: schedule.RemarkNoWorkgroupSchedule},
			{EmployeeID: "E2", EmployeeName: "Santos, Ben", Date: day(1), ScheduleType: "RD08", Workgroup: "W1", Remarks: schedule.RemarkInvalidScheduleType},
		} {
			e.CreatedBy = schedule.DefaultCreatedBy
			e.CreatedAt = created
			if err := tx.AppendException(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	got, err := st.ListExceptions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Reyes, Ana", got[0].EmployeeName)
	assert.Equal(t, "", got[0].ScheduleType)
	assert.Equal(t, day(1), got[1].Date)
	assert.Equal(t, day(2), got[2].Date)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.NotZero(t, got[0].ID)

	err = st.WithTx(ctx, func(tx schedule.ScheduleStore) error {
		return tx.TruncateExceptions(ctx)
	})
	require.NoError(t, err)

	got, err = st.ListExceptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// FULL RUN
// =============================================================================

type noShifts struct{}

func (noShifts) ListShifts(context.Context, schedule.DateRange) ([]schedule.ShiftRow, error) {
	return nil, nil
}

func TestStore_RunTwice_Idempotent(t *testing.T) {
	// GIVEN: One employee with a March calendar
	// WHEN: Running Mar 1..3 twice with overwrite
	// THEN: Three rows after each run, ids from the second run
	ctx := context.Background()
	st := newStore(t)
	require.NoError(t, st.SaveScheduleType(ctx, "RD08", ""))
	require.NoError(t, st.SaveEmployee(ctx, sqlite.EmployeeRecord{EmployeeNo: "E1", Name: "Reyes,Ana", Workgroup: "W1"}))
	require.NoError(t, st.SaveGroupSchedule(ctx, schedule.GroupScheduleHeader{
		ReferenceID: 77, Workgroup: "W1", Period: schedule.Period{Month: time.March, Year: 2024},
	}))

	runner := schedule.NewRunner(st, noShifts{}, "")
	runner.Today = func() schedule.Date { return day(31) }
	runner.Status = func(string, string) {}
	req := schedule.RunRequest{Range: schedule.DateRange{From: day(1), To: day(3)}, Overwrite: true}

	_, err := runner.Run(ctx, req)
	require.NoError(t, err)
	res, err := runner.Run(ctx, req)
	require.NoError(t, err)

	got, err := st.ListAssignments(ctx, day(1), day(3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, a := range got {
		assert.Equal(t, int64(4+i), a.ID)
		assert.Equal(t, "RD08", a.ScheduleType)
	}
	assert.Equal(t, 3, res.Overwritten)

	next, err := st.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), next)
}

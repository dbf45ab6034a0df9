package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wfm-interface/schedule"
)

func TestListRows_MalformedDatesAreErrors(t *testing.T) {
	// GIVEN: Rows written by another tool with non-ISO dates
	// THEN: Listing fails instead of returning zero dates
	ctx := context.Background()
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(`
		INSERT INTO employee_schedule
		(id, refer_id, badge_no, employee_no, schedule_date, seq_no, schedule_type, created_by, created_date)
		VALUES (1, 77, 'E1', 'E1', '03/01/2024', 1, 'RD08', 'WFM_IFACE', '2024-04-01 08:00:00')`)
	require.NoError(t, err)
	_, err = store.db.Exec(`
		INSERT INTO user_wfm_exception
		(employee_no, employee_name, schedule_date, schedule_type, work_group, remarks, created_by, created_date)
		VALUES ('E2', 'Santos, Ben', '2024-03-01', '', 'W2', 'No workgroup schedule', 'WFM_IFACE', 'yesterday')`)
	require.NoError(t, err)

	_, err = store.ListAssignments(ctx, schedule.NewDate(1, time.January, 1), schedule.NewDate(2024, time.December, 31))
	assert.ErrorContains(t, err, "failed to scan assignment 1")

	_, err = store.ListExceptions(ctx)
	assert.ErrorContains(t, err, "created date")
}

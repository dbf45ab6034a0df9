package schedule

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// EXCEPTION LEDGER - Append-only
// =============================================================================

// ExceptionLedger appends exception rows. No deduplication, no update in
// place; clearing old rows is the caller's job before the run starts.
type ExceptionLedger struct {
	store ScheduleStore
	clock func() time.Time
	count int
}

func NewExceptionLedger(store ScheduleStore) *ExceptionLedger {
	return &ExceptionLedger{store: store, clock: time.Now}
}

// Append writes rec. A zero CreatedAt is stamped with the current time.
func (l *ExceptionLedger) Append(ctx context.Context, rec ExceptionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.clock()
	}
	if err := l.store.AppendException(ctx, rec); err != nil {
		return fmt.Errorf("append exception %s/%s: %w", rec.EmployeeID, rec.Date, err)
	}
	l.count++
	return nil
}

// Count is the number of rows appended through this ledger.
func (l *ExceptionLedger) Count() int { return l.count }

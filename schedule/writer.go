/*
writer.go - Idempotent schedule assignment writer

PURPOSE:
  Applies SCHEDULE_UPSERT intents to the destination, allocating identifiers
  from the run counter and resolving (badge, date, seq) conflicts.

STATE MACHINE (per intent):

  ATTEMPT --ok--------------------------> COMMITTED   (nextID++)
     |
     +--conflict, overwrite off---------> ABANDONED   (existing row wins)
     +--conflict, overwrite on: delete--> CONFLICT_RETRY
                                             |
                                             +--ok---------> COMMITTED (nextID++)
                                             +--conflict---> ABANDONED

  The retry uses the same identifier and happens at most once.
  Any error other than ErrDuplicateAssignment is fatal and returned.

COUNTER:
  The counter is read once by NewIdempotentWriter and written back once by
  Flush, only when it moved.
*/
package schedule

import (
	"context"
	"fmt"
)

// WriteState is the state of one intent in the writer.
type WriteState string

const (
	StateAttempt       WriteState = "attempt"
	StateConflictRetry WriteState = "conflict_retry"
	StateAbandoned     WriteState = "abandoned"
	StateCommitted     WriteState = "committed"
)

// WriteOutcome reports how an intent ended.
type WriteOutcome struct {
	State       WriteState
	ID          int64 // allocated identifier, zero when abandoned
	Overwritten bool  // a conflicting row was deleted first
}

// WriteStats counts outcomes over a run.
type WriteStats struct {
	Written     int
	Overwritten int
	Abandoned   int
}

// IdempotentWriter owns the next-id counter for the duration of a run.
type IdempotentWriter struct {
	store     ScheduleStore
	overwrite bool
	startID   int64
	nextID    int64
	stats     WriteStats
}

// NewIdempotentWriter reads the counter from store.
func NewIdempotentWriter(ctx context.Context, store ScheduleStore, overwrite bool) (*IdempotentWriter, error) {
	next, err := store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schedule id counter: %w", err)
	}
	return &IdempotentWriter{
		store:     store,
		overwrite: overwrite,
		startID:   next,
		nextID:    next,
	}, nil
}

// Write inserts a with the next identifier.
func (w *IdempotentWriter) Write(ctx context.Context, a ScheduleAssignment) (WriteOutcome, error) {
	a.ID = w.nextID
	state := StateAttempt
	overwritten := false

	for {
		switch state {
		case StateAttempt, StateConflictRetry:
			err := w.store.InsertAssignment(ctx, a)
			switch {
			case err == nil:
				state = StateCommitted
			case IsFatal(err):
				return WriteOutcome{}, fmt.Errorf("insert schedule %s/%s: %w", a.BadgeNo, a.Date, err)
			case state == StateConflictRetry || !w.overwrite:
				state = StateAbandoned
			default:
				if err := w.store.DeleteAssignment(ctx, a.Key()); err != nil {
					return WriteOutcome{}, fmt.Errorf("delete schedule %s/%s: %w", a.BadgeNo, a.Date, err)
				}
				overwritten = true
				state = StateConflictRetry
			}

		case StateCommitted:
			w.nextID++
			w.stats.Written++
			if overwritten {
				w.stats.Overwritten++
			}
			return WriteOutcome{State: StateCommitted, ID: a.ID, Overwritten: overwritten}, nil

		case StateAbandoned:
			w.stats.Abandoned++
			return WriteOutcome{State: StateAbandoned, Overwritten: overwritten}, nil
		}
	}
}

// Flush persists the counter if any identifier was consumed.
// Returns whether a write happened.
func (w *IdempotentWriter) Flush(ctx context.Context) (bool, error) {
	if w.nextID == w.startID {
		return false, nil
	}
	if err := w.store.SaveNextID(ctx, w.nextID); err != nil {
		return false, fmt.Errorf("save schedule id counter: %w", err)
	}
	return true, nil
}

func (w *IdempotentWriter) StartID() int64    { return w.startID }
func (w *IdempotentWriter) NextID() int64     { return w.nextID }
func (w *IdempotentWriter) Stats() WriteStats { return w.stats }

/*
run.go - End-to-end reconciliation run

PURPOSE:
  Wires the loaders, the engine, the writer and the ledger into one run with
  a single commit.

SEQUENCE:
  1. Assert the range (from <= to <= today)
  2. Load reference data, roster and source shifts (any failure aborts, no writes)
  3. In one destination transaction:
       - optionally clear the previous run's exception rows
       - stream engine intents to the writer / ledger
       - persist the id counter if it moved
  4. Read back the exception rows for reporting

  A failure or cancellation anywhere before the commit leaves the destination
  untouched.
*/
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Status lines reported during a run.
const (
	StatusDateRange      = "Getting date range"
	StatusGroupSchedules = "Getting group schedules"
	StatusEmployees      = "Getting active employees"
	StatusSourceShifts   = "Getting schedules from the source roster"
	StatusSaving         = "Saving schedules"
	StatusFinished       = "Process finished!"
	StatusNoExceptions   = "No exception report."
)

// RunRequest is what the caller asks a run to do.
type RunRequest struct {
	Range           DateRange
	Overwrite       bool
	ResetExceptions bool
}

// RunResult summarizes a committed run.
type RunResult struct {
	RunID          string
	Range          DateRange
	Employees      int
	ShiftsMerged   int
	Written        int
	Overwritten    int
	Abandoned      int
	ExceptionCount int
	FirstID        int64
	NextID         int64
	CounterSaved   bool
	Status         string
	Exceptions     []ExceptionRecord
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Runner runs reconciliations against a destination and a source.
type Runner struct {
	Destination TxStore
	Source      ShiftSource
	Engine      *Engine

	// Today bounds the range; defaults to the current date.
	Today func() Date

	// Status receives progress lines. Defaults to the standard logger.
	Status func(runID, status string)
}

func NewRunner(dest TxStore, src ShiftSource, createdBy string) *Runner {
	return &Runner{
		Destination: dest,
		Source:      src,
		Engine:      NewEngine(createdBy),
		Today:       Today,
	}
}

// Run executes one reconciliation. On error nothing has been committed.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	res := &RunResult{
		RunID:     uuid.NewString(),
		Range:     req.Range,
		StartedAt: time.Now(),
	}

	r.status(res.RunID, StatusDateRange)
	if err := r.checkRange(req.Range); err != nil {
		return nil, err
	}

	r.status(res.RunID, StatusGroupSchedules)
	ref, err := LoadReferenceData(ctx, r.Destination, req.Range)
	if err != nil {
		return nil, err
	}

	r.status(res.RunID, StatusEmployees)
	roster, err := LoadRoster(ctx, r.Destination)
	if err != nil {
		return nil, err
	}
	res.Employees = len(roster)

	r.status(res.RunID, StatusSourceShifts)
	res.ShiftsMerged, err = FetchSourceSchedules(ctx, r.Source, req.Range, roster)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{Range: req.Range, Roster: roster, Reference: ref}

	r.status(res.RunID, StatusSaving)
	err = r.Destination.WithTx(ctx, func(store ScheduleStore) error {
		return r.apply(ctx, store, snap, req, res)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrRunAborted, err)
		}
		return nil, err
	}

	exceptions, err := r.Destination.ListExceptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read exception report: %w", err)
	}
	res.Exceptions = exceptions

	res.Status = StatusFinished
	if len(exceptions) == 0 {
		res.Status += " " + StatusNoExceptions
	}
	res.FinishedAt = time.Now()
	r.status(res.RunID, res.Status)
	return res, nil
}

func (r *Runner) apply(ctx context.Context, store ScheduleStore, snap Snapshot, req RunRequest, res *RunResult) error {
	if req.ResetExceptions {
		if err := store.TruncateExceptions(ctx); err != nil {
			return fmt.Errorf("truncate exceptions: %w", err)
		}
	}

	writer, err := NewIdempotentWriter(ctx, store, req.Overwrite)
	if err != nil {
		return err
	}
	ledger := NewExceptionLedger(store)

	err = r.Engine.Reconcile(ctx, snap, func(in Intent) error {
		switch in.Kind {
		case IntentScheduleUpsert:
			_, err := writer.Write(ctx, *in.Assignment)
			return err
		case IntentException:
			return ledger.Append(ctx, *in.Exception)
		default:
			return fmt.Errorf("unknown intent kind %q", in.Kind)
		}
	})
	if err != nil {
		return err
	}

	saved, err := writer.Flush(ctx)
	if err != nil {
		return err
	}

	stats := writer.Stats()
	res.Written = stats.Written
	res.Overwritten = stats.Overwritten
	res.Abandoned = stats.Abandoned
	res.ExceptionCount = ledger.Count()
	res.FirstID = writer.StartID()
	res.NextID = writer.NextID()
	res.CounterSaved = saved
	return nil
}

func (r *Runner) checkRange(rng DateRange) error {
	if err := rng.Validate(); err != nil {
		return err
	}
	today := Today
	if r.Today != nil {
		today = r.Today
	}
	if t := today(); rng.To.After(t) {
		return fmt.Errorf("%w: %s after %s", ErrFutureRange, rng.To, t)
	}
	return nil
}

func (r *Runner) status(runID, s string) {
	if r.Status != nil {
		r.Status(runID, s)
		return
	}
	log.Printf("[Run %s] %s", runID[:8], s)
}

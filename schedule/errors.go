/*
errors.go - Error types for the reconciliation run

ERROR CATEGORIES:
  1. Fatal load errors - reference data, roster or source shifts could not be
     read. The run aborts before any write. Wrapped in *LoadError.
  2. Write conflicts - uniqueness violation on (badge, date, seq). Recovered by
     the IdempotentWriter, never surfaced as a run failure.
  3. Range errors - the caller passed an inverted or future window.

Per-record validation problems (invalid schedule type, missing calendar entry)
are not errors at all: they become ExceptionRecords.
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when From is after To.
	ErrInvalidRange = errors.New("invalid range: from after to")

	// ErrFutureRange is returned when To is after today.
	ErrFutureRange = errors.New("invalid range: to is in the future")

	// ErrDuplicateAssignment is returned by a store when an assignment already
	// exists for the same (badge number, schedule date, sequence number).
	ErrDuplicateAssignment = errors.New("duplicate schedule assignment")

	// ErrCounterMissing is returned when the next-identifier counter row does not exist.
	ErrCounterMissing = errors.New("schedule id counter not found")

	// ErrRunAborted is returned when the run's context is canceled before commit.
	ErrRunAborted = errors.New("run aborted")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// Load stages reported by LoadError.
const (
	StageScheduleTypes  = "schedule types"
	StageGroupSchedules = "group schedules"
	StageEmployees      = "employees"
	StageSourceShifts   = "source shifts"
)

// LoadError marks a fatal failure while loading run inputs.
type LoadError struct {
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsFatal returns true if err should abort the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDuplicateAssignment)
}

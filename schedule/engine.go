/*
engine.go - Reconciliation engine

PURPOSE:
  Turns the run snapshot into a stream of write intents. The engine holds no
  state of its own: everything it reads comes from the Snapshot, everything it
  decides goes to the emit callback.

PER EMPLOYEE (ascending employee id):
  workgroup missing from the calendar entirely
      -> one EXCEPTION on the first day of the range, "No workgroup schedule",
         nothing else for this employee
  otherwise, per day (ascending):
      code   = fetched code, or rest-day default from work-hours
      code not in ScheduleTypes     -> EXCEPTION "ScheduleType is invalid."
      no reference id for the month -> EXCEPTION "No workgroup schedule"
      else                          -> SCHEDULE_UPSERT (seq 1)

ORDERING:
  Intents come out in (employee id, date) order, which is the order the
  writer allocates identifiers in.

CANCELLATION:
  ctx is checked before each employee; a canceled context stops the stream
  with ErrRunAborted.
*/
package schedule

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is the read-only input of one reconciliation.
type Snapshot struct {
	Range     DateRange
	Roster    Roster
	Reference ReferenceData
}

// Engine emits write intents for a snapshot.
type Engine struct {
	CreatedBy string
	Clock     func() time.Time
}

func NewEngine(createdBy string) *Engine {
	if createdBy == "" {
		createdBy = DefaultCreatedBy
	}
	return &Engine{CreatedBy: createdBy, Clock: time.Now}
}

// Reconcile walks the snapshot and passes every intent to emit. An error from
// emit stops the walk and is returned as is.
func (e *Engine) Reconcile(ctx context.Context, snap Snapshot, emit func(Intent) error) error {
	if err := snap.Range.Validate(); err != nil {
		return err
	}
	days := snap.Range.Days()

	for _, id := range snap.Roster.SortedIDs() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRunAborted, err)
		}
		if err := e.reconcileEmployee(snap, snap.Roster[id], days, emit); err != nil {
			return err
		}
	}
	return nil
}

// Plan collects every intent for snap.
func (e *Engine) Plan(ctx context.Context, snap Snapshot) ([]Intent, error) {
	var intents []Intent
	err := e.Reconcile(ctx, snap, func(in Intent) error {
		intents = append(intents, in)
		return nil
	})
	return intents, err
}

func (e *Engine) reconcileEmployee(snap Snapshot, emp *Employee, days []Date, emit func(Intent) error) error {
	calendar := snap.Reference.Calendar

	if !calendar.HasWorkgroup(emp.Workgroup) {
		return emit(e.exception(emp, days[0], "", RemarkNoWorkgroupSchedule))
	}

	for _, day := range days {
		code := emp.CodeFor(day)

		if !snap.Reference.Types.Valid(code) {
			if err := emit(e.exception(emp, day, code, RemarkInvalidScheduleType)); err != nil {
				return err
			}
			continue
		}

		refID, ok := calendar.Lookup(emp.Workgroup, day)
		if !ok {
			if err := emit(e.exception(emp, day, code, RemarkNoWorkgroupSchedule)); err != nil {
				return err
			}
			continue
		}

		if err := emit(e.assignment(emp, day, code, refID)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) assignment(emp *Employee, day Date, code string, refID ReferenceID) Intent {
	return Intent{
		Kind: IntentScheduleUpsert,
		Assignment: &ScheduleAssignment{
			ReferenceID:  refID,
			BadgeNo:      string(emp.ID),
			EmployeeID:   emp.ID,
			Date:         day,
			Sequence:     DefaultSequence,
			ScheduleType: code,
			CreatedBy:    e.CreatedBy,
			CreatedAt:    e.now(),
		},
	}
}

func (e *Engine) exception(emp *Employee, day Date, code, remark string) Intent {
	return Intent{
		Kind: IntentException,
		Exception: &ExceptionRecord{
			EmployeeID:   emp.ID,
			EmployeeName: emp.DisplayName(),
			Date:         day,
			ScheduleType: code,
			Workgroup:    emp.Workgroup,
			Remarks:      remark,
			CreatedBy:    e.CreatedBy,
			CreatedAt:    e.now(),
		},
	}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

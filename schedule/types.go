/*
Package schedule reconciles per-employee daily work schedules from a source
roster system into a destination attendance system.

PURPOSE:
  For every active employee and every day of a run window, the engine decides
  on one outcome: a schedule assignment written to the destination, or an
  exception row explaining why the day could not be reconciled.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: active roster entry annotated with source schedule codes
  - Roster: employees keyed by id; loaders annotate, never add or remove
  - ScheduleTypes: allow-list of destination schedule type codes
  - GroupCalendar: workgroup -> period -> reference id index
  - ScheduleAssignment / ExceptionRecord: the two write intents
  - RunState: range, overwrite flag and the next-id counter

DATA FLOW:
  LoadReferenceData + LoadRoster + FetchSourceSchedules
      -> Snapshot (read-only)
      -> Engine.Reconcile emits Intents in deterministic order
      -> IdempotentWriter (assignments) / ExceptionLedger (exceptions)
      -> single commit

SEE ALSO:
  - engine.go: the per-day state machine
  - writer.go: id allocation and conflict handling
  - run.go: end-to-end orchestration under one transaction
*/
package schedule

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCreatedBy is the audit tag stamped on every row a run writes.
const DefaultCreatedBy = "WFM_IFACE"

// Exception remarks.
const (
	RemarkNoWorkgroupSchedule = "No workgroup schedule"
	RemarkInvalidScheduleType = "ScheduleType is invalid."
)

// Rest-day schedule codes, chosen from the employee's standard work-hours.
const (
	RestDay8Hours  = "RD08"
	RestDay11Hours = "RD11"
	RestDayOther   = "REST"
)

// DefaultSequence is the only sequence number this design writes.
const DefaultSequence = 1

var (
	// DefaultWorkHours applies until source shifts override it.
	DefaultWorkHours = decimal.NewFromInt(9)
	twelveHours      = decimal.NewFromInt(12)
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type Workgroup string
type ReferenceID int64

// =============================================================================
// EMPLOYEE / ROSTER
// =============================================================================

// Employee is an active roster entry for the duration of one run.
type Employee struct {
	ID        EmployeeID
	LastName  string
	FirstName string
	Workgroup Workgroup

	// WorkHours is the standard daily work-hours. It starts at DefaultWorkHours
	// and is overwritten by the declared hours of each merged source shift.
	WorkHours decimal.Decimal

	// Codes holds the source-derived schedule code per day.
	Codes map[Date]string
}

// DisplayName is "Last, First" as it appears on exception rows.
func (e *Employee) DisplayName() string {
	return e.LastName + ", " + e.FirstName
}

// CodeFor returns the fetched code for day, or the rest-day default.
func (e *Employee) CodeFor(day Date) string {
	if code, ok := e.Codes[day]; ok {
		return code
	}
	return RestDayCode(e.WorkHours)
}

// RestDayCode maps standard work-hours to a rest-day schedule code.
func RestDayCode(hours decimal.Decimal) string {
	switch {
	case hours.Equal(DefaultWorkHours):
		return RestDay8Hours
	case hours.Equal(twelveHours):
		return RestDay11Hours
	default:
		return RestDayOther
	}
}

// Roster maps employee ids to employees.
type Roster map[EmployeeID]*Employee

// SortedIDs returns the roster keys in lexicographic order.
func (r Roster) SortedIDs() []EmployeeID {
	ids := make([]EmployeeID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ScheduleTypes is the allow-list of destination schedule type codes.
type ScheduleTypes map[string]struct{}

func NewScheduleTypes(codes ...string) ScheduleTypes {
	st := make(ScheduleTypes, len(codes))
	for _, c := range codes {
		st[c] = struct{}{}
	}
	return st
}

func (st ScheduleTypes) Valid(code string) bool {
	_, ok := st[code]
	return ok
}

// GroupScheduleHeader is one destination group schedule header row.
type GroupScheduleHeader struct {
	ReferenceID ReferenceID
	Workgroup   Workgroup
	Period      Period
}

// GroupCalendar indexes reference ids by workgroup, then period.
// At most one reference id exists per (workgroup, period); a later header
// for the same key replaces an earlier one.
type GroupCalendar map[Workgroup]map[Period]ReferenceID

func NewGroupCalendar(headers []GroupScheduleHeader) GroupCalendar {
	gc := make(GroupCalendar)
	for _, h := range headers {
		gc.Add(h)
	}
	return gc
}

func (gc GroupCalendar) Add(h GroupScheduleHeader) {
	periods, ok := gc[h.Workgroup]
	if !ok {
		periods = make(map[Period]ReferenceID)
		gc[h.Workgroup] = periods
	}
	periods[h.Period] = h.ReferenceID
}

// HasWorkgroup reports whether any period exists for wg.
func (gc GroupCalendar) HasWorkgroup(wg Workgroup) bool {
	_, ok := gc[wg]
	return ok
}

// Lookup returns the reference id for wg in the period containing day.
func (gc GroupCalendar) Lookup(wg Workgroup, day Date) (ReferenceID, bool) {
	id, ok := gc[wg][day.Period()]
	return id, ok
}

// =============================================================================
// WRITE INTENTS
// =============================================================================

// AssignmentKey is the destination uniqueness key of a schedule assignment.
type AssignmentKey struct {
	BadgeNo  string
	Date     Date
	Sequence int
}

// ScheduleAssignment is one row of the destination schedule table.
// ID is zero until the IdempotentWriter allocates one.
type ScheduleAssignment struct {
	ID           int64
	ReferenceID  ReferenceID
	BadgeNo      string
	EmployeeID   EmployeeID
	Date         Date
	Sequence     int
	ScheduleType string
	CreatedBy    string
	CreatedAt    time.Time
}

func (a ScheduleAssignment) Key() AssignmentKey {
	return AssignmentKey{BadgeNo: a.BadgeNo, Date: a.Date, Sequence: a.Sequence}
}

// ExceptionRecord is an employee-day that could not be reconciled.
type ExceptionRecord struct {
	ID           int64 // assigned by the store
	EmployeeID   EmployeeID
	EmployeeName string
	Date         Date
	ScheduleType string
	Workgroup    Workgroup
	Remarks      string
	CreatedBy    string
	CreatedAt    time.Time
}

// IntentKind tells the run which sink an intent goes to.
type IntentKind string

const (
	IntentScheduleUpsert IntentKind = "schedule_upsert"
	IntentException      IntentKind = "exception"
)

// Intent is one decision of the engine. Exactly one of Assignment or
// Exception is set, matching Kind.
type Intent struct {
	Kind       IntentKind
	Assignment *ScheduleAssignment
	Exception  *ExceptionRecord
}

// =============================================================================
// RUN STATE
// =============================================================================

// RunState is the per-run control data.
type RunState struct {
	Range     DateRange
	Overwrite bool
	NextID    int64
}

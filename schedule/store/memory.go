// Package store provides in-memory schedule stores.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/wfm-interface/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory destination and source (for testing/dry runs)
// =============================================================================

type employee struct {
	row    schedule.EmployeeRow
	active bool
}

type state struct {
	assignments map[schedule.AssignmentKey]schedule.ScheduleAssignment
	exceptions  []schedule.ExceptionRecord
	nextID      int64
	exceptionID int64
}

func (s *state) clone() *state {
	c := &state{
		assignments: make(map[schedule.AssignmentKey]schedule.ScheduleAssignment, len(s.assignments)),
		exceptions:  make([]schedule.ExceptionRecord, len(s.exceptions)),
		nextID:      s.nextID,
		exceptionID: s.exceptionID,
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	copy(c.exceptions, s.exceptions)
	return c
}

// Memory implements schedule.TxStore and schedule.ShiftSource.
type Memory struct {
	mu        sync.RWMutex
	types     []string
	headers   []schedule.GroupScheduleHeader
	employees []employee
	shifts    []schedule.ShiftRow
	state     *state
}

func NewMemory() *Memory {
	return &Memory{
		state: &state{
			assignments: make(map[schedule.AssignmentKey]schedule.ScheduleAssignment),
			nextID:      1,
		},
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) AddScheduleTypes(codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, codes...)
}

func (m *Memory) AddGroupSchedule(h schedule.GroupScheduleHeader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers = append(m.headers, h)
}

func (m *Memory) AddEmployee(row schedule.EmployeeRow, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = append(m.employees, employee{row: row, active: active})
}

func (m *Memory) AddShift(row schedule.ShiftRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts = append(m.shifts, row)
}

// PutAssignment stores a directly, bypassing the uniqueness check.
func (m *Memory) PutAssignment(a schedule.ScheduleAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.assignments[a.Key()] = a
}

func (m *Memory) SetNextID(next int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID = next
}

// Assignments returns every stored assignment ordered by badge, date, sequence.
func (m *Memory) Assignments() []schedule.ScheduleAssignment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schedule.ScheduleAssignment, 0, len(m.state.assignments))
	for _, a := range m.state.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BadgeNo != out[j].BadgeNo {
			return out[i].BadgeNo < out[j].BadgeNo
		}
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// CurrentNextID returns the committed counter value.
func (m *Memory) CurrentNextID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.nextID
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) ListScheduleTypes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.types))
	copy(out, m.types)
	return out, nil
}

func (m *Memory) ListGroupSchedules(_ context.Context, from, to schedule.Period) ([]schedule.GroupScheduleHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.GroupScheduleHeader
	for _, h := range m.headers {
		if h.Period.Before(from) || to.Before(h.Period) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *Memory) ListActiveEmployees(_ context.Context) ([]schedule.EmployeeRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.EmployeeRow
	for _, e := range m.employees {
		if e.active {
			out = append(out, e.row)
		}
	}
	return out, nil
}

func (m *Memory) ListExceptions(_ context.Context) ([]schedule.ExceptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.ExceptionRecord, len(m.state.exceptions))
	copy(out, m.state.exceptions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// =============================================================================
// SHIFT SOURCE
// =============================================================================

func (m *Memory) ListShifts(_ context.Context, r schedule.DateRange) ([]schedule.ShiftRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.ShiftRow
	for _, s := range m.shifts {
		if r.Contains(schedule.DateOf(s.Start)) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeNo != out[j].EmployeeNo {
			return out[i].EmployeeNo < out[j].EmployeeNo
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// =============================================================================
// TRANSACTIONAL WRITES
// =============================================================================

// WithTx runs fn against a copy of the write state; the copy replaces the
// committed state only if fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(schedule.ScheduleStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memoryTx struct {
	state *state
}

func (t *memoryTx) NextID(_ context.Context) (int64, error) {
	return t.state.nextID, nil
}

func (t *memoryTx) SaveNextID(_ context.Context, next int64) error {
	t.state.nextID = next
	return nil
}

func (t *memoryTx) InsertAssignment(_ context.Context, a schedule.ScheduleAssignment) error {
	if _, exists := t.state.assignments[a.Key()]; exists {
		return schedule.ErrDuplicateAssignment
	}
	t.state.assignments[a.Key()] = a
	return nil
}

func (t *memoryTx) DeleteAssignment(_ context.Context, key schedule.AssignmentKey) error {
	delete(t.state.assignments, key)
	return nil
}

func (t *memoryTx) AppendException(_ context.Context, e schedule.ExceptionRecord) error {
	t.state.exceptionID++
	e.ID = t.state.exceptionID
	t.state.exceptions = append(t.state.exceptions, e)
	return nil
}

func (t *memoryTx) TruncateExceptions(_ context.Context) error {
	t.state.exceptions = nil
	return nil
}

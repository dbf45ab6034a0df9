package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// REFERENCE DATA LOADER
// =============================================================================

// ReferenceData is the immutable reference snapshot of a run.
type ReferenceData struct {
	Types    ScheduleTypes
	Calendar GroupCalendar
}

// LoadReferenceData reads the schedule type vocabulary and the group schedule
// calendar for the months spanned by r. Any failure is fatal.
func LoadReferenceData(ctx context.Context, dir Directory, r DateRange) (ReferenceData, error) {
	codes, err := dir.ListScheduleTypes(ctx)
	if err != nil {
		return ReferenceData{}, &LoadError{Stage: StageScheduleTypes, Err: err}
	}

	first, last := r.Periods()
	headers, err := dir.ListGroupSchedules(ctx, first, last)
	if err != nil {
		return ReferenceData{}, &LoadError{Stage: StageGroupSchedules, Err: err}
	}

	return ReferenceData{
		Types:    NewScheduleTypes(codes...),
		Calendar: NewGroupCalendar(headers),
	}, nil
}

// =============================================================================
// EMPLOYEE ROSTER
// =============================================================================

// LoadRoster reads the active employees. Every employee starts with the
// default 9 standard work-hours and no fetched codes.
func LoadRoster(ctx context.Context, dir Directory) (Roster, error) {
	rows, err := dir.ListActiveEmployees(ctx)
	if err != nil {
		return nil, &LoadError{Stage: StageEmployees, Err: err}
	}

	roster := make(Roster, len(rows))
	for _, row := range rows {
		last, first := SplitName(row.Name)
		id := EmployeeID(row.EmployeeNo)
		roster[id] = &Employee{
			ID:        id,
			LastName:  last,
			FirstName: first,
			Workgroup: Workgroup(row.Workgroup),
			WorkHours: DefaultWorkHours,
			Codes:     make(map[Date]string),
		}
	}
	return roster, nil
}

// SplitName splits "Last,First[,...]" into last and first name.
// Parts after the second comma are discarded; without a comma the whole
// value is the last name.
func SplitName(full string) (last, first string) {
	parts := strings.SplitN(full, ",", 3)
	if len(parts) == 1 {
		return full, ""
	}
	return parts[0], parts[1]
}

// =============================================================================
// SOURCE SCHEDULE FETCHER
// =============================================================================

// FetchSourceSchedules reads the source shifts of r and merges them into roster.
func FetchSourceSchedules(ctx context.Context, src ShiftSource, r DateRange, roster Roster) (int, error) {
	rows, err := src.ListShifts(ctx, r)
	if err != nil {
		return 0, &LoadError{Stage: StageSourceShifts, Err: err}
	}
	return MergeShifts(roster, rows), nil
}

// MergeShifts annotates roster employees with the code derived from each row
// and takes the row's declared hours as the employee's standard work-hours.
// Rows for employees outside the roster are dropped. The last row for a given
// (employee, day) wins. Returns the number of rows merged.
func MergeShifts(roster Roster, rows []ShiftRow) int {
	merged := 0
	for _, row := range rows {
		emp, ok := roster[EmployeeID(row.EmployeeNo)]
		if !ok {
			continue
		}
		if emp.Codes == nil {
			emp.Codes = make(map[Date]string)
		}
		emp.Codes[DateOf(row.Date)] = ShiftCode(row.Start, row.End)
		emp.WorkHours = row.Hours
		merged++
	}
	return merged
}

// ShiftCode joins the two-digit hours of start and end, e.g. 07:30-16:00 is
// "0716". Minutes are ignored; destination codes are hour-granular.
func ShiftCode(start, end time.Time) string {
	return fmt.Sprintf("%02d%02d", start.Hour(), end.Hour())
}

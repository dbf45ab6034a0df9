package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day without a time of day
// =============================================================================

// DateLayout is the ISO layout used for dates on the wire and in the stores.
const DateLayout = "2006-01-02"

// Date is a calendar day. It is comparable and safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func Today() Date { return DateOf(time.Now()) }

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date        { return DateOf(d.Time().AddDate(0, 0, n)) }
func (d Date) Before(o Date) bool        { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool         { return d.Time().After(o.Time()) }
func (d Date) Equal(o Date) bool         { return d == o }
func (d Date) IsZero() bool              { return d == Date{} }
func (d Date) String() string            { return d.Time().Format(DateLayout) }
func (d Date) Period() Period            { return Period{Month: d.Month, Year: d.Year} }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }

// =============================================================================
// DATE RANGE - Inclusive run window
// =============================================================================

// DateRange is the inclusive [From, To] window of a run.
type DateRange struct {
	From Date
	To   Date
}

func NewDateRange(from, to Date) (DateRange, error) {
	r := DateRange{From: from, To: to}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

func (r DateRange) Validate() error {
	if r.From.After(r.To) {
		return fmt.Errorf("%w: %s after %s", ErrInvalidRange, r.From, r.To)
	}
	return nil
}

// Days returns every date in the range in ascending order, both ends included.
// Each call builds a fresh slice, so the sequence can be walked any number of times.
// An inverted range yields no dates.
func (r DateRange) Days() []Date {
	if r.From.After(r.To) {
		return nil
	}
	days := make([]Date, 0, r.Len())
	for cur := r.From; cur.BeforeOrEqual(r.To); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// Len is the number of days in the range.
func (r DateRange) Len() int {
	if r.From.After(r.To) {
		return 0
	}
	return int(r.To.Time().Sub(r.From.Time()).Hours()/24) + 1
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Periods returns the first and last month/year the range touches.
func (r DateRange) Periods() (first, last Period) {
	return r.From.Period(), r.To.Period()
}

func (r DateRange) String() string {
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}

// =============================================================================
// PERIOD - Month/year key of a group schedule calendar
// =============================================================================

// Period is the month/year granularity group schedules are indexed by.
type Period struct {
	Month time.Month
	Year  int
}

// ParseWorkPeriod reads a group schedule header period. The destination stores
// it as mm/dd/yyyy; only the month and year are significant.
func ParseWorkPeriod(s string) (Period, error) {
	t, err := time.Parse("01/02/2006", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid work period %q: %w", s, err)
	}
	return Period{Month: t.Month(), Year: t.Year()}, nil
}

// Key is a sortable yyyymm form.
func (p Period) Key() string { return fmt.Sprintf("%04d%02d", p.Year, int(p.Month)) }

func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

// String is the mm/yyyy display form.
func (p Period) String() string { return fmt.Sprintf("%02d/%04d", int(p.Month), p.Year) }

package practice

import (
	"encoding/json"
	"time"
)

// =============================================================================
// DATE - Day-granularity time (deadlines, invoice dates, payment dates)
// =============================================================================

// Date is a calendar day in UTC. All deadline, staleness and window math in
// the dashboard works on whole days, so dates are normalized to midnight.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// DaysBetween returns the whole days from 'from' to 'to' (negative when to
// precedes from).
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// Month bounds, used for the current-month invoiced total.
func StartOfMonth(d Date) Date { return NewDate(d.Time.Year(), d.Time.Month(), 1) }
func EndOfMonth(d Date) Date {
	first := time.Date(d.Time.Year(), d.Time.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: first.AddDate(0, 0, -1)}
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// JSON form is the bare YYYY-MM-DD string; the zero date is "".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// =============================================================================
// CLOCK - Injected so tests can pin "today"
// =============================================================================

// Clock supplies the current instant. The aggregator derives its "today" and
// all window boundaries from it; tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }

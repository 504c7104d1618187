package domain

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// BusinessZone is the fixed zone deadlines are defined in, independent of the
// viewer's locale.
var BusinessZone = time.FixedZone("UTC+8", 8*60*60)

// Date is a civil calendar date. All deadline comparisons in the engine run on
// Date values built from local calendar fields, never on raw timestamps, so a
// timezone conversion can never shift a deadline by a day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// toTime anchors the date at UTC midnight. Only used internally for arithmetic;
// the UTC anchor keeps AddDays/DaysUntil immune to daylight transitions.
func (d Date) toTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(days int) Date {
	return DateOf(d.toTime().AddDate(0, 0, days))
}

// DaysUntil returns the number of whole days from d to other. Negative when
// other precedes d.
func (d Date) DaysUntil(other Date) int {
	return int(other.toTime().Sub(d.toTime()) / (24 * time.Hour))
}

func (d Date) Before(other Date) bool {
	return d.toTime().Before(other.toTime())
}

func (d Date) After(other Date) bool {
	return d.toTime().After(other.toTime())
}

func (d Date) Equal(other Date) bool {
	return d == other
}

// MarshalJSON serializes as "YYYY-MM-DD"; the zero Date serializes as null so
// an unset due date never leaves the engine as a fake epoch value.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*d = Date{}
		return nil
	}
	// Backends occasionally send a full timestamp; keep the calendar fields only.
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock resolves "today". The production implementation is pinned to
// BusinessZone; tests inject a fixed value.
type Clock interface {
	Today() Date
}

// BusinessClock resolves today in the fixed business zone.
type BusinessClock struct{}

func (BusinessClock) Today() Date {
	return DateOf(time.Now().In(BusinessZone))
}

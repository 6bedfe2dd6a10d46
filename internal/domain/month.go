package domain

import (
	"fmt"
	"time"
)

// DateLayout is the layout of pickup_date values.
const DateLayout = "2006-01-02"

// Month is the calendar month a dataset is scoped to.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a month written as YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Start is the first instant of the month (inclusive).
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive).
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MicrosToTime converts a Unix-microsecond wall-clock value to a UTC time.
func MicrosToTime(us float64) time.Time {
	return time.UnixMicro(int64(us)).UTC()
}

// TimeToMicros converts a wall-clock time to Unix microseconds.
func TimeToMicros(t time.Time) float64 {
	return float64(t.UnixMicro())
}

package timecalc

import (
	"fmt"
	"math"
	"time"
)

// Policy decides which calendar day, and therefore which month, an instant
// belongs to. Every aggregation applies one Policy uniformly.
type Policy struct {
	Location *time.Location
}

// PolicyFor resolves a configured timezone name. An empty name means the
// device's local time.
func PolicyFor(name string) (Policy, error) {
	switch name {
	case "", "Local", "local":
		return Policy{Location: time.Local}, nil
	case "UTC", "utc":
		return Policy{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Policy{}, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return Policy{Location: loc}, nil
}

// UTCPolicy slices months in UTC.
func UTCPolicy() Policy {
	return Policy{Location: time.UTC}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// In converts t into the policy's location.
func (p Policy) In(t time.Time) time.Time {
	return t.In(p.loc())
}

// MonthRange returns the first instant of the month and the first instant of
// the following month, so a time t is in the month when start <= t < end.
func (p Policy) MonthRange(month time.Month, year int) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, p.loc())
	return start, start.AddDate(0, 1, 0)
}

// InMonth reports whether t falls in the given calendar month.
func (p Policy) InMonth(t time.Time, month time.Month, year int) bool {
	lt := p.In(t)
	return lt.Year() == year && lt.Month() == month
}

// SameMonth reports whether a and b fall in the same calendar month.
func (p Policy) SameMonth(a, b time.Time) bool {
	la, lb := p.In(a), p.In(b)
	return la.Year() == lb.Year() && la.Month() == lb.Month()
}

// ServiceYearRange returns the bounds of service year n, which runs from
// September 1 of n-1 up to September 1 of n.
func (p Policy) ServiceYearRange(n int) (time.Time, time.Time) {
	start := time.Date(n-1, time.September, 1, 0, 0, 0, 0, p.loc())
	return start, start.AddDate(1, 0, 0)
}

// ServiceYearOf returns the service year containing t.
func (p Policy) ServiceYearOf(t time.Time) int {
	lt := p.In(t)
	if lt.Month() >= time.September {
		return lt.Year() + 1
	}
	return lt.Year()
}

// MinutesToHours converts whole minutes to fractional hours rounded to two
// decimals.
func MinutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

// FormatHours formats minutes as "1h 30m" or "45m".
func FormatHours(minutes int) string {
	return FormatDuration(int64(minutes) * 60)
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// MonthLabel returns a label like "2024-03".
func MonthLabel(month time.Month, year int) string {
	return fmt.Sprintf("%d-%02d", year, int(month))
}

// ParseMonth parses "YYYY-MM". An empty string yields the month of now.
func ParseMonth(s string, now time.Time) (time.Month, int, error) {
	if s == "" {
		return now.Month(), now.Year(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (expected YYYY-MM): %w", s, err)
	}
	return t.Month(), t.Year(), nil
}

// SameDay reports whether two times fall on the same calendar day, each in
// its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestMinutesToHours(t *testing.T) {
	tests := []struct {
		minutes int
		want    float64
	}{
		{0, 0},
		{45, 0.75},
		{90, 1.5},
		{135, 2.25},
		{20, 0.33},
	}
	for _, tt := range tests {
		got := timecalc.MinutesToHours(tt.minutes)
		if got != tt.want {
			t.Errorf("MinutesToHours(%d) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}

func TestPolicyInMonth(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	// 23:30 UTC on March 31 is already April 1 in Berlin.
	ts := time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC)

	if !timecalc.UTCPolicy().InMonth(ts, time.March, 2024) {
		t.Error("UTC policy: expected March")
	}
	local := timecalc.Policy{Location: berlin}
	if local.InMonth(ts, time.March, 2024) {
		t.Error("Berlin policy: expected not March")
	}
	if !local.InMonth(ts, time.April, 2024) {
		t.Error("Berlin policy: expected April")
	}
}

func TestMonthRange(t *testing.T) {
	start, end := timecalc.UTCPolicy().MonthRange(time.December, 2024)
	if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

func TestServiceYear(t *testing.T) {
	p := timecalc.UTCPolicy()
	start, end := p.ServiceYearRange(2025)
	if !start.Equal(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
	if got := p.ServiceYearOf(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)); got != 2025 {
		t.Errorf("ServiceYearOf(Sep 2024) = %d, want 2025", got)
	}
	if got := p.ServiceYearOf(time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)); got != 2025 {
		t.Errorf("ServiceYearOf(Aug 2025) = %d, want 2025", got)
	}
}

func TestPolicyFor(t *testing.T) {
	p, err := timecalc.PolicyFor("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Location != time.Local {
		t.Errorf("empty name: location = %v, want Local", p.Location)
	}
	if _, err := timecalc.PolicyFor("Not/AZone"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	m, y, err := timecalc.ParseMonth("", now)
	if err != nil || m != time.February || y != 2026 {
		t.Errorf("ParseMonth(\"\") = %v %d %v", m, y, err)
	}
	m, y, err = timecalc.ParseMonth("2024-03", now)
	if err != nil || m != time.March || y != 2024 {
		t.Errorf("ParseMonth(2024-03) = %v %d %v", m, y, err)
	}
	if _, _, err := timecalc.ParseMonth("March", now); err == nil {
		t.Error("expected error")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	if !timecalc.SameDay(a, b) {
		t.Error("SameDay: expected same day for a and b")
	}
	if timecalc.SameDay(a, c) {
		t.Error("SameDay: expected different day for a and c")
	}
}

package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
)

func TestCsvEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", "\"with\nnewline\""},
		{"with\rreturn", "\"with\rreturn\""},
		{"", ""},
	}
	for _, tt := range tests {
		got := csvEscape(tt.input)
		if got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPrintCSV(t *testing.T) {
	reports := []model.ServiceReport{
		{ID: "a", Date: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), Hours: 1, Minutes: 30},
		{ID: "b", Date: time.Date(2024, 3, 12, 9, 15, 0, 0, time.UTC), Minutes: 45, Tag: " school, cart "},
	}
	var buf bytes.Buffer
	printCSV(&buf, reports, time.UTC)

	want := "id,date,hours,minutes,ldc,credit,tag,total_minutes\n" +
		"a,2024-03-05T10:00:00Z,1,30,false,false,,90\n" +
		"b,2024-03-12T09:15:00Z,0,45,false,false,\"school, cart\",45\n"
	if got := buf.String(); got != want {
		t.Errorf("printCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestPrintReportsGroupsByDay(t *testing.T) {
	reports := []model.ServiceReport{
		{ID: "a", Date: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), Hours: 1},
		{ID: "b", Date: time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), Minutes: 30, LDC: true},
		{ID: "c", Date: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), Minutes: 20, Tag: "school"},
	}
	var buf bytes.Buffer
	printReports(&buf, reports, time.UTC)

	out := buf.String()
	if n := bytes.Count(buf.Bytes(), []byte("2024-03-05\n")); n != 1 {
		t.Errorf("day header printed %d times:\n%s", n, out)
	}
	for _, want := range []string{"2024-03-06\n", "LDC", "school", "1h 0m", "30m"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printReports(&buf, nil, nil)
	if got := buf.String(); got != "No service time logged.\n" {
		t.Errorf("printReports(nil) = %q", got)
	}
}

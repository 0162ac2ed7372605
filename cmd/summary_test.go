package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/ministry-log/internal/app"
	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/report"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

func sampleDashboard() app.Dashboard {
	reports := []model.ServiceReport{
		{Date: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), Hours: 1, Minutes: 30},
		{Date: time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC), Minutes: 45, LDC: true},
		{Date: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC), Minutes: 20, Tag: "school"},
	}
	s := report.ComputeMonthSummary(reports, time.March, 2024, timecalc.UTCPolicy())
	return app.Dashboard{
		Summary:       s,
		Progress:      report.GoalProgress(s, 50),
		ActiveStudies: 2,
		FollowUps: []app.FollowUpItem{{
			ContactName: "Anna",
			Conversation: model.Conversation{FollowUp: &model.FollowUp{
				Date:     time.Date(2024, 3, 21, 18, 0, 0, 0, time.UTC),
				Topic:    "Hope",
				NotifyMe: true,
			}},
		}},
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleDashboard(), "csv", timecalc.UTCPolicy()); err != nil {
		t.Fatal(err)
	}
	want := "category,minutes\nstandard,90\nldc,45\nschool,20\ntotal,155\ncredit,45\n"
	if got := buf.String(); got != want {
		t.Errorf("csv =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleDashboard(), "json", timecalc.UTCPolicy()); err != nil {
		t.Fatal(err)
	}
	var got app.Dashboard
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Summary.TotalMinutes != 155 || got.ActiveStudies != 2 || len(got.FollowUps) != 1 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWriteSummaryMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleDashboard(), "md", timecalc.UTCPolicy()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Month 2024-03",
		"1h 30m",
		"school",
		"2h 35m",
		"5.2% of 50h",
		"Bible studies",
		"Thu 2024-03-21 18:00  Anna: Hope",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleDashboard(), "xml", timecalc.UTCPolicy()); err == nil {
		t.Error("expected error for unknown format")
	}
}

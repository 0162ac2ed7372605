package model_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
)

func TestServiceReportValidate(t *testing.T) {
	date := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		report model.ServiceReport
		fields []string
	}{
		{"valid", model.ServiceReport{Date: date, Hours: 1, Minutes: 30}, nil},
		{"no date", model.ServiceReport{Hours: 1}, []string{"date"}},
		{"minutes overflow", model.ServiceReport{Date: date, Minutes: 60}, []string{"minutes"}},
		{"zero time", model.ServiceReport{Date: date}, []string{"hours"}},
		{"tagged ldc", model.ServiceReport{Date: date, Hours: 1, LDC: true, Tag: "Cart"}, []string{"tag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verrs := tt.report.Validate()
			if len(tt.fields) == 0 {
				if verrs != nil {
					t.Errorf("Validate = %v, want nil", verrs)
				}
				return
			}
			if len(verrs) != len(tt.fields) {
				t.Errorf("Validate = %v, want fields %v", verrs, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := verrs[f]; !ok {
					t.Errorf("Validate = %v, missing %s", verrs, f)
				}
			}
		})
	}
}

func TestValidationErrorsError(t *testing.T) {
	verrs := model.ValidationErrors{
		"minutes": "minutes must be between 0 and 59",
		"date":    "date is required",
	}
	want := "date: date is required; minutes: minutes must be between 0 and 59"
	if got := verrs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

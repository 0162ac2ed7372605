package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
)

// Accepted layouts for --date style flags, most specific first.
var dateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDateTime parses a local date or date-time. An empty value yields now.
func parseDateTime(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")", s)
}

// formatValidation renders field errors in a stable order.
func formatValidation(verrs model.ValidationErrors) string {
	fields := make([]string, 0, len(verrs))
	for f := range verrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("Invalid input:")
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", f, verrs[f])
	}
	return b.String()
}

// validationError turns field errors into a command error, or nil.
func validationError(verrs model.ValidationErrors) error {
	if len(verrs) == 0 {
		return nil
	}
	return errors.New(formatValidation(verrs))
}

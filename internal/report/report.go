// Package report projects logged service time into monthly and service-year
// summaries. Every function is pure: inputs are never mutated and the same
// input always yields the same output.
package report

import (
	"sort"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

// TagHours is the time logged under one "other" category tag.
type TagHours struct {
	Tag     string  `json:"tag"`
	Hours   float64 `json:"hours"`
	Minutes int     `json:"minutes"`
}

// MonthSummary holds the derived figures for one calendar month. Minute
// fields are exact; hour fields are rounded for display.
type MonthSummary struct {
	Year            int        `json:"year"`
	Month           time.Month `json:"month"`
	Total           float64    `json:"total"`
	Standard        float64    `json:"standard"`
	LDC             float64    `json:"ldc"`
	Credit          float64    `json:"credit"`
	Other           []TagHours `json:"other"`
	TotalMinutes    int        `json:"total_minutes"`
	StandardMinutes int        `json:"standard_minutes"`
	LDCMinutes      int        `json:"ldc_minutes"`
	CreditMinutes   int        `json:"credit_minutes"`
	Reports         int        `json:"reports"`
}

// OtherMinutes returns the sum of all tagged minutes.
func (s MonthSummary) OtherMinutes() int {
	var sum int
	for _, o := range s.Other {
		sum += o.Minutes
	}
	return sum
}

// ReportsForMonth returns the reports dated in the given month, oldest first.
// Reports sharing a date keep their input order.
func ReportsForMonth(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) []model.ServiceReport {
	var out []model.ServiceReport
	for _, r := range reports {
		if policy.InMonth(r.Date, month, year) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func sumMinutes(reports []model.ServiceReport, keep func(model.ServiceReport) bool) int {
	var sum int
	for _, r := range reports {
		if keep(r) {
			sum += r.TotalMinutes()
		}
	}
	return sum
}

func all(model.ServiceReport) bool { return true }

func isCategory(c model.Category) func(model.ServiceReport) bool {
	return func(r model.ServiceReport) bool { return r.Category() == c }
}

func isCredit(r model.ServiceReport) bool { return r.Credit || r.LDC }

// TotalHoursForMonth sums every report in the month.
func TotalHoursForMonth(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) float64 {
	return timecalc.MinutesToHours(sumMinutes(ReportsForMonth(reports, month, year, policy), all))
}

// StandardHoursForMonth sums reports that are neither LDC nor tagged.
func StandardHoursForMonth(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) float64 {
	return timecalc.MinutesToHours(sumMinutes(ReportsForMonth(reports, month, year, policy), isCategory(model.CategoryStandard)))
}

// LDCHoursForMonth sums LDC reports, whatever tag they carry.
func LDCHoursForMonth(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) float64 {
	return timecalc.MinutesToHours(sumMinutes(ReportsForMonth(reports, month, year, policy), isCategory(model.CategoryLDC)))
}

// CreditHoursForMonth sums reports flagged as credit. LDC time always counts
// as credit.
func CreditHoursForMonth(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) float64 {
	return timecalc.MinutesToHours(sumMinutes(ReportsForMonth(reports, month, year, policy), isCredit))
}

// OtherHoursForMonth groups tagged, non-LDC reports by tag. Tags appear in
// the order first seen in date order. It returns nil when nothing is tagged.
func OtherHoursForMonth(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) []TagHours {
	return otherHours(ReportsForMonth(reports, month, year, policy))
}

func otherHours(sorted []model.ServiceReport) []TagHours {
	var out []TagHours
	index := map[string]int{}
	for _, r := range sorted {
		if r.Category() != model.CategoryOther {
			continue
		}
		tag := r.NormalizedTag()
		i, seen := index[tag]
		if !seen {
			i = len(out)
			index[tag] = i
			out = append(out, TagHours{Tag: tag})
		}
		out[i].Minutes += r.TotalMinutes()
	}
	for i := range out {
		out[i].Hours = timecalc.MinutesToHours(out[i].Minutes)
	}
	return out
}

// ComputeMonthSummary derives all figures for one month in a single pass over
// the filtered reports.
func ComputeMonthSummary(reports []model.ServiceReport, month time.Month, year int, policy timecalc.Policy) MonthSummary {
	sorted := ReportsForMonth(reports, month, year, policy)
	s := MonthSummary{
		Year:            year,
		Month:           month,
		TotalMinutes:    sumMinutes(sorted, all),
		StandardMinutes: sumMinutes(sorted, isCategory(model.CategoryStandard)),
		LDCMinutes:      sumMinutes(sorted, isCategory(model.CategoryLDC)),
		CreditMinutes:   sumMinutes(sorted, isCredit),
		Other:           otherHours(sorted),
		Reports:         len(sorted),
	}
	parts := make([]int, 0, 2+len(s.Other))
	parts = append(parts, s.StandardMinutes, s.LDCMinutes)
	for _, o := range s.Other {
		parts = append(parts, o.Minutes)
	}
	hours := apportionHours(parts)
	s.Standard, s.LDC = hours[0], hours[1]
	for i := range s.Other {
		s.Other[i].Hours = hours[2+i]
	}
	s.Total = timecalc.MinutesToHours(s.TotalMinutes)
	s.Credit = timecalc.MinutesToHours(s.CreditMinutes)
	return s
}

// apportionHours converts minute buckets to hours with two decimals so that
// the buckets add up to the rounded total. Hundredths lost to truncation go
// to the buckets with the largest remainders, earlier buckets first on ties.
func apportionHours(minutes []int) []float64 {
	// One minute is 5/3 hundredths of an hour.
	hundredths := make([]int, len(minutes))
	remainders := make([]int, len(minutes))
	var total, assigned int
	for i, m := range minutes {
		total += m
		hundredths[i] = m * 5 / 3
		remainders[i] = m * 5 % 3
		assigned += hundredths[i]
	}
	// Same rounding as timecalc.MinutesToHours on the total.
	missing := (total*5+1)/3 - assigned
	for rem := 2; rem > 0 && missing > 0; rem-- {
		for i := range minutes {
			if missing == 0 {
				break
			}
			if remainders[i] == rem {
				hundredths[i]++
				missing--
			}
		}
	}

	out := make([]float64, len(minutes))
	for i, h := range hundredths {
		out[i] = float64(h) / 100
	}
	return out
}

// Progress compares a month's total against a goal.
type Progress struct {
	GoalHours      int     `json:"goal_hours"`
	Hours          float64 `json:"hours"`
	Percent        float64 `json:"percent"`
	RemainingHours float64 `json:"remaining_hours"`
	Reached        bool    `json:"reached"`
}

// GoalProgress returns progress of s toward goalHours. A zero goal is always
// reached.
func GoalProgress(s MonthSummary, goalHours int) Progress {
	p := Progress{GoalHours: goalHours, Hours: s.Total}
	if goalHours <= 0 {
		p.Percent = 100
		p.Reached = true
		return p
	}
	goalMinutes := goalHours * 60
	p.Percent = float64(int(float64(s.TotalMinutes)/float64(goalMinutes)*1000+0.5)) / 10
	if s.TotalMinutes >= goalMinutes {
		p.Reached = true
		return p
	}
	p.RemainingHours = timecalc.MinutesToHours(goalMinutes - s.TotalMinutes)
	return p
}

// ServiceYearSummary holds the twelve month summaries of one service year,
// September first.
type ServiceYearSummary struct {
	ServiceYear  int            `json:"service_year"`
	Months       []MonthSummary `json:"months"`
	Total        float64        `json:"total"`
	TotalMinutes int            `json:"total_minutes"`
}

// ComputeServiceYearSummary summarises the service year n.
func ComputeServiceYearSummary(reports []model.ServiceReport, n int, policy timecalc.Policy) ServiceYearSummary {
	start, _ := policy.ServiceYearRange(n)
	out := ServiceYearSummary{ServiceYear: n, Months: make([]MonthSummary, 0, 12)}
	for i := 0; i < 12; i++ {
		m := start.AddDate(0, i, 0)
		s := ComputeMonthSummary(reports, m.Month(), m.Year(), policy)
		out.TotalMinutes += s.TotalMinutes
		out.Months = append(out.Months, s)
	}
	out.Total = timecalc.MinutesToHours(out.TotalMinutes)
	return out
}

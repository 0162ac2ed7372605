package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/app"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

var (
	summaryMonth  string
	summaryFormat string
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Width(20)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	reachedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	rowRule      = mutedStyle.Render("--------------------------------")
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the month's hours, goal progress, studies and follow-ups",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryMonth, "month", "", "Month (YYYY-MM); defaults to the current month")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "md", "Output format: md, csv, json")
}

func runSummary(cmd *cobra.Command, args []string) error {
	month, year, err := timecalc.ParseMonth(summaryMonth, svc.Now())
	if err != nil {
		return err
	}
	d, err := svc.Dashboard(cmd.Context(), month, year)
	if err != nil {
		return err
	}
	return writeSummary(os.Stdout, d, summaryFormat, svc.Policy())
}

func writeSummary(w io.Writer, d app.Dashboard, format string, policy timecalc.Policy) error {
	s := d.Summary
	switch format {
	case "csv":
		fmt.Fprintln(w, "category,minutes")
		fmt.Fprintf(w, "standard,%d\n", s.StandardMinutes)
		fmt.Fprintf(w, "ldc,%d\n", s.LDCMinutes)
		for _, o := range s.Other {
			fmt.Fprintf(w, "%s,%d\n", csvEscape(o.Tag), o.Minutes)
		}
		fmt.Fprintf(w, "total,%d\n", s.TotalMinutes)
		fmt.Fprintf(w, "credit,%d\n", s.CreditMinutes)
	case "json":
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "md", "":
		fmt.Fprintln(w, headingStyle.Render("Month "+timecalc.MonthLabel(s.Month, s.Year)))
		fmt.Fprintln(w, rowRule)
		row(w, "Field service", timecalc.FormatHours(s.StandardMinutes))
		row(w, "LDC", timecalc.FormatHours(s.LDCMinutes))
		for _, o := range s.Other {
			row(w, o.Tag, timecalc.FormatHours(o.Minutes))
		}
		fmt.Fprintln(w, rowRule)
		row(w, "Total", timecalc.FormatHours(s.TotalMinutes))
		if s.CreditMinutes > 0 {
			row(w, "Credit", timecalc.FormatHours(s.CreditMinutes))
		}

		if p := d.Progress; p.GoalHours > 0 {
			goal := fmt.Sprintf("%.1f%% of %dh", p.Percent, p.GoalHours)
			if p.Reached {
				goal = reachedStyle.Render(goal + " reached")
			} else {
				goal += mutedStyle.Render(fmt.Sprintf(" (%.2fh to go)", p.RemainingHours))
			}
			row(w, "Goal", goal)
		}
		row(w, "Bible studies", fmt.Sprint(d.ActiveStudies))

		if len(d.FollowUps) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, headingStyle.Render("Upcoming follow-ups"))
			printFollowUps(w, d.FollowUps, policy)
		}
	default:
		return fmt.Errorf("unknown format %q (expected md, csv or json)", format)
	}
	return nil
}

func row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s%s\n", labelStyle.Render(label), value)
}

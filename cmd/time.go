package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

var (
	timeDate    string
	timeHours   int
	timeMinutes int
	timeLDC     bool
	timeCredit  bool
	timeTag     string
	timeMonth   string
)

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Log and manage field service time",
}

var timeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a block of service time",
	Args:  cobra.NoArgs,
	RunE:  runTimeAdd,
}

var timeEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a logged block; only the given flags are updated",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeEdit,
}

var timeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the time logged in a month",
	Args:  cobra.NoArgs,
	RunE:  runTimeList,
}

var timeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a logged block",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeDelete,
}

func init() {
	for _, c := range []*cobra.Command{timeAddCmd, timeEditCmd} {
		c.Flags().StringVar(&timeDate, "date", "", "Date of the service (YYYY-MM-DD [HH:MM]); defaults to now")
		c.Flags().IntVar(&timeHours, "hours", 0, "Whole hours")
		c.Flags().IntVar(&timeMinutes, "minutes", 0, "Minutes (0-59)")
		c.Flags().BoolVar(&timeLDC, "ldc", false, "Time spent on LDC work")
		c.Flags().BoolVar(&timeCredit, "credit", false, "Counts as credit hours")
		c.Flags().StringVar(&timeTag, "tag", "", "Category tag for other activities")
	}
	timeListCmd.Flags().StringVar(&timeMonth, "month", "", "Month (YYYY-MM); defaults to the current month")

	timeCmd.AddCommand(timeAddCmd)
	timeCmd.AddCommand(timeEditCmd)
	timeCmd.AddCommand(timeListCmd)
	timeCmd.AddCommand(timeDeleteCmd)
}

func runTimeAdd(cmd *cobra.Command, args []string) error {
	date, err := parseDateTime(timeDate, svc.Policy().Location, svc.Now())
	if err != nil {
		return err
	}
	r := model.ServiceReport{
		Date:    date,
		Hours:   timeHours,
		Minutes: timeMinutes,
		LDC:     timeLDC,
		Credit:  timeCredit,
		Tag:     timeTag,
	}
	saved, verrs, err := svc.SaveServiceReport(cmd.Context(), r)
	if err != nil {
		return err
	}
	if err := validationError(verrs); err != nil {
		return err
	}
	fmt.Printf("Logged %s on %s (%s)\n",
		timecalc.FormatHours(saved.TotalMinutes()), saved.Date.Format("2006-01-02"), saved.ID)
	return nil
}

func runTimeEdit(cmd *cobra.Command, args []string) error {
	r, err := svc.GetServiceReport(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("date") {
		if r.Date, err = parseDateTime(timeDate, svc.Policy().Location, svc.Now()); err != nil {
			return err
		}
	}
	if flags.Changed("hours") {
		r.Hours = timeHours
	}
	if flags.Changed("minutes") {
		r.Minutes = timeMinutes
	}
	if flags.Changed("ldc") {
		r.LDC = timeLDC
	}
	if flags.Changed("credit") {
		r.Credit = timeCredit
	}
	if flags.Changed("tag") {
		r.Tag = timeTag
	}

	saved, verrs, err := svc.SaveServiceReport(cmd.Context(), r)
	if err != nil {
		return err
	}
	if err := validationError(verrs); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s on %s\n",
		saved.ID, timecalc.FormatHours(saved.TotalMinutes()), saved.Date.Format("2006-01-02"))
	return nil
}

func runTimeList(cmd *cobra.Command, args []string) error {
	month, year, err := timecalc.ParseMonth(timeMonth, svc.Now())
	if err != nil {
		return err
	}
	reports, err := svc.ServiceReportsForMonth(cmd.Context(), month, year)
	if err != nil {
		return err
	}
	printReports(os.Stdout, reports, svc.Policy().Location)
	return nil
}

func runTimeDelete(cmd *cobra.Command, args []string) error {
	if err := svc.DeleteServiceReport(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

// printReports groups reports by day and prints them.
func printReports(w io.Writer, reports []model.ServiceReport, loc *time.Location) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No service time logged.")
		return
	}
	if loc == nil {
		loc = time.Local
	}

	var currentDay string
	for _, r := range reports {
		d := r.Date.In(loc)
		day := d.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}
		fmt.Fprintf(w, "  %s  %-8s %-12s %s\n",
			d.Format("15:04"), timecalc.FormatHours(r.TotalMinutes()), categoryLabel(r), r.ID)
	}
}

func categoryLabel(r model.ServiceReport) string {
	var label string
	switch r.Category() {
	case model.CategoryLDC:
		label = "LDC"
	case model.CategoryOther:
		label = r.NormalizedTag()
	default:
		label = "field service"
	}
	if r.Credit {
		label += " (credit)"
	}
	return label
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

var (
	yearServiceYear int
	yearJSON        bool
)

var yearCmd = &cobra.Command{
	Use:   "year",
	Short: "Show the monthly totals of a service year (September to August)",
	Args:  cobra.NoArgs,
	RunE:  runYear,
}

func init() {
	yearCmd.Flags().IntVar(&yearServiceYear, "service-year", 0, "Service year, named by the year it ends in; defaults to the current one")
	yearCmd.Flags().BoolVar(&yearJSON, "json", false, "Print JSON")
}

func runYear(cmd *cobra.Command, args []string) error {
	n := yearServiceYear
	if n == 0 {
		n = svc.Policy().ServiceYearOf(svc.Now())
	}
	y, err := svc.ComputeServiceYear(cmd.Context(), n)
	if err != nil {
		return err
	}

	if yearJSON {
		data, err := json.MarshalIndent(y, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("Service year %d-%d", n-1, n)))
	fmt.Println(rowRule)
	for _, m := range y.Months {
		row(os.Stdout, timecalc.MonthLabel(m.Month, m.Year), timecalc.FormatHours(m.TotalMinutes))
	}
	fmt.Println(rowRule)
	row(os.Stdout, "Total", timecalc.FormatHours(y.TotalMinutes))
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

var (
	exportFormat string
	exportMonth  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a month's service time to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "Month (YYYY-MM); defaults to the current month")
}

func runExport(cmd *cobra.Command, args []string) error {
	month, year, err := timecalc.ParseMonth(exportMonth, svc.Now())
	if err != nil {
		return err
	}
	reports, err := svc.ServiceReportsForMonth(cmd.Context(), month, year)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		if reports == nil {
			reports = []model.ServiceReport{}
		}
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Println(string(data))
	case "md":
		printReports(os.Stdout, reports, svc.Policy().Location)
	case "csv", "":
		printCSV(os.Stdout, reports, svc.Policy().Location)
	default:
		return fmt.Errorf("unknown format %q (expected csv, json or md)", exportFormat)
	}
	return nil
}

func printCSV(w io.Writer, reports []model.ServiceReport, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	fmt.Fprintln(w, "id,date,hours,minutes,ldc,credit,tag,total_minutes")
	for _, r := range reports {
		fmt.Fprintf(w, "%s,%s,%d,%d,%t,%t,%s,%d\n",
			csvEscape(r.ID),
			r.Date.In(loc).Format(time.RFC3339),
			r.Hours,
			r.Minutes,
			r.LDC,
			r.Credit,
			csvEscape(r.NormalizedTag()),
			r.TotalMinutes(),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

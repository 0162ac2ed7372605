package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/app"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

var (
	followUpsDays int
	followUpsJSON bool
)

var followUpsCmd = &cobra.Command{
	Use:   "followups",
	Short: "List upcoming follow-ups",
	Args:  cobra.NoArgs,
	RunE:  runFollowUps,
}

func init() {
	followUpsCmd.Flags().IntVar(&followUpsDays, "days", 0, "Look this many days ahead (default from config)")
	followUpsCmd.Flags().BoolVar(&followUpsJSON, "json", false, "Print JSON")
}

func runFollowUps(cmd *cobra.Command, args []string) error {
	items, err := svc.UpcomingFollowUps(cmd.Context(), followUpsDays)
	if err != nil {
		return err
	}
	if followUpsJSON {
		if items == nil {
			items = []app.FollowUpItem{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	if len(items) == 0 {
		fmt.Println("No upcoming follow-ups.")
		return nil
	}
	printFollowUps(os.Stdout, items, svc.Policy())
	return nil
}

func printFollowUps(w io.Writer, items []app.FollowUpItem, policy timecalc.Policy) {
	for _, it := range items {
		f := it.Conversation.FollowUp
		name := it.ContactName
		if name == "" {
			name = mutedStyle.Render("(unknown contact)")
		}
		line := fmt.Sprintf("%s  %s", policy.In(f.Date).Format("Mon 2006-01-02 15:04"), name)
		if f.Topic != "" {
			line += ": " + f.Topic
		}
		if f.NotifyMe {
			line += mutedStyle.Render(" [reminder]")
		}
		fmt.Fprintln(w, line)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/reminder"
)

var remindersJSON bool

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect and deliver scheduled follow-up reminders",
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending reminders",
	Args:  cobra.NoArgs,
	RunE:  runRemindersList,
}

var remindersDeliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Print and clear due reminders from the local outbox",
	Long: `deliver prints every reminder from the local outbox whose time has come
and removes it. Run it from cron or a systemd timer, e.g. every five minutes.`,
	Args: cobra.NoArgs,
	RunE: runRemindersDeliver,
}

func init() {
	remindersListCmd.Flags().BoolVar(&remindersJSON, "json", false, "Print JSON")
	remindersDeliverCmd.Flags().BoolVar(&remindersJSON, "json", false, "Print one JSON object per reminder")
	remindersCmd.AddCommand(remindersListCmd)
	remindersCmd.AddCommand(remindersDeliverCmd)
}

func runRemindersList(cmd *cobra.Command, args []string) error {
	pending, err := svc.PendingReminders(cmd.Context())
	if err != nil {
		return err
	}
	if remindersJSON {
		if pending == nil {
			pending = []reminder.Scheduled{}
		}
		data, err := json.MarshalIndent(pending, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	if len(pending) == 0 {
		fmt.Println("No pending reminders.")
		return nil
	}
	policy := svc.Policy()
	for _, s := range pending {
		fmt.Printf("%s  %s\n", policy.In(s.FireAt).Format("2006-01-02 15:04"), s.Title)
		fmt.Println(mutedStyle.Render("  " + s.Body))
	}
	return nil
}

func runRemindersDeliver(cmd *cobra.Command, args []string) error {
	enc := json.NewEncoder(os.Stdout)
	n, err := svc.DeliverReminders(cmd.Context(), func(s reminder.Scheduled) error {
		if remindersJSON {
			return enc.Encode(s)
		}
		_, err := fmt.Printf("%s\n  %s\n", headingStyle.Render(s.Title), s.Body)
		return err
	})
	if n > 0 {
		logg.Info("delivered reminders", "count", n)
	}
	return err
}

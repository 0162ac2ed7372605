package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/config"
	"github.com/Tiliavir/ministry-log/internal/msgraph"
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar reminders",
	Long: `With notifications.backend set to "outlook", follow-up reminders are created
as calendar events in your Outlook calendar. Sign in once with "mlog outlook login".`,
}

var outlookLoginCmd = &cobra.Command{
	Use:         "login",
	Short:       "Sign in to Microsoft 365 with a device code",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipService: "true"},
	RunE:        runOutlookLogin,
}

var outlookLogoutCmd = &cobra.Command{
	Use:         "logout",
	Short:       "Forget the saved Microsoft 365 token",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipService: "true"},
	RunE:        runOutlookLogout,
}

func init() {
	outlookCmd.AddCommand(outlookLoginCmd)
	outlookCmd.AddCommand(outlookLogoutCmd)
}

func runOutlookLogin(cmd *cobra.Command, args []string) error {
	store := msgraph.NewTokenStore(dataDir)
	if _, err := msgraph.Login(cmd.Context(), cfg.Outlook.TenantID, cfg.Outlook.ClientID, store, os.Stdout); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Println("Signed in.")
	if cfg.Notifications.Backend != config.BackendOutlook {
		fmt.Printf("Set \"notifications.backend\" to %q in %s to create reminders in Outlook.\n",
			config.BackendOutlook, config.FilePath(dataDir))
	}
	return nil
}

func runOutlookLogout(cmd *cobra.Command, args []string) error {
	if err := msgraph.NewTokenStore(dataDir).Clear(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

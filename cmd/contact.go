package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage contacts",
}

var contactAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a contact",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContactAdd,
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	Args:  cobra.NoArgs,
	RunE:  runContactList,
}

var contactShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a contact's study status and conversation history",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactShow,
}

func init() {
	contactCmd.AddCommand(contactAddCmd)
	contactCmd.AddCommand(contactListCmd)
	contactCmd.AddCommand(contactShowCmd)
}

func runContactAdd(cmd *cobra.Command, args []string) error {
	c, verrs, err := svc.AddContact(cmd.Context(), strings.TrimSpace(strings.Join(args, " ")))
	if err != nil {
		return err
	}
	if err := validationError(verrs); err != nil {
		return err
	}
	fmt.Printf("Added contact %q (%s)\n", c.Name, c.ID)
	return nil
}

func runContactList(cmd *cobra.Command, args []string) error {
	contacts, err := svc.Contacts(cmd.Context())
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts yet.")
		return nil
	}
	for _, c := range contacts {
		fmt.Printf("%-36s  %s\n", c.ID, c.Name)
	}
	return nil
}

func runContactShow(cmd *cobra.Command, args []string) error {
	d, err := svc.ContactDetails(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	policy := svc.Policy()

	fmt.Println(headingStyle.Render(d.Contact.Name))
	e := d.Engagement
	switch {
	case e.IsActiveThisMonth:
		row(os.Stdout, "Bible study", reachedStyle.Render("active this month"))
	case e.HasStudiedPreviously:
		row(os.Stdout, "Bible study", "inactive this month")
	default:
		row(os.Stdout, "Bible study", mutedStyle.Render("never"))
	}
	if e.MostRecentStudyDate != nil {
		row(os.Stdout, "Last study", policy.In(*e.MostRecentStudyDate).Format("2006-01-02"))
	}

	fmt.Println()
	if len(d.Conversations) == 0 {
		fmt.Println("No conversations recorded.")
		return nil
	}
	for _, c := range d.Conversations {
		var marks []string
		if c.IsBibleStudy {
			marks = append(marks, "study")
		}
		if c.NotAtHome {
			marks = append(marks, "not at home")
		}
		line := policy.In(c.Date).Format("2006-01-02 15:04")
		if len(marks) > 0 {
			line += " [" + strings.Join(marks, ", ") + "]"
		}
		if c.Note != "" {
			line += "  " + c.Note
		}
		fmt.Println(line)
		if f := c.FollowUp; f != nil {
			text := "  follow-up " + policy.In(f.Date).Format("2006-01-02 15:04")
			if f.Topic != "" {
				text += ": " + f.Topic
			}
			if f.NotifyMe {
				text += fmt.Sprintf(" (%d reminders)", len(f.Notifications))
			}
			fmt.Println(mutedStyle.Render(text))
		}
		fmt.Println(mutedStyle.Render("  id " + c.ID))
	}
	return nil
}

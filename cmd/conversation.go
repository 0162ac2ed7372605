package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/model"
)

var (
	convContact    string
	convDate       string
	convNote       string
	convStudy      bool
	convNotAtHome  bool
	convFollowUp   string
	convTopic      string
	convNotify     bool
	convNoFollowUp bool
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Record conversations and schedule follow-ups",
}

var conversationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a conversation",
	Args:  cobra.NoArgs,
	RunE:  runConversationAdd,
}

var conversationEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a conversation; reminders follow the new follow-up",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationEdit,
}

var conversationDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation and cancel its reminders",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationDelete,
}

func init() {
	for _, c := range []*cobra.Command{conversationAddCmd, conversationEditCmd} {
		c.Flags().StringVar(&convContact, "contact", "", "Contact id or name")
		c.Flags().StringVar(&convDate, "date", "", "When it took place (YYYY-MM-DD [HH:MM]); defaults to now")
		c.Flags().StringVar(&convNote, "note", "", "Free text note")
		c.Flags().BoolVar(&convStudy, "study", false, "The conversation was a Bible study")
		c.Flags().BoolVar(&convNotAtHome, "not-at-home", false, "Nobody was at home")
		c.Flags().StringVar(&convFollowUp, "follow-up", "", "Follow-up date (YYYY-MM-DD [HH:MM])")
		c.Flags().StringVar(&convTopic, "topic", "", "Follow-up topic")
		c.Flags().BoolVar(&convNotify, "notify", false, "Remind me a day and 15 minutes before the follow-up")
	}
	conversationEditCmd.Flags().BoolVar(&convNoFollowUp, "no-follow-up", false, "Remove the follow-up")

	conversationCmd.AddCommand(conversationAddCmd)
	conversationCmd.AddCommand(conversationEditCmd)
	conversationCmd.AddCommand(conversationDeleteCmd)
}

// resolveContact maps an id or a case-insensitive name to a contact id.
// Unknown values are returned unchanged.
func resolveContact(ctx context.Context, ref string) (string, error) {
	contacts, err := svc.Contacts(ctx)
	if err != nil {
		return "", err
	}
	var byName []model.Contact
	for _, c := range contacts {
		if c.ID == ref {
			return c.ID, nil
		}
		if strings.EqualFold(c.Name, ref) {
			byName = append(byName, c)
		}
	}
	switch len(byName) {
	case 0:
		return ref, nil
	case 1:
		return byName[0].ID, nil
	default:
		return "", fmt.Errorf("%d contacts are named %q; use the id", len(byName), ref)
	}
}

func runConversationAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	contactID, err := resolveContact(ctx, convContact)
	if err != nil {
		return err
	}
	date, err := parseDateTime(convDate, svc.Policy().Location, svc.Now())
	if err != nil {
		return err
	}
	c := model.Conversation{
		Contact:      model.ContactRef{ID: contactID},
		Date:         date,
		Note:         convNote,
		IsBibleStudy: convStudy,
		NotAtHome:    convNotAtHome,
	}
	if convFollowUp != "" {
		f, err := followUpFromFlags(&model.FollowUp{}, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		c.FollowUp = f
	} else if convTopic != "" || convNotify {
		return errors.New("--topic and --notify need --follow-up")
	}
	return submitConversation(cmd, c)
}

func runConversationEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := svc.GetConversation(ctx, args[0])
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("contact") {
		if c.Contact.ID, err = resolveContact(ctx, convContact); err != nil {
			return err
		}
	}
	if flags.Changed("date") {
		if c.Date, err = parseDateTime(convDate, svc.Policy().Location, svc.Now()); err != nil {
			return err
		}
	}
	if flags.Changed("note") {
		c.Note = convNote
	}
	if flags.Changed("study") {
		c.IsBibleStudy = convStudy
	}
	if flags.Changed("not-at-home") {
		c.NotAtHome = convNotAtHome
	}

	switch {
	case convNoFollowUp:
		c.FollowUp = nil
	case flags.Changed("follow-up") || flags.Changed("topic") || flags.Changed("notify"):
		f := &model.FollowUp{}
		if c.FollowUp != nil {
			copied := *c.FollowUp
			f = &copied
		} else if !flags.Changed("follow-up") {
			return errors.New("the conversation has no follow-up; set --follow-up")
		}
		if c.FollowUp, err = followUpFromFlags(f, flags.Changed); err != nil {
			return err
		}
	}
	return submitConversation(cmd, c)
}

// followUpFromFlags applies the follow-up flags the user set to f, so an
// explicit --topic "" clears the topic.
func followUpFromFlags(f *model.FollowUp, changed func(name string) bool) (*model.FollowUp, error) {
	if convFollowUp != "" {
		d, err := parseDateTime(convFollowUp, svc.Policy().Location, svc.Now())
		if err != nil {
			return nil, err
		}
		f.Date = d
	}
	if changed("topic") {
		f.Topic = convTopic
	}
	if changed("notify") {
		f.NotifyMe = convNotify
	}
	return f, nil
}

func submitConversation(cmd *cobra.Command, c model.Conversation) error {
	saved, verrs, err := svc.SubmitConversation(cmd.Context(), c)
	if err != nil {
		return err
	}
	if err := validationError(verrs); err != nil {
		return err
	}
	fmt.Printf("Saved conversation %s\n", saved.ID)
	if f := saved.FollowUp; f != nil && f.NotifyMe {
		switch n := len(f.Notifications); {
		case n > 0:
			fmt.Printf("%d reminder(s) scheduled for the follow-up on %s\n",
				n, svc.Policy().In(f.Date).Format("2006-01-02 15:04"))
		case cfg.Notifications.Enabled:
			fmt.Println("No reminder scheduled: the follow-up is too close or the notifier is unavailable.")
		default:
			fmt.Println("Notifications are disabled in config.json; no reminder scheduled.")
		}
	}
	return nil
}

func runConversationDelete(cmd *cobra.Command, args []string) error {
	if err := svc.DeleteConversation(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted conversation %s\n", args[0])
	return nil
}

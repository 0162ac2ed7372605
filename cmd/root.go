package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ministry-log/internal/app"
	"github.com/Tiliavir/ministry-log/internal/config"
	"github.com/Tiliavir/ministry-log/internal/logger"
	"github.com/Tiliavir/ministry-log/internal/storage"
)

// skipService marks commands that run without opening the stores.
const skipService = "mlog/skip-service"

var (
	dataDirFlag string
	debugFlag   bool

	// Set up by PersistentPreRunE for every command.
	dataDir string
	cfg     config.Config
	logg    *log.Logger
	// Nil for commands annotated with skipService.
	svc *app.Service
)

var rootCmd = &cobra.Command{
	Use:   "mlog",
	Short: "Ministry log – service time, conversations and follow-up reminders",
	Long: `mlog records field service time and conversations with contacts,
summarises monthly hours against your goal and reminds you of follow-ups.
Data is stored under ~/.mlog/ (JSON files or SQLite, see config.json).`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default ~/.mlog)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log debug output to stderr")

	rootCmd.AddCommand(timeCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(yearCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(conversationCmd)
	rootCmd.AddCommand(followUpsCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(outlookCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	dataDir = dataDirFlag
	if dataDir == "" {
		base, err := storage.BaseDir()
		if err != nil {
			return err
		}
		dataDir = base
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	var err error
	cfg, err = config.Load(dataDir)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s:\n%w", config.FilePath(dataDir), err)
	}

	logg, err = logger.New(logger.Config{Debug: debugFlag, DataDir: dataDir})
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	logg.Debug("starting", "command", cmd.CommandPath(), "data_dir", dataDir)

	if cmd.Annotations[skipService] != "" {
		return nil
	}
	svc, err = app.Open(cmd.Context(), cfg, dataDir, logg)
	return err
}

func teardown(cmd *cobra.Command, args []string) error {
	if svc == nil {
		return nil
	}
	err := svc.Close()
	svc = nil
	return err
}

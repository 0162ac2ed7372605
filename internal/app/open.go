package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/Tiliavir/ministry-log/internal/amqp"
	"github.com/Tiliavir/ministry-log/internal/config"
	"github.com/Tiliavir/ministry-log/internal/msgraph"
	"github.com/Tiliavir/ministry-log/internal/notify"
	"github.com/Tiliavir/ministry-log/internal/reminder"
	"github.com/Tiliavir/ministry-log/internal/storage"
	"github.com/Tiliavir/ministry-log/internal/storage/sqlite"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

// OutboxPath is the local reminder queue inside dataDir.
func OutboxPath(dataDir string) string {
	return filepath.Join(dataDir, "outbox.json")
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg config.Config, dataDir string) (storage.Provider, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir, "mlog.db")
		}
		return sqlite.Open(path)
	case config.BackendFile, "":
		return storage.NewFileStore(dataDir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// OpenNotifier builds the configured reminder channel. Backends that cannot
// be reached are logged and disable reminders instead of failing the
// command; conversations are still saved.
func OpenNotifier(ctx context.Context, cfg config.Config, dataDir string, logger *log.Logger) (reminder.Notifier, io.Closer) {
	if !cfg.Notifications.Enabled {
		return nil, nil
	}
	switch cfg.Notifications.Backend {
	case config.BackendOutlook:
		ts, err := msgraph.TokenSource(ctx, cfg.Outlook.TenantID, cfg.Outlook.ClientID, msgraph.NewTokenStore(dataDir))
		if err != nil {
			if errors.Is(err, msgraph.ErrNotLoggedIn) {
				logger.Warn("outlook reminders disabled", "reason", err)
			} else {
				logger.Error("outlook reminders disabled", "err", err)
			}
			return nil, nil
		}
		return msgraph.NewNotifier(msgraph.NewClient(ctx, ts), cfg.Time.Timezone), nil
	case config.BackendAMQP:
		client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			logger.Error("amqp reminders disabled", "err", err)
			return nil, nil
		}
		return client.Notifier(logger.WithPrefix("amqp")), client
	default:
		return notify.NewOutbox(OutboxPath(dataDir)), nil
	}
}

// Open builds a Service from cfg with records under dataDir.
func Open(ctx context.Context, cfg config.Config, dataDir string, logger *log.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	policy, err := timecalc.PolicyFor(cfg.Time.Timezone)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg, dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}

	notifier, closer := OpenNotifier(ctx, cfg, dataDir, logger)
	opts := Options{
		Policy:       policy,
		Logger:       logger,
		Messages:     reminder.NewMessages(cfg.Time.Language),
		GoalHours:    cfg.GoalHours(),
		UpcomingDays: cfg.Notifications.UpcomingDays,
	}
	if closer != nil {
		opts.Closers = append(opts.Closers, closer)
	}
	return New(store, notifier, opts), nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/notexe/mediconnect/internal/alert"
	"github.com/notexe/mediconnect/internal/config"
	"github.com/notexe/mediconnect/internal/logger"
	"github.com/notexe/mediconnect/internal/reminder"
	"github.com/notexe/mediconnect/internal/storage"
	"github.com/notexe/mediconnect/internal/ui"
)

// app is what every subcommand needs: validated config and a logger.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	formatter *ui.Formatter
}

func loadApp(opts *rootOptions) (*app, error) {
	path := opts.configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Output:   cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	colored := !opts.noColor && os.Getenv("NO_COLOR") == ""

	return &app{
		cfg:       cfg,
		log:       log,
		formatter: ui.NewFormatter(colored, cfg.Provider),
	}, nil
}

// reminderDeps are the pieces a reminder command assembles into a Scheduler.
type reminderDeps struct {
	out      io.Writer
	renderer reminder.Renderer
	prompter reminder.Prompter
}

// openScheduler opens the configured backend and loads the reminders. The
// returned close func releases the backend.
func (a *app) openScheduler(ctx context.Context, deps reminderDeps) (*reminder.Scheduler, func(), error) {
	kv, err := storage.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	storeOpts := []reminder.StoreOption{
		reminder.WithKey(a.cfg.Reminders.StorageKey),
		reminder.WithLogger(a.log),
	}
	if deps.renderer != nil {
		storeOpts = append(storeOpts, reminder.WithRenderer(deps.renderer))
	}
	store := reminder.NewStore(kv, storeOpts...)
	store.Load(ctx)

	notifier, err := alert.NewNotifier(a.cfg.Notify, deps.out)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}

	alerter := reminder.NewAlerter(notifier, alert.NewTone(a.cfg.Reminders.Player, deps.out), deps.prompter, a.log)
	scheduler := reminder.NewScheduler(store, alerter,
		reminder.WithInterval(time.Duration(a.cfg.Reminders.Interval)*time.Second),
		reminder.WithSchedulerLogger(a.log))

	closeFn := func() {
		scheduler.Stop()
		if err := kv.Close(); err != nil {
			a.log.Warn("failed to close storage", zap.Error(err))
		}
		_ = a.log.Sync()
	}
	return scheduler, closeFn, nil
}

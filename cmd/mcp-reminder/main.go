// Command mcp-reminder provides an MCP server for medication reminders.
//
// The tools add, list, acknowledge, delete and check the same reminders the
// mediconnect CLI manages. While the server runs, a scheduler fires due
// reminders through the configured Telegram and Discord notifiers.
//
// Usage:
//
//	./mcp-reminder          # Start MCP server (stdio)
//	./mcp-reminder --help   # Show help
//
// Environment:
//
//	MEDICONNECT_CONFIG      Path to config file (default: ~/.mediconnect/config.yaml)
//	TELEGRAM_BOT_TOKEN      Telegram bot token for notifications
//	TELEGRAM_CHAT_ID        Telegram chat ID for notifications
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/notexe/mediconnect/internal/alert"
	"github.com/notexe/mediconnect/internal/config"
	"github.com/notexe/mediconnect/internal/logger"
	"github.com/notexe/mediconnect/internal/reminder"
	"github.com/notexe/mediconnect/internal/storage"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("MEDICONNECT_CONFIG")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// stdout carries the MCP protocol.
	log, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Output:   "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, closeFn, err := setup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	s := reminder.NewServer(scheduler)
	return server.ServeStdio(s.MCPServer())
}

// setup opens storage and builds a scheduler that is not yet started.
// The returned func closes the storage.
func setup(ctx context.Context, cfg *config.Config, log *zap.Logger) (*reminder.Scheduler, func(), error) {
	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	store := reminder.NewStore(kv,
		reminder.WithKey(cfg.Reminders.StorageKey),
		reminder.WithLogger(log))
	store.Load(ctx)

	// No terminal is attached, so only remote notifiers apply.
	notifier, err := alert.NewNotifier(cfg.Notify, nil)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	if len(notifier) == 0 {
		log.Warn("no notifier configured; due reminders are only reported by check_reminders")
	}

	interval := time.Duration(cfg.Reminders.Interval) * time.Second
	alerter := reminder.NewAlerter(notifier, nil, nil, log)
	scheduler := reminder.NewScheduler(store, alerter,
		reminder.WithInterval(interval),
		reminder.WithSchedulerLogger(log))

	log.Info("reminder scheduler configured",
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("notifiers", len(notifier)),
		zap.Duration("interval", interval),
		zap.Int("reminders", len(store.List())))

	return scheduler, func() { kv.Close() }, nil
}

func printHelp() {
	fmt.Println(`MCP Reminder Server - Medication reminders via MCP protocol

USAGE:
    mcp-reminder          Start MCP server (communicates via stdio)
    mcp-reminder --help   Show this help

ENVIRONMENT:
    MEDICONNECT_CONFIG    Config file path (default: ~/.mediconnect/config.yaml)
    TELEGRAM_BOT_TOKEN    Telegram bot token for reminder notifications
    TELEGRAM_CHAT_ID      Telegram chat ID for reminder notifications
    MEDICONNECT_*         Any config key, e.g. MEDICONNECT_STORAGE__BACKEND=sqlite

TOOLS:
    add_reminder       Add a daily reminder (medicine, time HH:MM)
    list_reminders     List all reminders
    mark_taken         Mark a reminder as taken today (id)
    delete_reminder    Delete a reminder permanently (id)
    check_reminders    Fire reminders due this minute that have not fired today

CONFIGURATION:
    Add to your MCP client configuration:
    {
      "mcpServers": {
        "reminder": {
          "command": "/path/to/mcp-reminder",
          "args": []
        }
      }
    }`)
}

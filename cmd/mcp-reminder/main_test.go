package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notexe/mediconnect/internal/config"
	"github.com/notexe/mediconnect/internal/reminder"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Reminders: config.RemindersConfig{Interval: 15, StorageKey: "medReminders"},
		Storage:   config.StorageConfig{Backend: config.StorageFile, Dir: dir},
	}
}

func TestSetup_LoadsStoredReminders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "medReminders.json"),
		[]byte(`[{"id":1,"medicine":"Aspirin","time":"08:00","taken":false,"lastNotifiedDate":null}]`), 0o644))

	cfg := testConfig(dir)
	cfg.Notify.Telegram = config.TelegramConfig{BotToken: "token", ChatID: "42"}

	core, logs := observer.New(zapcore.InfoLevel)
	scheduler, closeFn, err := setup(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, 15*time.Second, scheduler.Interval())
	require.Len(t, scheduler.List(), 1)
	assert.Equal(t, "Aspirin", scheduler.List()[0].Medicine)
	assert.NotNil(t, reminder.NewServer(scheduler).MCPServer())

	entries := logs.FilterMessage("reminder scheduler configured").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "file", fields["backend"])
	assert.EqualValues(t, 1, fields["notifiers"])
	assert.EqualValues(t, 1, fields["reminders"])
}

func TestSetup_WarnsWithoutNotifiers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	_, closeFn, err := setup(context.Background(), testConfig(t.TempDir()), zap.New(core))
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, 1, logs.FilterMessageSnippet("no notifier configured").Len())
}

func TestSetup_StorageError(t *testing.T) {
	cfg := testConfig("")
	_, _, err := setup(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.dir is required")
}

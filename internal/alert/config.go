package alert

import (
	"io"

	"github.com/notexe/mediconnect/internal/config"
)

// NewNotifier assembles the configured notifiers. Telegram and Discord are
// included only when their credentials are set; the terminal banner only
// when out is non-nil and notify.terminal is on.
func NewNotifier(cfg config.NotifyConfig, out io.Writer) (Multi, error) {
	var m Multi

	if cfg.Terminal && out != nil {
		m = append(m, NewTerminalNotifier(out))
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		m = append(m, NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, ""))
	}

	if cfg.Discord.WebhookID != "" && cfg.Discord.WebhookToken != "" {
		d, err := NewDiscordNotifier(cfg.Discord.WebhookID, cfg.Discord.WebhookToken, nil)
		if err != nil {
			return nil, err
		}
		m = append(m, d)
	}

	return m, nil
}

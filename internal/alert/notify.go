package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/lipgloss"

	"github.com/notexe/mediconnect/internal/reminder"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends notifications via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier. baseURL may be empty for
// the public Bot API.
func NewTelegramNotifier(botToken, chatID, baseURL string) *TelegramNotifier {
	if baseURL == "" {
		baseURL = telegramAPI
	}
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (t *TelegramNotifier) Permission() reminder.Permission {
	if t.botToken == "" || t.chatID == "" {
		return reminder.PermissionDenied
	}
	return reminder.PermissionGranted
}

func (t *TelegramNotifier) Notify(ctx context.Context, title, body string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := telegramSendRequest{
		ChatID:    t.chatID,
		Text:      fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body)),
		ParseMode: "HTML",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return fmt.Errorf("failed to parse telegram response: %w", err)
	}

	if !tgResp.OK {
		return fmt.Errorf("telegram API error: %s", tgResp.Description)
	}

	return nil
}

// DiscordNotifier posts notifications to a Discord webhook.
type DiscordNotifier struct {
	session      *discordgo.Session
	webhookID    string
	webhookToken string
}

// NewDiscordNotifier creates a Discord webhook notifier. client may be nil.
func NewDiscordNotifier(webhookID, webhookToken string, client *http.Client) (*DiscordNotifier, error) {
	// Webhook execution needs no bot token.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if client != nil {
		session.Client = client
	}
	return &DiscordNotifier{
		session:      session,
		webhookID:    webhookID,
		webhookToken: webhookToken,
	}, nil
}

func (d *DiscordNotifier) Permission() reminder.Permission {
	if d.webhookID == "" || d.webhookToken == "" {
		return reminder.PermissionDenied
	}
	return reminder.PermissionGranted
}

func (d *DiscordNotifier) Notify(ctx context.Context, title, body string) error {
	_, err := d.session.WebhookExecute(d.webhookID, d.webhookToken, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       title,
				Description: body,
				Color:       0x5fd787,
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to execute discord webhook: %w", err)
	}
	return nil
}

// TerminalNotifier prints notifications as a banner. It is always granted.
type TerminalNotifier struct {
	out io.Writer
}

func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("222")).
	Padding(0, 1)

var bannerTitleStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("222")).
	Bold(true)

func (t *TerminalNotifier) Permission() reminder.Permission {
	return reminder.PermissionGranted
}

func (t *TerminalNotifier) Notify(_ context.Context, title, body string) error {
	_, err := fmt.Fprintln(t.out, bannerStyle.Render(bannerTitleStyle.Render(title)+"\n"+body))
	return err
}

// Multi fans a notification out to every granted notifier.
type Multi []reminder.Notifier

// Permission is granted if any member is granted.
func (m Multi) Permission() reminder.Permission {
	result := reminder.PermissionDefault
	for _, n := range m {
		switch n.Permission() {
		case reminder.PermissionGranted:
			return reminder.PermissionGranted
		case reminder.PermissionDenied:
			result = reminder.PermissionDenied
		}
	}
	return result
}

// Notify sends to every granted member and joins their errors.
func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if n.Permission() != reminder.PermissionGranted {
			continue
		}
		if err := n.Notify(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

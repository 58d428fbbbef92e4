package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/notexe/mediconnect/internal/api"
)

var (
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222"))

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	TokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true)

	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147"))
)

type Formatter struct {
	colored  bool
	provider string // display name (e.g., "Groq", "Ollama")
}

func NewFormatter(colored bool, provider string) *Formatter {
	name := api.DisplayName(provider)
	if name == "" {
		name = "AI"
	}
	return &Formatter{
		colored:  colored,
		provider: name,
	}
}

func (f *Formatter) style(s lipgloss.Style, text string) string {
	if f.colored {
		return s.Render(text)
	}
	return text
}

func (f *Formatter) FormatQuery(query string) string {
	return f.style(UserStyle, "You: ") + query
}

// FormatReply renders the model reply as terminal markdown.
func (f *Formatter) FormatReply(reply string) string {
	body := reply
	if f.colored {
		body = FormatForTerminal(reply)
	}
	return f.style(AssistantStyle, f.provider+":") + "\n" + body
}

func (f *Formatter) FormatError(err error) string {
	return f.style(ErrorStyle, "Error: ") + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	return f.style(InfoStyle, info)
}

func (f *Formatter) FormatSuccess(msg string) string {
	return f.style(SuccessStyle, msg)
}

func (f *Formatter) FormatStatus(msg string) string {
	return f.style(StatusStyle, msg)
}

// FormatUsage summarizes a completed consult call.
func (f *Formatter) FormatUsage(usage api.Usage, model string, duration time.Duration) string {
	parts := []string{
		fmt.Sprintf("tokens: input=%d, output=%d", usage.InputTokens, usage.OutputTokens),
	}
	if model != "" {
		parts = append(parts, "model: "+model)
	}
	if duration > 0 {
		parts = append(parts, "time: "+formatDuration(duration))
	}
	return f.style(TokenStyle, "("+strings.Join(parts, " | ")+")")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func (f *Formatter) FormatWelcome(interval time.Duration) string {
	title := "MediConnect • Medication Reminders"
	checkLine := fmt.Sprintf("Checking every %s", interval)
	helpLine := "Type help for commands"

	if !f.colored {
		return strings.Join([]string{"", title, checkLine, helpLine, ""}, "\n")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	content := strings.Join([]string{
		HeaderStyle.Render(title),
		DimStyle.Render(checkLine),
		"",
		StatusStyle.Render(helpLine),
	}, "\n")

	return "\n" + box.Render(content) + "\n"
}

func (f *Formatter) FormatHelp() string {
	cmds := [][2]string{
		{"add <medicine> <HH:MM>", "Add a daily reminder"},
		{"take <id>", "Mark a reminder as taken today"},
		{"delete <id>", "Delete a reminder"},
		{"list", "Show all reminders"},
		{"help", "Show this help"},
		{"quit", "Exit"},
	}

	lines := []string{"", f.style(HeaderStyle, "Commands"), ""}
	for _, c := range cmds {
		if f.colored {
			lines = append(lines, "  "+AssistantStyle.Render(fmt.Sprintf("%-24s", c[0]))+" "+c[1])
		} else {
			lines = append(lines, fmt.Sprintf("  %-24s - %s", c[0], c[1]))
		}
	}
	lines = append(lines, "", f.style(DimStyle, "  Commands may be prefixed with /. Ctrl+C or Ctrl+D to exit."), "")
	return strings.Join(lines, "\n")
}

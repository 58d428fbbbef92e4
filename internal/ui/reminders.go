package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/notexe/mediconnect/internal/reminder"
)

const (
	EmptyReminders = "No reminders yet."

	takenMark   = "✅"
	pendingMark = "⏳"
)

// FormatReminders renders one row per reminder in list order.
func (f *Formatter) FormatReminders(list []reminder.Reminder) string {
	if len(list) == 0 {
		return f.style(DimStyle, EmptyReminders)
	}

	rows := make([]string, 0, len(list))
	for _, r := range list {
		mark := pendingMark
		if r.Taken {
			mark = takenMark
		}
		row := fmt.Sprintf("%s %s at %s", mark, f.style(HeaderStyle, r.Medicine), f.style(AccentStyle, r.Time))
		rows = append(rows, row+"  "+f.style(DimStyle, fmt.Sprintf("#%d", r.ID)))
	}
	return strings.Join(rows, "\n")
}

// ReminderList redraws the reminder list on every store save.
type ReminderList struct {
	out       io.Writer
	formatter *Formatter
}

func NewReminderList(out io.Writer, formatter *Formatter) *ReminderList {
	return &ReminderList{out: out, formatter: formatter}
}

// Render implements reminder.Renderer.
func (l *ReminderList) Render(list []reminder.Reminder) {
	fmt.Fprintln(l.out, l.formatter.FormatReminders(list))
}

package reminder

import (
	"errors"
	"fmt"
	"time"
)

// Defaults shared by every front end.
const (
	StorageKey      = "medReminders"
	DefaultInterval = 15 * time.Second

	NotificationTitle = "MediConnect Reminder"

	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

var (
	// ErrMissingFields is returned by Add when medicine or time is empty.
	ErrMissingFields = errors.New("Enter medicine and time")
	// ErrInvalidTime is returned by Add when time is not HH:MM.
	ErrInvalidTime = errors.New("time must be HH:MM (24-hour)")
)

// Reminder is a medicine to take at a time of day.
type Reminder struct {
	ID       int64  `json:"id"`
	Medicine string `json:"medicine"`
	Time     string `json:"time"`
	Taken    bool   `json:"taken"`
	// LastNotifiedDate is the date key of the last firing or manual
	// acknowledgment; nil if it never fired.
	LastNotifiedDate *string `json:"lastNotifiedDate"`
}

// NotifiedOn reports whether the reminder already fired on dateKey.
func (r Reminder) NotifiedOn(dateKey string) bool {
	return r.LastNotifiedDate != nil && *r.LastNotifiedDate == dateKey
}

// NotificationBody is the notification text for r.
func (r Reminder) NotificationBody() string {
	return fmt.Sprintf("Time to take %s", r.Medicine)
}

// PromptMessage is the acknowledgment prompt text for r.
func (r Reminder) PromptMessage() string {
	return fmt.Sprintf("⏰ Medicine Reminder: %s at %s", r.Medicine, r.Time)
}

// ConfirmationMessage is shown after a reminder is created.
func (r Reminder) ConfirmationMessage() string {
	return fmt.Sprintf("⏰ Reminder set for %s at %s. You'll hear a beep and get a notification.", r.Medicine, r.Time)
}

// DateKey formats t as YYYY-MM-DD in t's location.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ClockTime formats t as zero-padded 24-hour HH:MM in t's location.
func ClockTime(t time.Time) string {
	return t.Format(clockLayout)
}

// ValidClock reports whether s is exactly a zero-padded HH:MM time.
func ValidClock(s string) bool {
	t, err := time.Parse(clockLayout, s)
	return err == nil && t.Format(clockLayout) == s
}

func clone(r Reminder) Reminder {
	if r.LastNotifiedDate != nil {
		d := *r.LastNotifiedDate
		r.LastNotifiedDate = &d
	}
	return r
}

func cloneAll(list []Reminder) []Reminder {
	out := make([]Reminder, len(list))
	for i, r := range list {
		out[i] = clone(r)
	}
	return out
}

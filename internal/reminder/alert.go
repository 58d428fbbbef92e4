package reminder

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Permission mirrors the browser notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notifier raises a system notification.
type Notifier interface {
	Permission() Permission
	Notify(ctx context.Context, title, body string) error
}

// Sounder plays the audible alert.
type Sounder interface {
	Play(ctx context.Context) error
}

// Prompter shows the acknowledgment prompt. Blocking implementations return
// once the user acknowledges.
type Prompter interface {
	Prompt(ctx context.Context, message string) error
}

// Alerter runs the three firing side effects. Any of them may be nil.
type Alerter struct {
	notifier Notifier
	sounder  Sounder
	prompter Prompter
	logger   *zap.Logger
}

func NewAlerter(n Notifier, snd Sounder, p Prompter, l *zap.Logger) *Alerter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Alerter{
		notifier: n,
		sounder:  snd,
		prompter: p,
		logger:   l.Named("alert"),
	}
}

// Fire notifies, plays the tone and prompts, in that order. Each step is
// isolated: an error or panic in one is logged and the next still runs.
func (a *Alerter) Fire(ctx context.Context, r Reminder) {
	if a == nil {
		return
	}

	a.guard(r, "notify", func() error {
		if a.notifier == nil || a.notifier.Permission() != PermissionGranted {
			return nil
		}
		return a.notifier.Notify(ctx, NotificationTitle, r.NotificationBody())
	})

	a.guard(r, "sound", func() error {
		if a.sounder == nil {
			return nil
		}
		return a.sounder.Play(ctx)
	})

	a.guard(r, "prompt", func() error {
		if a.prompter == nil {
			return nil
		}
		return a.prompter.Prompt(ctx, r.PromptMessage())
	})
}

func (a *Alerter) guard(r Reminder, step string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("alert step panicked",
				zap.String("step", step),
				zap.Int64("id", r.ID),
				zap.String("panic", fmt.Sprint(rec)))
		}
	}()

	if err := fn(); err != nil {
		a.logger.Warn("alert step failed",
			zap.String("step", step),
			zap.Int64("id", r.ID),
			zap.Error(err))
	}
}

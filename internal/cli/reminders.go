package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notexe/mediconnect/internal/alert"
	"github.com/notexe/mediconnect/internal/reminder"
	"github.com/notexe/mediconnect/internal/ui"
)

func newRemindersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reminders",
		Aliases: []string{"r"},
		Short:   "Manage daily medication reminders",
		Long:    "Add, list, acknowledge and delete medication reminders, or keep a scheduler running that fires each reminder once per day.",
	}
	cmd.AddCommand(newRemindersAddCmd(opts))
	cmd.AddCommand(newRemindersListCmd(opts))
	cmd.AddCommand(newRemindersTakeCmd(opts))
	cmd.AddCommand(newRemindersDeleteCmd(opts))
	cmd.AddCommand(newRemindersWatchCmd(opts))
	cmd.AddCommand(newRemindersShellCmd(opts))
	return cmd
}

func newRemindersAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <medicine...> <HH:MM>",
		Short: "Add a daily reminder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			ctx, stop := commandContext(cmd)
			defer stop()

			out := cmd.OutOrStdout()
			s, closeFn, err := a.openScheduler(ctx, reminderDeps{out: out, prompter: alert.NewBannerPrompter(out)})
			if err != nil {
				return err
			}
			defer closeFn()

			medicine := strings.Join(args[:len(args)-1], " ")
			r, err := s.Add(ctx, medicine, args[len(args)-1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, a.formatter.FormatSuccess(r.ConfirmationMessage()))
			return nil
		},
	}
}

func newRemindersListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reminders",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			ctx, stop := commandContext(cmd)
			defer stop()

			s, closeFn, err := a.openScheduler(ctx, reminderDeps{out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintln(cmd.OutOrStdout(), a.formatter.FormatReminders(s.List()))
			return nil
		},
	}
}

func newRemindersTakeCmd(opts *rootOptions) *cobra.Command {
	return newRemindersIDCmd(opts, "take <id>", "Mark a reminder as taken today", "marked as taken",
		func(ctx context.Context, s *reminder.Scheduler, id int64) (bool, error) {
			return s.MarkTaken(ctx, id)
		})
}

func newRemindersDeleteCmd(opts *rootOptions) *cobra.Command {
	cmd := newRemindersIDCmd(opts, "delete <id>", "Delete a reminder", "deleted",
		func(ctx context.Context, s *reminder.Scheduler, id int64) (bool, error) {
			return s.Delete(ctx, id)
		})
	cmd.Aliases = []string{"rm"}
	return cmd
}

type idOp func(ctx context.Context, s *reminder.Scheduler, id int64) (bool, error)

// newRemindersIDCmd builds a command that applies op to one reminder id.
func newRemindersIDCmd(opts *rootOptions, use, short, done string, op idOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reminder id %q", args[0])
			}

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			ctx, stop := commandContext(cmd)
			defer stop()

			s, closeFn, err := a.openScheduler(ctx, reminderDeps{out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer closeFn()

			found, err := op(ctx, s, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("reminder #%d not found", id)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.formatter.FormatSuccess(fmt.Sprintf("Reminder #%d %s.", id, done)))
			return nil
		},
	}
}

func newRemindersWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the scheduler in the foreground",
		Long:  "Check reminders every interval and fire each due one once per day. Each firing waits for Enter before the next one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			ctx, stop := commandContext(cmd)
			defer stop()

			rl, err := ui.NewReadline("")
			if err != nil {
				return fmt.Errorf("failed to setup readline: %w", err)
			}
			defer rl.Close()

			out := rl.Stdout()
			s, closeFn, err := a.openScheduler(ctx, reminderDeps{
				out:      out,
				renderer: ui.NewReminderList(out, a.formatter),
				prompter: alert.NewBlockingPrompter(rl, out),
			})
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintln(out, a.formatter.FormatWelcome(s.Interval()))
			fmt.Fprintln(out, a.formatter.FormatReminders(s.List()))

			if err := s.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			fmt.Fprintln(out, "Goodbye!")
			return nil
		},
	}
}

func newRemindersShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive reminder console with the scheduler running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			ctx, stop := commandContext(cmd)
			defer stop()

			rl, err := ui.NewReadline("reminders> ")
			if err != nil {
				return fmt.Errorf("failed to setup readline: %w", err)
			}
			defer rl.Close()

			out := rl.Stdout()
			s, closeFn, err := a.openScheduler(ctx, reminderDeps{
				out:      out,
				renderer: ui.NewReminderList(out, a.formatter),
				prompter: alert.NewBannerPrompter(out),
			})
			if err != nil {
				return err
			}
			defer closeFn()

			if err := s.Start(ctx); err != nil {
				return err
			}
			return ui.NewShell(s, rl, out, a.formatter).Run(ctx)
		},
	}
}

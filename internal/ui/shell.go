package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/notexe/mediconnect/internal/reminder"
)

// Shell is the interactive reminder console.
type Shell struct {
	scheduler *reminder.Scheduler
	in        LineReader
	out       io.Writer
	formatter *Formatter
	commands  map[string]command
}

type command func(ctx context.Context, args []string) error

var errQuit = errors.New("quit")

func NewShell(scheduler *reminder.Scheduler, in LineReader, out io.Writer, formatter *Formatter) *Shell {
	s := &Shell{
		scheduler: scheduler,
		in:        in,
		out:       out,
		formatter: formatter,
	}
	s.commands = map[string]command{
		"add":    s.add,
		"take":   s.take,
		"delete": s.remove,
		"rm":     s.remove,
		"list":   s.list,
		"ls":     s.list,
		"help":   s.help,
		"quit":   s.quit,
		"exit":   s.quit,
	}
	return s
}

// Run reads commands until quit, EOF, interrupt or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, s.formatter.FormatWelcome(s.scheduler.Interval()))
	fmt.Fprintln(s.out, s.formatter.FormatReminders(s.scheduler.List()))

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		for {
			line, err := s.in.Readline()
			if err != nil {
				errs <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if isEOF(err) {
				fmt.Fprintln(s.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		case line := <-lines:
			if err := s.Execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					fmt.Fprintln(s.out, "Goodbye!")
					return nil
				}
				fmt.Fprintln(s.out, s.formatter.FormatError(err))
			}
		}
	}
}

// Execute runs one command line. Unknown commands return an error.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, type help for commands", fields[0])
	}
	return cmd(ctx, fields[1:])
}

// add takes the last argument as the time and the rest as the medicine.
func (s *Shell) add(ctx context.Context, args []string) error {
	var medicine, clock string
	if len(args) > 0 {
		clock = args[len(args)-1]
		medicine = strings.Join(args[:len(args)-1], " ")
	}

	r, err := s.scheduler.Add(ctx, medicine, clock)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.formatter.FormatSuccess(r.ConfirmationMessage()))
	return nil
}

func (s *Shell) take(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	found, err := s.scheduler.MarkTaken(ctx, id)
	if err != nil {
		return err
	}
	s.reportMissing(id, found)
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	found, err := s.scheduler.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.reportMissing(id, found)
	return nil
}

func (s *Shell) list(context.Context, []string) error {
	fmt.Fprintln(s.out, s.formatter.FormatReminders(s.scheduler.List()))
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	fmt.Fprintln(s.out, s.formatter.FormatHelp())
	return nil
}

func (s *Shell) quit(context.Context, []string) error {
	return errQuit
}

func (s *Shell) reportMissing(id int64, found bool) {
	if !found {
		fmt.Fprintln(s.out, s.formatter.FormatInfo(fmt.Sprintf("Reminder #%d not found.", id)))
	}
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one reminder id")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid reminder id %q", args[0])
	}
	return id, nil
}

package alert

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// LineReader reads one line of input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

var promptStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("81")).
	Bold(true)

// BlockingPrompter shows the acknowledgment message and waits for Enter.
// At most one Readline is in flight: a read left over from a cancelled
// Prompt is picked up by the next one.
type BlockingPrompter struct {
	in  LineReader
	out io.Writer

	mu      sync.Mutex
	pending chan error
}

func NewBlockingPrompter(in LineReader, out io.Writer) *BlockingPrompter {
	return &BlockingPrompter{in: in, out: out}
}

// Prompt blocks until a line is read or ctx is done.
func (p *BlockingPrompter) Prompt(ctx context.Context, message string) error {
	if _, err := fmt.Fprintf(p.out, "%s\n%s\n", promptStyle.Render(message), "Press Enter to acknowledge."); err != nil {
		return err
	}

	select {
	case err := <-p.read():
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to read acknowledgment: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BlockingPrompter) read() <-chan error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		ch := make(chan error, 1)
		p.pending = ch
		go func() {
			_, err := p.in.Readline()
			ch <- err
		}()
	}
	return p.pending
}

// BannerPrompter prints the acknowledgment message without waiting.
type BannerPrompter struct {
	out io.Writer
}

func NewBannerPrompter(out io.Writer) *BannerPrompter {
	return &BannerPrompter{out: out}
}

func (p *BannerPrompter) Prompt(_ context.Context, message string) error {
	_, err := fmt.Fprintln(p.out, promptStyle.Render(message))
	return err
}

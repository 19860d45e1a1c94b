package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when a password must be typed but there is no
// terminal to type it on.
var ErrNoTerminal = errors.New("no terminal available to prompt for password")

// Prompter reads a secret from the user. Restore undoes any terminal mode
// change made by an Ask that is still in progress; it is safe to call from
// another goroutine.
type Prompter interface {
	Ask(ctx context.Context, prompt string) (string, error)
	Restore()
}

// TerminalPrompter reads the password without echo from the controlling
// terminal, so it works even when stdin carries the entry text.
type TerminalPrompter struct {
	Out io.Writer

	// OpenTerminal defaults to opening /dev/tty, falling back to stdin when
	// that is a terminal.
	OpenTerminal func() (*os.File, func(), error)

	mu      sync.Mutex
	restore func()
}

// NewTerminalPrompter writes prompts to out.
func NewTerminalPrompter(out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{Out: out, OpenTerminal: openTerminal}
}

func openTerminal() (*os.File, func(), error) {
	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		return tty, func() { _ = tty.Close() }, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return os.Stdin, func() {}, nil
	}
	return nil, nil, ErrNoTerminal
}

// Ask prints prompt and reads one line with echo disabled.
func (p *TerminalPrompter) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	open := p.OpenTerminal
	if open == nil {
		open = openTerminal
	}
	tty, closeTTY, err := open()
	if err != nil {
		return "", err
	}
	defer closeTTY()

	fd := int(tty.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read terminal state: %w", err)
	}
	p.setRestore(func() { _ = term.Restore(fd, state) })
	defer p.setRestore(nil)

	fmt.Fprint(p.Out, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

// Restore puts the terminal back if a prompt is active.
func (p *TerminalPrompter) Restore() {
	p.mu.Lock()
	restore := p.restore
	p.restore = nil
	p.mu.Unlock()
	if restore != nil {
		restore()
	}
}

func (p *TerminalPrompter) setRestore(fn func()) {
	p.mu.Lock()
	p.restore = fn
	p.mu.Unlock()
}

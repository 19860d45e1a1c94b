// Package screenshot captures the screen through an external utility
// (ImageMagick import by default) that writes a PNG to stdout.
package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"olog/internal/logging"
)

// AttachmentName is the name given to captured images.
const AttachmentName = "screenshot.png"

// ErrEmptyCapture is returned when the utility exits cleanly without output.
var ErrEmptyCapture = errors.New("screenshot command produced no image data")

// Mode selects what is captured.
type Mode int

const (
	// WholeScreen captures the root window.
	WholeScreen Mode = iota
	// Region lets the user select an area with the mouse.
	Region
)

// ImageMagick import arguments used when a Capturer sets none.
var (
	DefaultScreenArgs = []string{"-window", "root", "png:-"}
	DefaultRegionArgs = []string{"png:-"}
)

// CommandRunner is the part of exec.Cmd that Capture uses.
type CommandRunner interface {
	Run() error
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
}

type commandRunnerAdapter struct {
	cmd *exec.Cmd
}

func (c *commandRunnerAdapter) Run() error {
	return c.cmd.Run()
}

func (c *commandRunnerAdapter) SetStdout(w io.Writer) {
	c.cmd.Stdout = w
}

func (c *commandRunnerAdapter) SetStderr(w io.Writer) {
	c.cmd.Stderr = w
}

// CommandFactory creates a CommandRunner. Tests substitute their own.
type CommandFactory func(ctx context.Context, name string, arg ...string) CommandRunner

// DefaultCommandFactory runs real processes, killed when ctx is done.
var DefaultCommandFactory CommandFactory = func(ctx context.Context, name string, arg ...string) CommandRunner {
	return &commandRunnerAdapter{cmd: exec.CommandContext(ctx, name, arg...)}
}

// Capturer runs the capture utility.
type Capturer struct {
	// Command is the utility plus any leading arguments, split on whitespace.
	Command string
	// ScreenArgs and RegionArgs follow Command for each mode. Nil means the
	// ImageMagick defaults; the utility must write the image to stdout.
	ScreenArgs []string
	RegionArgs []string
	Factory    CommandFactory
	LookPath   func(file string) (string, error)
}

func (c *Capturer) modeArgs(mode Mode) []string {
	if mode == WholeScreen {
		if c.ScreenArgs != nil {
			return c.ScreenArgs
		}
		return DefaultScreenArgs
	}
	if c.RegionArgs != nil {
		return c.RegionArgs
	}
	return DefaultRegionArgs
}

// NewCapturer returns a Capturer that runs command as a real process.
func NewCapturer(command string) *Capturer {
	return &Capturer{Command: command, Factory: DefaultCommandFactory, LookPath: exec.LookPath}
}

// Capture runs the utility and returns what it wrote to stdout. When the
// process fails, the bytes it did write are returned alongside the error so
// the caller can decide whether they are worth keeping.
func (c *Capturer) Capture(ctx context.Context, mode Mode) ([]byte, error) {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return nil, errors.New("no screenshot command configured")
	}

	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("failed to find '%s' executable in PATH: %w", fields[0], err)
	}

	factory := c.Factory
	if factory == nil {
		factory = DefaultCommandFactory
	}
	args := append(fields[1:], c.modeArgs(mode)...)
	runner := factory(ctx, path, args...)

	var stdout, stderr bytes.Buffer
	runner.SetStdout(&stdout)
	runner.SetStderr(&stderr)

	logging.Logf(logging.Debug, "Executing screenshot command: %s %s", path, strings.Join(args, " "))
	if err := runner.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return stdout.Bytes(), fmt.Errorf("screenshot command '%s' failed: %w\nstderr: %s", fields[0], err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, ErrEmptyCapture
	}
	logging.Logf(logging.Debug, "Captured %d bytes", stdout.Len())
	return stdout.Bytes(), nil
}

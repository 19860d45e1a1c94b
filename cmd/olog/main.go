package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"olog/internal/app"
	"olog/internal/logging"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// appRunner is the part of *app.AppRunner that main drives.
type appRunner interface {
	Run(ctx context.Context, args []string) error
	Usage(w io.Writer)
	Abort()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, app.NewAppRunner(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the application and maps its outcome to an exit code.
func execute(ctx context.Context, runner appRunner, args []string, stderr io.Writer) int {
	// Run blocks on stdin or the password prompt, which do not observe ctx,
	// so an interrupt is handled here rather than waiting for Run to return.
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, args)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return abort(runner, stderr)
	}
	if err == nil {
		return exitOK
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return abort(runner, stderr)
	}

	// Errors are reported even under -q.
	if logging.GetLevel() < logging.Error {
		logging.SetLevel(logging.Error)
	}
	logging.Logf(logging.Error, "%v", err)
	if errors.Is(err, app.ErrUsage) {
		fmt.Fprintln(stderr)
		runner.Usage(stderr)
		return exitUsage
	}
	return exitFailure
}

func abort(runner appRunner, stderr io.Writer) int {
	runner.Abort()
	fmt.Fprintln(stderr, "\nAborted.")
	return exitInterrupted
}

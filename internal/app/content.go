package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"olog/internal/config"
	"olog/internal/logging"
	"olog/internal/olog"
	"olog/internal/screenshot"
)

// EndMarker ends interactive entry text. It is not part of the text.
const EndMarker = "-END-"

const maxLineBytes = 1024 * 1024

// readBody returns the entry text from path when set, or from r up to the
// end marker.
func (a *AppRunner) readBody(path string, quiet bool) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read entry text from '%s': %w", path, err)
		}
		return string(data), nil
	}
	if !quiet {
		fmt.Fprintf(a.stderr, "Type log entry below (Enter %s to end):\n", EndMarker)
	}
	return readUntilMarker(a.stdin)
}

// readUntilMarker joins lines with "\n" until a line equal to EndMarker or
// end of input.
func readUntilMarker(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == EndMarker {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read entry text: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// readAttachments loads every named file fully into memory, in order.
func readAttachments(paths []string) ([]olog.Attachment, error) {
	var attachments []olog.Attachment
	for _, p := range paths {
		a, err := olog.ReadAttachment(p)
		if err != nil {
			return nil, err
		}
		logging.Logf(logging.Debug, "Attaching '%s' (%s, %d bytes)", p, a.ContentType, len(a.Data))
		attachments = append(attachments, a)
	}
	return attachments, nil
}

// captureScreenshot returns the screenshot attachment, or nil when the
// capture yielded nothing. Capture failures are warnings, not errors.
func (a *AppRunner) captureScreenshot(ctx context.Context, defaults *config.Defaults, mode screenshot.Mode, quiet bool) (*olog.Attachment, error) {
	if mode == screenshot.Region && !quiet {
		fmt.Fprintln(a.stderr, "Select area of screen to add to log entry.")
	}
	c := a.capturerFactory.New(defaults.ScreenshotCommand, defaults.ScreenshotScreenArgs, defaults.ScreenshotRegionArgs)
	data, err := c.Capture(ctx, mode)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil && !errors.Is(err, screenshot.ErrEmptyCapture) {
		logging.Logf(logging.Warning, "Screenshot capture failed: %v", err)
	}
	if len(data) == 0 {
		logging.Logf(logging.Warning, "Screenshot capture returned no image, continuing without it")
		return nil, nil
	}
	shot := olog.NewAttachment(screenshot.AttachmentName, data)
	return &shot, nil
}

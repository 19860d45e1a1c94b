// Package olog models Olog log entries and submits them to an Olog service.
package olog

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLevel is the level given to entries that do not set one.
const DefaultLevel = "Info"

const maxTitleRunes = 80

var (
	ErrNoLogbooks = errors.New("at least one logbook is required")
	ErrNoOwner    = errors.New("an owner is required")
)

// Logbook is a named channel an entry is filed into.
type Logbook struct {
	Name string `json:"name"`
}

// Tag labels an entry.
type Tag struct {
	Name string `json:"name"`
}

// Attachment is a named binary payload sent along with an entry.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewAttachment wraps data, guessing the content type from the name first
// and the content second.
func NewAttachment(name string, data []byte) Attachment {
	return Attachment{Name: name, ContentType: detectContentType(name, data), Data: data}
}

// ReadAttachment reads the whole file at path into an attachment named
// after the file's base name.
func ReadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment '%s': %w", path, err)
	}
	return NewAttachment(filepath.Base(path), data), nil
}

func detectContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}

// LogEntry is one entry to be created. Build it with NewLogEntry and treat
// it as read-only afterwards.
//
// Tags and Attachments are nil when none were given.
type LogEntry struct {
	Text        string
	Owner       string
	Title       string
	Level       string
	Logbooks    []Logbook
	Tags        []Tag
	Attachments []Attachment
}

// EntryOption sets an optional LogEntry field.
type EntryOption func(*LogEntry)

// WithTags adds tags by name.
func WithTags(names ...string) EntryOption {
	return func(e *LogEntry) {
		for _, name := range names {
			e.Tags = append(e.Tags, Tag{Name: name})
		}
	}
}

// WithAttachments appends attachments, keeping their order.
func WithAttachments(attachments ...Attachment) EntryOption {
	return func(e *LogEntry) {
		e.Attachments = append(e.Attachments, attachments...)
	}
}

// WithTitle sets an explicit title instead of deriving one from the text.
func WithTitle(title string) EntryOption {
	return func(e *LogEntry) {
		e.Title = strings.TrimSpace(title)
	}
}

// WithLevel overrides DefaultLevel.
func WithLevel(level string) EntryOption {
	return func(e *LogEntry) {
		if level = strings.TrimSpace(level); level != "" {
			e.Level = level
		}
	}
}

// NewLogEntry builds an entry owned by owner and filed into logbooks.
// The text may be empty.
func NewLogEntry(text, owner string, logbooks []string, opts ...EntryOption) (*LogEntry, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	if len(logbooks) == 0 {
		return nil, ErrNoLogbooks
	}

	e := &LogEntry{Text: text, Owner: owner, Level: DefaultLevel}
	for _, name := range logbooks {
		e.Logbooks = append(e.Logbooks, Logbook{Name: name})
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Title == "" {
		e.Title = deriveTitle(text)
	}
	return e, nil
}

// deriveTitle uses the first non-blank line of text, shortened to fit.
func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > maxTitleRunes {
			return string(runes[:maxTitleRunes-3]) + "..."
		}
		return line
	}
	return ""
}

package olog

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Summary is the human readable form of an entry printed by --dry-run.
type Summary struct {
	Owner       string              `yaml:"owner"`
	Title       string              `yaml:"title,omitempty"`
	Level       string              `yaml:"level"`
	Logbooks    []string            `yaml:"logbooks"`
	Tags        []string            `yaml:"tags,omitempty"`
	Attachments []AttachmentSummary `yaml:"attachments,omitempty"`
	Text        string              `yaml:"text"`
}

// AttachmentSummary describes an attachment without its content.
type AttachmentSummary struct {
	Name        string `yaml:"name"`
	ContentType string `yaml:"content_type"`
	Size        int    `yaml:"size"`
}

// Summary returns the entry with attachments reduced to name, type and size.
func (e *LogEntry) Summary() Summary {
	s := Summary{Owner: e.Owner, Title: e.Title, Level: e.Level, Text: e.Text}
	for _, lb := range e.Logbooks {
		s.Logbooks = append(s.Logbooks, lb.Name)
	}
	for _, tag := range e.Tags {
		s.Tags = append(s.Tags, tag.Name)
	}
	for _, a := range e.Attachments {
		s.Attachments = append(s.Attachments, AttachmentSummary{Name: a.Name, ContentType: a.ContentType, Size: len(a.Data)})
	}
	return s
}

// WriteSummary writes the entry summary to w as YAML.
func WriteSummary(w io.Writer, e *LogEntry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e.Summary()); err != nil {
		return fmt.Errorf("failed to render entry summary: %w", err)
	}
	return enc.Close()
}

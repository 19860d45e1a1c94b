package olog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// Part names expected by the multipart endpoint.
const (
	entryPartName = "logEntry"
	filePartName  = "files"
)

type wireAttachment struct {
	ID                      string `json:"id"`
	Filename                string `json:"filename"`
	FileMetadataDescription string `json:"fileMetadataDescription"`
}

type wireEntry struct {
	Owner       string           `json:"owner"`
	Description string           `json:"description"`
	Title       string           `json:"title,omitempty"`
	Level       string           `json:"level,omitempty"`
	Logbooks    []Logbook        `json:"logbooks"`
	Tags        []Tag            `json:"tags,omitempty"`
	Attachments []wireAttachment `json:"attachments,omitempty"`
}

// encodeMultipart renders the entry and its attachments as one
// multipart/form-data body. Each file part is named after the attachment id
// listed in the JSON so the service can pair them up.
func encodeMultipart(e *LogEntry, newID func() string) ([]byte, string, error) {
	wire := wireEntry{
		Owner:       e.Owner,
		Description: e.Text,
		Title:       e.Title,
		Level:       e.Level,
		Logbooks:    e.Logbooks,
		Tags:        e.Tags,
	}
	ids := make([]string, len(e.Attachments))
	for i, a := range e.Attachments {
		ids[i] = newID()
		wire.Attachments = append(wire.Attachments, wireAttachment{
			ID:                      ids[i],
			Filename:                a.Name,
			FileMetadataDescription: a.ContentType,
		})
	}

	entryJSON, err := json.Marshal(wire)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode log entry: %w", err)
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="%s"`, entryPartName)},
		"Content-Type":        {"application/json"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log entry part: %w", err)
	}
	if _, err := part.Write(entryJSON); err != nil {
		return nil, "", fmt.Errorf("failed to write log entry part: %w", err)
	}

	for i, a := range e.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {fmt.Sprintf(`form-data; name="%s"; filename="%s"`, filePartName, ids[i])},
			"Content-Type":        {contentType},
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part for attachment '%s': %w", a.Name, err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write attachment '%s': %w", a.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

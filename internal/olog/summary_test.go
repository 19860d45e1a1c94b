package olog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteSummary(t *testing.T) {
	entry, err := NewLogEntry("line one\nline two", "alice", []string{"Ops"},
		WithTags("RF"),
		WithAttachments(NewAttachment("shot.png", []byte{1, 2, 3})),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, entry))

	var got Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, entry.Summary(), got)
	assert.Equal(t, []AttachmentSummary{{Name: "shot.png", ContentType: "image/png", Size: 3}}, got.Attachments)
	assert.Contains(t, buf.String(), "owner: alice")
}

func TestWriteSummary_OmitsEmptyLists(t *testing.T) {
	entry, err := NewLogEntry("text", "alice", []string{"Ops"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, entry))
	assert.NotContains(t, buf.String(), "tags:")
	assert.NotContains(t, buf.String(), "attachments:")
}

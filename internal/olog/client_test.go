package olog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olog/internal/auth"
	"olog/internal/config"
	"olog/internal/executor"
)

type receivedRequest struct {
	method   string
	path     string
	user     string
	password string
	entry    map[string]interface{}
	files    []receivedFile
}

type receivedFile struct {
	filename    string
	contentType string
	data        string
}

// recordingServer stores every multipart submission and answers with reply.
func recordingServer(t *testing.T, status int, reply string) (*httptest.Server, func() []receivedRequest) {
	t.Helper()
	var mu sync.Mutex
	var got []receivedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := receivedRequest{method: r.Method, path: r.URL.Path}
		rec.user, rec.password, _ = r.BasicAuth()

		if assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			values := r.MultipartForm.Value[entryPartName]
			if assert.Len(t, values, 1) {
				assert.NoError(t, json.Unmarshal([]byte(values[0]), &rec.entry))
			}
			for _, fh := range r.MultipartForm.File[filePartName] {
				f, err := fh.Open()
				if !assert.NoError(t, err) {
					continue
				}
				data, _ := io.ReadAll(f)
				f.Close()
				rec.files = append(rec.files, receivedFile{
					filename:    fh.Filename,
					contentType: fh.Header.Get("Content-Type"),
					data:        string(data),
				})
			}
		}

		mu.Lock()
		got = append(got, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []receivedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]receivedRequest(nil), got...)
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestClient_Log(t *testing.T) {
	srv, requests := recordingServer(t, http.StatusOK, `{"id": 4711, "owner": "alice"}`)

	client, err := NewClient(context.Background(), srv.URL+"/Olog/", auth.Credentials{Username: "alice", Password: "s3cret"},
		WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	entry, err := NewLogEntry("Beam lost\ndetails", "alice", []string{"Ops", "RF"},
		WithTags("Fault"),
		WithAttachments(
			Attachment{Name: "notes.txt", ContentType: "text/plain", Data: []byte("first")},
			Attachment{Name: "screenshot.png", ContentType: "image/png", Data: []byte("second")},
		),
	)
	require.NoError(t, err)

	result, err := client.Log(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "4711", result.ID)
	assert.Equal(t, "alice", result.Owner)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	got := requests()
	require.Len(t, got, 1)
	req := got[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/Olog"+MultipartPath, req.path)
	assert.Equal(t, "alice", req.user)
	assert.Equal(t, "s3cret", req.password)

	assert.Equal(t, "alice", req.entry["owner"])
	assert.Equal(t, "Beam lost\ndetails", req.entry["description"])
	assert.Equal(t, "Beam lost", req.entry["title"])
	assert.Equal(t, "Info", req.entry["level"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"name": "Ops"},
		map[string]interface{}{"name": "RF"},
	}, req.entry["logbooks"])
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Fault"}}, req.entry["tags"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"id": "id-1", "filename": "notes.txt", "fileMetadataDescription": "text/plain"},
		map[string]interface{}{"id": "id-2", "filename": "screenshot.png", "fileMetadataDescription": "image/png"},
	}, req.entry["attachments"])

	require.Len(t, req.files, 2)
	assert.Equal(t, receivedFile{filename: "id-1", contentType: "text/plain", data: "first"}, req.files[0])
	assert.Equal(t, receivedFile{filename: "id-2", contentType: "image/png", data: "second"}, req.files[1])
}

func TestClient_Log_NoAttachments(t *testing.T) {
	srv, requests := recordingServer(t, http.StatusOK, `{"id":"abc"}`)

	client, err := NewClient(context.Background(), srv.URL, auth.Credentials{Username: "alice"})
	require.NoError(t, err)
	entry, err := NewLogEntry("", "alice", []string{"Ops"})
	require.NoError(t, err)

	result, err := client.Log(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.ID)

	got := requests()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].files)
	assert.NotContains(t, got[0].entry, "tags")
	assert.NotContains(t, got[0].entry, "attachments")
	assert.Equal(t, "", got[0].entry["description"])
}

func TestClient_Log_NotDeduplicated(t *testing.T) {
	srv, requests := recordingServer(t, http.StatusOK, `{"id":"1"}`)

	client, err := NewClient(context.Background(), srv.URL, auth.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	entry, err := NewLogEntry("same", "alice", []string{"Ops"})
	require.NoError(t, err)

	_, err = client.Log(context.Background(), entry)
	require.NoError(t, err)
	_, err = client.Log(context.Background(), entry)
	require.NoError(t, err)

	assert.Len(t, requests(), 2)
}

func TestClient_Log_RejectedByService(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusBadRequest, "logbook 'Nope' does not exist")

	client, err := NewClient(context.Background(), srv.URL, auth.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	entry, err := NewLogEntry("text", "alice", []string{"Nope"})
	require.NoError(t, err)

	result, err := client.Log(context.Background(), entry)
	assert.Nil(t, result)
	var statusErr *executor.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestClient_Log_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, "created")
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), srv.URL, auth.Credentials{Username: "alice"})
	require.NoError(t, err)
	entry, err := NewLogEntry("text", "alice", []string{"Ops"})
	require.NoError(t, err)

	result, err := client.Log(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "", result.ID)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
}

func TestClient_Log_ArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"first"},{"id":"second"}]`)
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), srv.URL, auth.Credentials{Username: "alice"})
	require.NoError(t, err)
	entry, err := NewLogEntry("text", "alice", []string{"Ops"})
	require.NoError(t, err)

	result, err := client.Log(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "first", result.ID)
}

func TestClient_Log_MissingUsername(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), srv.URL, auth.Credentials{})
	require.NoError(t, err)

	_, err = client.Log(context.Background(), &LogEntry{Owner: "x", Logbooks: []Logbook{{Name: "Ops"}}})
	assert.ErrorIs(t, err, auth.ErrMissingUsername)
	assert.False(t, called)
}

func TestClient_Log_NilEntry(t *testing.T) {
	client, err := NewClient(context.Background(), "http://localhost:1", auth.Credentials{Username: "a"},
		WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)
	_, err = client.Log(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(context.Background(), "not a url", auth.Credentials{})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), "http://olog.example", auth.Credentials{},
		WithClientConfig(config.ClientConfig{Auth: "kerberos"}))
	assert.Error(t, err)
}

package executor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"olog/internal/logging"
	"olog/internal/util"
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: server returned %s", e.Method, e.URL, e.Status)
	if len(e.Body) > 0 {
		msg += ": " + util.Snippet(bytes.TrimSpace(e.Body))
	}
	return msg
}

// ExecuteRequest sends req exactly once and reads the whole response body.
// The returned response has a body that can be read again. A non-2xx status
// is returned as a *StatusError together with the response and body.
func ExecuteRequest(client *http.Client, req *http.Request) (*http.Response, []byte, error) {
	logging.Logf(logging.Debug, "Sending request: %s %s", req.Method, req.URL.Redacted())

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return resp, nil, fmt.Errorf("failed to read response body (status %d): %w", resp.StatusCode, readErr)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	logging.Logf(logging.Debug, "Response status: %s", resp.Status)
	if logging.Enabled(logging.Debug) && len(body) > 0 {
		logging.Logf(logging.Debug, "Response body snippet: %s", util.Snippet(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, body, &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}
	return resp, body, nil
}

package olog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"olog/internal/auth"
	"olog/internal/config"
	"olog/internal/executor"
	"olog/internal/httpclient"
	"olog/internal/logging"
	"olog/internal/util"
)

// MultipartPath is appended to the base URL to create an entry together
// with its attachments.
const MultipartPath = "/logs/multipart"

// Result describes the entry the service created.
type Result struct {
	ID         string
	Owner      string
	StatusCode int
}

// Client submits entries to one Olog service as one user.
type Client struct {
	baseURL    string
	creds      auth.Credentials
	cfg        config.ClientConfig
	httpClient *http.Client
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithClientConfig sets the transport settings (auth scheme, TLS, timeout).
func WithClientConfig(cfg config.ClientConfig) Option {
	return func(c *Client) {
		c.cfg = cfg
	}
}

// WithHTTPClient replaces the HTTP client built from the client config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithIDGenerator replaces the attachment id generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.newID = gen
	}
}

// NewClient creates a client for the service at baseURL, for example
// http://olog.example:8080/Olog.
func NewClient(ctx context.Context, baseURL string, creds auth.Credentials, opts ...Option) (*Client, error) {
	if err := config.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		cfg:     config.ClientConfig{Auth: config.AuthBasic, Timeout: config.DefaultTimeout},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		hc, err := httpclient.NewClient(ctx, &c.cfg, creds)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		c.httpClient = hc
	}
	return c, nil
}

// Log creates entry on the service in a single request. Calling it twice
// creates two entries.
func (c *Client) Log(ctx context.Context, entry *LogEntry) (*Result, error) {
	if entry == nil {
		return nil, errors.New("log entry is nil")
	}
	body, contentType, err := encodeMultipart(entry, c.newID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+MultipartPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if err := auth.ApplyAuthHeaders(req, c.cfg.Auth, c.creds); err != nil {
		return nil, fmt.Errorf("failed to apply auth headers: %w", err)
	}

	logging.Logf(logging.Debug, "Submitting entry to %d logbook(s) with %d attachment(s)", len(entry.Logbooks), len(entry.Attachments))
	resp, respBody, err := executor.ExecuteRequest(c.httpClient, req)
	if err != nil {
		return nil, err
	}

	result := &Result{StatusCode: resp.StatusCode}
	if !util.LooksLikeJSON(string(respBody)) || !gjson.ValidBytes(respBody) {
		logging.Logf(logging.Debug, "Response is not JSON, created entry id unknown")
		return result, nil
	}
	created := gjson.ParseBytes(respBody)
	if created.IsArray() {
		created = created.Get("0")
	}
	result.ID = created.Get("id").String()
	result.Owner = created.Get("owner").String()
	return result, nil
}

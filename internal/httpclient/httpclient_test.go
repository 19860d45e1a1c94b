package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/go-ntlmssp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"olog/internal/auth"
	"olog/internal/config"
)

// getBaseTransport digs the *http.Transport out of the wrappers NewClient uses.
func getBaseTransport(client *http.Client) (*http.Transport, bool) {
	switch t := client.Transport.(type) {
	case *http.Transport:
		return t, true
	case ntlmssp.Negotiator:
		base, ok := t.RoundTripper.(*http.Transport)
		return base, ok
	case *auth.DigestRoundTripper:
		base, ok := t.Next.(*http.Transport)
		return base, ok
	case *oauth2.Transport:
		base, ok := t.Base.(*http.Transport)
		return base, ok
	}
	return nil, false
}

func TestNewClient(t *testing.T) {
	creds := auth.Credentials{Username: "alice", Password: "secret"}

	tests := []struct {
		name               string
		cfg                config.ClientConfig
		creds              auth.Credentials
		expectError        bool
		expectTLSSkip      bool
		expectTimeout      time.Duration
		checkTransportType func(t *testing.T, transport http.RoundTripper)
	}{
		{
			name:          "Basic",
			cfg:           config.ClientConfig{Auth: config.AuthBasic, Timeout: 5 * time.Second},
			creds:         creds,
			expectTimeout: 5 * time.Second,
			checkTransportType: func(t *testing.T, transport http.RoundTripper) {
				_, ok := transport.(*http.Transport)
				assert.True(t, ok, "Expected base http.Transport for basic auth")
			},
		},
		{
			name:          "Empty Auth Defaults To Basic And Default Timeout",
			cfg:           config.ClientConfig{},
			creds:         creds,
			expectTimeout: config.DefaultTimeout,
		},
		{
			name:          "TLS Skip Verify",
			cfg:           config.ClientConfig{Auth: config.AuthBasic, TLSSkipVerify: true, Timeout: time.Second},
			creds:         creds,
			expectTLSSkip: true,
			expectTimeout: time.Second,
		},
		{
			name:          "Digest",
			cfg:           config.ClientConfig{Auth: config.AuthDigest, Timeout: time.Second},
			creds:         creds,
			expectTimeout: time.Second,
			checkTransportType: func(t *testing.T, transport http.RoundTripper) {
				digestRT, ok := transport.(*auth.DigestRoundTripper)
				require.True(t, ok, "Expected *auth.DigestRoundTripper")
				assert.Equal(t, "alice", digestRT.Username)
				assert.Equal(t, "secret", digestRT.Password)
			},
		},
		{
			name:        "Digest Missing User",
			cfg:         config.ClientConfig{Auth: config.AuthDigest, Timeout: time.Second},
			expectError: true,
		},
		{
			name:          "NTLM",
			cfg:           config.ClientConfig{Auth: "NTLM", Timeout: time.Second},
			creds:         creds,
			expectTimeout: time.Second,
			checkTransportType: func(t *testing.T, transport http.RoundTripper) {
				negotiator, ok := transport.(ntlmssp.Negotiator)
				require.True(t, ok, "Expected ntlmssp.Negotiator transport")
				base := negotiator.RoundTripper.(*http.Transport)
				assert.False(t, base.ForceAttemptHTTP2, "NTLM must stay on HTTP/1.1")
			},
		},
		{
			name:        "NTLM Missing User",
			cfg:         config.ClientConfig{Auth: config.AuthNTLM, Timeout: time.Second},
			expectError: true,
		},
		{
			name:        "OAuth2 Missing Token URL",
			cfg:         config.ClientConfig{Auth: config.AuthOAuth2, ClientID: "cli", Timeout: time.Second},
			creds:       creds,
			expectError: true,
		},
		{
			name:        "Unsupported",
			cfg:         config.ClientConfig{Auth: "magic", Timeout: time.Second},
			creds:       creds,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), &tt.cfg, tt.creds)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, client)
			assert.NotNil(t, client.Jar)
			assert.Equal(t, tt.expectTimeout, client.Timeout)

			base, ok := getBaseTransport(client)
			require.True(t, ok, "Could not extract base http.Transport")
			assert.Equal(t, tt.expectTLSSkip, base.TLSClientConfig.InsecureSkipVerify)

			if tt.checkTransportType != nil {
				tt.checkTransportType(t, client.Transport)
			}
		})
	}
}

func TestNewClient_NilConfig(t *testing.T) {
	client, err := NewClient(context.Background(), nil, auth.Credentials{})
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewClient_OAuth2PasswordGrant(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		assert.Equal(t, "logbook", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	var gotAuth string
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer service.Close()

	cfg := config.ClientConfig{
		Auth:     config.AuthOAuth2,
		TokenURL: tokenServer.URL,
		ClientID: "olog-cli",
		Scopes:   []string{"logbook"},
		Timeout:  5 * time.Second,
	}
	client, err := NewClient(context.Background(), &cfg, auth.Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	_, ok := client.Transport.(*oauth2.Transport)
	require.True(t, ok, "Expected oauth2.Transport")

	resp, err := client.Get(service.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestNewClient_OAuth2TokenFailure(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
	}))
	defer tokenServer.Close()

	cfg := config.ClientConfig{Auth: config.AuthOAuth2, TokenURL: tokenServer.URL, ClientID: "olog-cli", Timeout: time.Second}
	client, err := NewClient(context.Background(), &cfg, auth.Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to obtain oauth2 token")
}

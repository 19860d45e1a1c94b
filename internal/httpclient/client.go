package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"golang.org/x/oauth2"

	"olog/internal/auth"
	"olog/internal/config"
	"olog/internal/logging"
)

// NewClient builds the *http.Client used to talk to the Olog service.
// The transport depends on cfg.Auth: basic needs nothing extra (the header
// is set per request), digest and ntlm wrap the base transport, and oauth2
// exchanges the user's credentials for a token up front (password grant),
// so it may contact cfg.TokenURL before returning.
func NewClient(ctx context.Context, cfg *config.ClientConfig, creds auth.Credentials) (*http.Client, error) {
	if cfg == nil {
		return nil, errors.New("client configuration is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in via config for self-signed lab servers
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.TLSSkipVerify {
		logging.Logf(logging.Warning, "TLS certificate verification is DISABLED")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var transport http.RoundTripper = baseTransport
	switch strings.ToLower(cfg.Auth) {
	case "", config.AuthBasic:
	case config.AuthDigest:
		logging.Logf(logging.Debug, "Configuring Digest transport")
		if creds.Username == "" {
			return nil, fmt.Errorf("digest authentication: %w", auth.ErrMissingUsername)
		}
		transport = &auth.DigestRoundTripper{
			Username: creds.Username,
			Password: creds.Password,
			Next:     baseTransport,
		}
	case config.AuthNTLM:
		logging.Logf(logging.Debug, "Configuring NTLM transport")
		if creds.Username == "" {
			return nil, fmt.Errorf("ntlm authentication: %w", auth.ErrMissingUsername)
		}
		// NTLM is connection oriented and does not survive an HTTP/2 upgrade.
		baseTransport.ForceAttemptHTTP2 = false
		baseTransport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		transport = ntlmssp.Negotiator{RoundTripper: baseTransport}
	case config.AuthOAuth2:
		logging.Logf(logging.Debug, "Requesting OAuth2 token from %s", cfg.TokenURL)
		if cfg.TokenURL == "" || cfg.ClientID == "" {
			return nil, errors.New("oauth2 authentication requires token_url and client_id")
		}
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			Scopes:       cfg.Scopes,
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: baseTransport, Timeout: timeout})
		token, err := oauthCfg.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain oauth2 token: %w", err)
		}
		client := oauthCfg.Client(ctx, token)
		client.Timeout = timeout
		client.Jar = jar
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported authentication type '%s' for client creation", cfg.Auth)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}, nil
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"olog/internal/config"
)

// ErrMissingUsername is returned when a scheme needs a user name and none was resolved.
var ErrMissingUsername = errors.New("username is required for authentication")

// Credentials identify the Olog account. The password is only ever held in memory.
type Credentials struct {
	Username string
	Password string
}

// ApplyAuthHeaders sets request headers for the schemes that use them directly.
// Basic sends the credentials on every request. NTLM also needs them as basic
// auth so that ntlmssp.Negotiator can pick them up. Digest and OAuth2 are
// handled by the client transport.
func ApplyAuthHeaders(req *http.Request, authType string, creds Credentials) error {
	switch strings.ToLower(authType) {
	case "", config.AuthBasic, config.AuthNTLM:
		if creds.Username == "" {
			return ErrMissingUsername
		}
		req.SetBasicAuth(creds.Username, creds.Password)
	case config.AuthDigest, config.AuthOAuth2:
		return nil
	default:
		return fmt.Errorf("unsupported authentication type configured: %s", authType)
	}
	return nil
}

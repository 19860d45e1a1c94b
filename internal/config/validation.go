package config

import (
	"fmt"
	"net/url"
	"strings"
)

var knownAuthTypes = []string{AuthBasic, AuthDigest, AuthNTLM, AuthOAuth2}

func isKnownAuth(authType string) bool {
	for _, known := range knownAuthTypes {
		if strings.EqualFold(authType, known) {
			return true
		}
	}
	return false
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// Validate checks the client settings that cannot be fixed later on.
func (c *ClientConfig) Validate() error {
	if errs := validateClientConfig(c); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func validateDefaults(d *Defaults) []string {
	var errs []string
	if d.URL != "" {
		if err := ValidateURL(d.URL); err != nil {
			errs = append(errs, fmt.Sprintf("- %s.%s: %v", Section, KeyURL, err))
		}
	}
	if strings.TrimSpace(d.ScreenshotCommand) == "" {
		errs = append(errs, fmt.Sprintf("- %s.%s: must not be empty", Section, KeyScreenshotCommand))
	}
	return append(errs, validateClientConfig(&d.Client)...)
}

func validateClientConfig(c *ClientConfig) []string {
	var errs []string
	prefix := Section
	if !isKnownAuth(c.Auth) {
		errs = append(errs, fmt.Sprintf("- %s.%s: invalid auth type '%s', must be one of %v", prefix, KeyAuth, c.Auth, knownAuthTypes))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("- %s.%s: must be positive", prefix, KeyTimeout))
	}
	if strings.EqualFold(c.Auth, AuthOAuth2) {
		if c.TokenURL == "" {
			errs = append(errs, fmt.Sprintf("- %s.%s: required for auth type '%s'", prefix, KeyTokenURL, AuthOAuth2))
		} else if err := ValidateURL(c.TokenURL); err != nil {
			errs = append(errs, fmt.Sprintf("- %s.%s: %v", prefix, KeyTokenURL, err))
		}
		if c.ClientID == "" {
			errs = append(errs, fmt.Sprintf("- %s.%s: required for auth type '%s'", prefix, KeyClientID, AuthOAuth2))
		}
	}
	return errs
}

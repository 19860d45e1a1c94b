package config

import "time"

// Section is the INI section holding every olog setting.
const Section = "olog"

// Keys recognised in the [olog] section.
const (
	KeyURL               = "url"
	KeyLogbooks          = "logbooks"
	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyTags              = "tags"
	KeyAuth              = "auth"
	KeyTokenURL          = "token_url"
	KeyClientID          = "client_id"
	KeyClientSecret      = "client_secret"
	KeyScope             = "scope"
	KeyTLSSkipVerify     = "tls_skip_verify"
	KeyTimeout           = "timeout"
	KeyKeyringService    = "keyring_service"
	KeyScreenshotCommand = "screenshot_command"
	KeyScreenshotScreen  = "screenshot_screen_args"
	KeyScreenshotRegion  = "screenshot_region_args"
)

// Authentication schemes understood by the HTTP client.
const (
	AuthBasic  = "basic"
	AuthDigest = "digest"
	AuthNTLM   = "ntlm"
	AuthOAuth2 = "oauth2"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultKeyringService    = "olog"
	DefaultScreenshotCommand = "import"
)

// Defaults holds the values found in the config files. Empty strings and
// nil slices mean the key was not configured.
//
// Logbooks and Tags come from comma separated values, unlike the command
// line where they are given as separate words.
type Defaults struct {
	URL               string
	Logbooks          []string
	Username          string
	Password          string
	Tags              []string
	KeyringService    string
	ScreenshotCommand string
	// Arguments for whole screen and region captures; nil keeps the
	// ImageMagick import arguments.
	ScreenshotScreenArgs []string
	ScreenshotRegionArgs []string
	Client            ClientConfig
}

// ClientConfig holds transport settings for talking to the Olog service.
type ClientConfig struct {
	Auth          string
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Scopes        []string
	TLSSkipVerify bool
	Timeout       time.Duration
}

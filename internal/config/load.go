package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"olog/internal/logging"
	"olog/internal/util"
)

// SystemConfigPath is read before the per-user file.
const SystemConfigPath = "/etc/olog.conf"

// UserConfigName is looked up in the user's home directory.
const UserConfigName = ".olog.conf"

var loadOptions = ini.LoadOptions{
	InsensitiveKeys: true,
	// Passwords may legitimately contain '#' or ';'.
	IgnoreInlineComment: true,
}

// DefaultPaths returns the config files consulted on every run, in
// override order.
func DefaultPaths() []string {
	paths := []string{SystemConfigPath}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, UserConfigName))
	}
	return paths
}

// Loader gives key lookups over the merged config files.
type Loader struct {
	file  *ini.File
	files []string
}

// Load reads every existing file in paths. Missing files are skipped.
// Files later in the list override keys from earlier ones. A file that
// exists but cannot be read or parsed is an error.
func Load(paths ...string) (*Loader, error) {
	l := &Loader{file: ini.Empty(loadOptions)}
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logging.Logf(logging.Debug, "Config file '%s' not found, skipping", p)
				continue
			}
			return nil, fmt.Errorf("failed to stat config file '%s': %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("config path '%s' is a directory", p)
		}
		if err := l.file.Append(p); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", p, err)
		}
		l.files = append(l.files, p)
	}
	return l, nil
}

// Files returns the config files that were actually read.
func (l *Loader) Files() []string {
	return l.files
}

// Get returns the stored value of key in section, trimmed. The boolean is
// false when the key is absent or blank.
func (l *Loader) Get(section, key string) (string, bool) {
	sec, err := l.file.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", false
	}
	value := strings.TrimSpace(sec.Key(key).String())
	if value == "" {
		return "", false
	}
	return value, true
}

// GetExpanded is Get with $VAR, ${VAR} and %VAR% references expanded. Only
// keys naming local programs use it; passwords and URLs are taken literally.
func (l *Loader) GetExpanded(section, key string) (string, bool) {
	value, ok := l.Get(section, key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(util.ExpandEnvUniversal(value))
	return value, value != ""
}

// Defaults converts the [olog] section into typed defaults and validates them.
func (l *Loader) Defaults() (*Defaults, error) {
	d := &Defaults{
		KeyringService:    DefaultKeyringService,
		ScreenshotCommand: DefaultScreenshotCommand,
		Client: ClientConfig{
			Auth:    AuthBasic,
			Timeout: DefaultTimeout,
		},
	}
	var parseErrs []string

	d.URL, _ = l.Get(Section, KeyURL)
	d.Username, _ = l.Get(Section, KeyUsername)
	d.Password, _ = l.Get(Section, KeyPassword)
	if v, ok := l.Get(Section, KeyLogbooks); ok {
		d.Logbooks = util.SplitList(v)
	}
	if v, ok := l.Get(Section, KeyTags); ok {
		d.Tags = util.SplitList(v)
	}
	if v, ok := l.Get(Section, KeyKeyringService); ok {
		d.KeyringService = v
	}
	if v, ok := l.GetExpanded(Section, KeyScreenshotCommand); ok {
		d.ScreenshotCommand = v
	}
	if v, ok := l.GetExpanded(Section, KeyScreenshotScreen); ok {
		d.ScreenshotScreenArgs = strings.Fields(v)
	}
	if v, ok := l.GetExpanded(Section, KeyScreenshotRegion); ok {
		d.ScreenshotRegionArgs = strings.Fields(v)
	}

	if v, ok := l.Get(Section, KeyAuth); ok {
		d.Client.Auth = strings.ToLower(v)
	}
	d.Client.TokenURL, _ = l.Get(Section, KeyTokenURL)
	d.Client.ClientID, _ = l.Get(Section, KeyClientID)
	d.Client.ClientSecret, _ = l.Get(Section, KeyClientSecret)
	if v, ok := l.Get(Section, KeyScope); ok {
		d.Client.Scopes = strings.Fields(v)
	}
	if v, ok := l.Get(Section, KeyTLSSkipVerify); ok {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Sprintf("- %s.%s: invalid boolean '%s'", Section, KeyTLSSkipVerify, v))
		}
		d.Client.TLSSkipVerify = skip
	}
	if v, ok := l.Get(Section, KeyTimeout); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Sprintf("- %s.%s: invalid duration '%s'", Section, KeyTimeout, v))
		} else {
			d.Client.Timeout = timeout
		}
	}

	allErrs := append(parseErrs, validateDefaults(d)...)
	if len(allErrs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n%s", strings.Join(allErrs, "\n"))
	}
	return d, nil
}

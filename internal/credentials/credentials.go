// Package credentials resolves the Olog password from an ordered list of
// sources: the command line, the config file, the system keyring and
// finally an interactive prompt.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"olog/internal/logging"
)

// ErrNoPassword is returned when every source came up empty.
var ErrNoPassword = errors.New("no password available")

// Source yields a password for a user, or "" when it has none.
type Source struct {
	Name   string
	Lookup func(ctx context.Context, username string) (string, error)
}

// Static returns a source that always yields value.
func Static(name, value string) Source {
	return Source{
		Name: name,
		Lookup: func(context.Context, string) (string, error) {
			return value, nil
		},
	}
}

// KeyringGetter matches keyring.Get.
type KeyringGetter func(service, user string) (string, error)

// Keyring returns a source backed by the system credential store. A missing
// or unreachable store counts as "no password".
func Keyring(service string, get KeyringGetter) Source {
	if get == nil {
		get = keyring.Get
	}
	return Source{
		Name: "keyring",
		Lookup: func(_ context.Context, username string) (string, error) {
			if service == "" || username == "" {
				return "", nil
			}
			secret, err := get(service, username)
			if err != nil {
				if errors.Is(err, keyring.ErrNotFound) {
					logging.Logf(logging.Debug, "No keyring entry for service '%s', user '%s'", service, username)
				} else {
					logging.Logf(logging.Debug, "Keyring unavailable: %v", err)
				}
				return "", nil
			}
			return secret, nil
		},
	}
}

// Prompt returns a source that asks the user through p.
func Prompt(p Prompter) Source {
	return Source{
		Name: "prompt",
		Lookup: func(ctx context.Context, username string) (string, error) {
			return p.Ask(ctx, fmt.Sprintf("Olog Password for %s:", username))
		},
	}
}

// Resolver tries Sources in order and stops at the first non-empty password.
type Resolver struct {
	Sources []Source
}

// NewResolver builds a Resolver over sources.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{Sources: sources}
}

// Resolve returns the first non-empty password. A source error stops the
// search.
func (r *Resolver) Resolve(ctx context.Context, username string) (string, error) {
	for _, src := range r.Sources {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		secret, err := src.Lookup(ctx, username)
		if err != nil {
			return "", fmt.Errorf("password from %s: %w", src.Name, err)
		}
		if secret != "" {
			logging.Logf(logging.Debug, "Using password from %s", src.Name)
			return secret, nil
		}
	}
	return "", ErrNoPassword
}

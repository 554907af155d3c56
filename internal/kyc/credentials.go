package kyc

import (
	"context"
	"strings"
)

// CredentialStore returns the provider credentials. Implementations return an
// error wrapping ErrCredentialsNotConfigured when nothing is configured.
type CredentialStore interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// CredentialFunc adapts a function to CredentialStore.
type CredentialFunc func(ctx context.Context) (Credentials, error)

func (f CredentialFunc) Credentials(ctx context.Context) (Credentials, error) { return f(ctx) }

// StaticCredentials serves a fixed credential pair, typically from the environment.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	c := Credentials(s)
	if !c.complete() {
		return Credentials{}, ErrCredentialsNotConfigured
	}
	return c, nil
}

func (c Credentials) complete() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// resolveCredentials fetches a fresh snapshot and rejects half-configured pairs.
func resolveCredentials(ctx context.Context, store CredentialStore) (Credentials, error) {
	if store == nil {
		return Credentials{}, ErrCredentialsNotConfigured
	}
	creds, err := store.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if !creds.complete() {
		return Credentials{}, ErrCredentialsNotConfigured
	}
	return creds, nil
}

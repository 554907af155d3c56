package kyc

import (
	"context"
	"net/http"
)

// BearerHeaders is the header set of the token-based flows.
func BearerHeaders(token string, creds Credentials) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("x-api-key", creds.ClientSecret)
	h.Set("Content-Type", "application/json")
	return h
}

// APIKeyHeaders is the header set of the token-less Aadhaar flows.
func APIKeyHeaders(creds Credentials) http.Header {
	h := http.Header{}
	h.Set("x-api-key", creds.ClientSecret)
	h.Set("client-id", creds.ClientID)
	h.Set("Content-Type", "application/json")
	return h
}

// HeaderBuilder composes outbound headers from a fresh credential snapshot
// and, for token-based flows, the cached access token.
type HeaderBuilder struct {
	creds  CredentialStore
	tokens *TokenCache
}

// NewHeaderBuilder returns a HeaderBuilder.
func NewHeaderBuilder(creds CredentialStore, tokens *TokenCache) *HeaderBuilder {
	return &HeaderBuilder{creds: creds, tokens: tokens}
}

// Bearer returns the headers for token-based flows.
func (b *HeaderBuilder) Bearer(ctx context.Context) (http.Header, error) {
	token, err := b.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	creds, err := resolveCredentials(ctx, b.creds)
	if err != nil {
		return nil, err
	}
	return BearerHeaders(token, creds), nil
}

// APIKey returns the headers for the token-less flows.
func (b *HeaderBuilder) APIKey(ctx context.Context) (http.Header, error) {
	creds, err := resolveCredentials(ctx, b.creds)
	if err != nil {
		return nil, err
	}
	return APIKeyHeaders(creds), nil
}

package kyc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kycdesk.org/internal/obs"
)

// TokenFreshness is how long an access token is reused before a refresh.
const TokenFreshness = 24 * time.Hour

// Authorizer exchanges credentials for a provider access token.
type Authorizer interface {
	Authorize(ctx context.Context, creds Credentials) (string, error)
}

// TokenCache holds the single process-wide provider access token.
//
// Concurrent callers that both observe a stale slot may both refresh; the last
// write wins. A refresh that began before Invalidate is discarded, so a token
// minted from replaced credentials is never cached.
type TokenCache struct {
	creds      CredentialStore
	authorizer Authorizer
	freshness  time.Duration
	now        func() time.Time

	mu    sync.Mutex
	token AccessToken
	gen   uint64
}

// NewTokenCache builds a cache that refreshes through authorizer using creds.
func NewTokenCache(creds CredentialStore, authorizer Authorizer) *TokenCache {
	return &TokenCache{
		creds:      creds,
		authorizer: authorizer,
		freshness:  TokenFreshness,
		now:        time.Now,
	}
}

// Token returns a valid access token as of the current time.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	return c.ValidToken(ctx, c.now())
}

// ValidToken returns the cached token if it is younger than the freshness
// window at now, otherwise refreshes it.
func (c *TokenCache) ValidToken(ctx context.Context, now time.Time) (string, error) {
	tok, gen, ok := c.cached(now)
	if ok {
		return tok, nil
	}

	creds, err := resolveCredentials(ctx, c.creds)
	if err != nil {
		obs.TokenRefreshTotal.WithLabelValues("credentials_error").Inc()
		return "", fmt.Errorf("credential fetch failed: %w", err)
	}
	value, err := c.authorizer.Authorize(ctx, creds)
	if err != nil {
		obs.TokenRefreshTotal.WithLabelValues("error").Inc()
		obs.FromContext(ctx).Warn().Err(err).Msg("provider token refresh failed")
		if errors.Is(err, ErrProviderUnreachable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}

	c.mu.Lock()
	if c.gen == gen {
		c.token = AccessToken{Value: value, FetchedAt: now}
	}
	c.mu.Unlock()
	obs.TokenRefreshTotal.WithLabelValues("ok").Inc()
	return value, nil
}

// Snapshot returns the current slot contents.
func (c *TokenCache) Snapshot() AccessToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Invalidate drops the cached token so the next call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = AccessToken{}
	c.gen++
	c.mu.Unlock()
}

// cached returns the fresh token, if any, and the generation it was read at.
func (c *TokenCache) cached(now time.Time) (string, uint64, bool) {
	c.mu.Lock()
	tok, gen := c.token, c.gen
	c.mu.Unlock()
	if tok.Value == "" {
		return "", gen, false
	}
	if now.Sub(tok.FetchedAt) >= c.freshness {
		return "", gen, false
	}
	return tok.Value, gen, true
}

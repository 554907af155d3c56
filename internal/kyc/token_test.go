package kyc

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAuthorizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *countingAuthorizer) Authorize(_ context.Context, creds Credentials) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return creds.ClientID + "-token-" + strconv.Itoa(a.calls), nil
}

func TestTokenCacheFreshnessBoundary(t *testing.T) {
	auth := &countingAuthorizer{}
	cache := NewTokenCache(testCreds, auth)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := cache.ValidToken(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, "client-1-token-1", first)

	again, err := cache.ValidToken(ctx, t0.Add(TokenFreshness-time.Nanosecond))
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, auth.calls)

	refreshed, err := cache.ValidToken(ctx, t0.Add(TokenFreshness))
	require.NoError(t, err)
	assert.Equal(t, "client-1-token-2", refreshed)
	assert.Equal(t, 2, auth.calls)
	assert.Equal(t, t0.Add(TokenFreshness), cache.Snapshot().FetchedAt)
}

func TestTokenCacheInvalidate(t *testing.T) {
	auth := &countingAuthorizer{}
	cache := NewTokenCache(testCreds, auth)
	ctx := context.Background()
	now := time.Now()

	_, err := cache.ValidToken(ctx, now)
	require.NoError(t, err)
	cache.Invalidate()
	assert.Empty(t, cache.Snapshot().Value)

	_, err = cache.ValidToken(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, auth.calls)
}

// hookAuthorizer calls during once before returning a token, standing in for
// work that happens while a refresh is in flight.
type hookAuthorizer struct {
	countingAuthorizer
	during func()
}

func (a *hookAuthorizer) Authorize(ctx context.Context, creds Credentials) (string, error) {
	tok, err := a.countingAuthorizer.Authorize(ctx, creds)
	if a.during != nil {
		a.during()
		a.during = nil
	}
	return tok, err
}

func TestTokenCacheDiscardsRefreshOverlappingInvalidate(t *testing.T) {
	auth := &hookAuthorizer{}
	cache := NewTokenCache(testCreds, auth)
	auth.during = cache.Invalidate
	ctx := context.Background()
	now := time.Now()

	tok, err := cache.ValidToken(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "client-1-token-1", tok)
	assert.Empty(t, cache.Snapshot().Value, "token minted before Invalidate must not be cached")

	tok, err = cache.ValidToken(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "client-1-token-2", tok)
	assert.Equal(t, "client-1-token-2", cache.Snapshot().Value)
	assert.Equal(t, 2, auth.calls)
}

func TestTokenCacheErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewTokenCache(StaticCredentials{}, &countingAuthorizer{}).Token(ctx)
	assert.ErrorIs(t, err, ErrCredentialsNotConfigured)
	assert.Contains(t, err.Error(), "credential fetch failed")

	rejected := &countingAuthorizer{err: errors.New("401 from authorize")}
	_, err = NewTokenCache(testCreds, rejected).Token(ctx)
	assert.ErrorIs(t, err, ErrTokenUnavailable)

	down := &countingAuthorizer{err: ErrProviderUnreachable}
	cache := NewTokenCache(testCreds, down)
	_, err = cache.Token(ctx)
	assert.ErrorIs(t, err, ErrProviderUnreachable)
	assert.Empty(t, cache.Snapshot().Value)
}

func TestTokenCacheConcurrentReaders(t *testing.T) {
	cache := NewTokenCache(testCreds, &countingAuthorizer{})
	now := time.Now()
	_, err := cache.ValidToken(context.Background(), now)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := cache.ValidToken(context.Background(), now.Add(time.Minute))
			assert.NoError(t, err)
			assert.Equal(t, "client-1-token-1", tok)
		}()
	}
	wg.Wait()
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// CookieName is the session cookie holding the signed token.
	CookieName = "token"

	userCacheTTL     = time.Minute
	userCacheCleanup = 5 * time.Minute
)

// UserStore looks up dashboard accounts.
type UserStore interface {
	FindUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// Sessions authenticates dashboard requests and issues session tokens.
type Sessions struct {
	tokens *Tokens
	users  UserStore
	cache  *cache.Cache
}

// NewSessions returns a resolver verifying tokens with tokens and loading users from users.
func NewSessions(tokens *Tokens, users UserStore) *Sessions {
	return &Sessions{
		tokens: tokens,
		users:  users,
		cache:  cache.New(userCacheTTL, userCacheCleanup),
	}
}

// Tokens returns the token signer.
func (s *Sessions) Tokens() *Tokens { return s.tokens }

// Login checks the password and returns the user together with a fresh session token.
func (s *Sessions) Login(ctx context.Context, email, password string) (User, string, time.Time, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return User{}, "", time.Time{}, ErrInvalidCredentials
	}
	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, "", time.Time{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return User{}, "", time.Time{}, ErrInvalidCredentials
	}
	token, expires, err := s.tokens.Generate(user)
	if err != nil {
		return User{}, "", time.Time{}, err
	}
	user.PasswordHash = ""
	s.cache.Set(user.ID, user, cache.DefaultExpiration)
	return user, token, expires, nil
}

// Resolve authenticates r from the session cookie or a bearer header.
func (s *Sessions) Resolve(r *http.Request) (User, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return User{}, ErrUnauthorized
	}
	return s.ResolveToken(r.Context(), token)
}

// ResolveToken verifies token and loads the user it names.
func (s *Sessions) ResolveToken(ctx context.Context, token string) (User, error) {
	claims, err := s.tokens.ParseAndValidate(token)
	if err != nil {
		return User{}, ErrUnauthorized
	}
	if v, ok := s.cache.Get(claims.Subject); ok {
		return v.(User), nil
	}
	user, err := s.users.FindUser(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthorized
	}
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = ""
	s.cache.Set(user.ID, user, cache.DefaultExpiration)
	return user, nil
}

// Forget drops a cached user, e.g. after its role changed.
func (s *Sessions) Forget(userID string) { s.cache.Delete(userID) }

// TokenFromRequest returns the session token from the cookie, falling back to
// an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SessionCookie builds the cookie carrying token.
func SessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedSessionCookie expires the session cookie.
func ClearedSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

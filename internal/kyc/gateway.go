package kyc

import (
	"context"
	"errors"
	"strings"

	"kycdesk.org/internal/obs"
)

// Gateway dispatches verification requests to the provider and records
// every completed attempt.
type Gateway struct {
	tokens   *TokenCache
	registry *Registry
	attempts *AttemptLogger
	sleep    sleepFunc
}

// GatewayOption customises a Gateway.
type GatewayOption func(*Gateway)

func withSleep(fn sleepFunc) GatewayOption {
	return func(g *Gateway) { g.sleep = fn }
}

// NewGateway wires the token cache, header builder and type registry around provider.
func NewGateway(provider *Provider, creds CredentialStore, attempts AttemptStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		tokens:   NewTokenCache(creds, provider),
		attempts: NewAttemptLogger(attempts),
	}
	for _, opt := range opts {
		opt(g)
	}
	up := &upstream{provider: provider, headers: NewHeaderBuilder(creds, g.tokens)}
	g.registry = newDefaultRegistry(up, g.sleep)
	return g
}

// Tokens exposes the access-token cache, e.g. to invalidate it after a credential change.
func (g *Gateway) Tokens() *TokenCache { return g.tokens }

// Registry returns the type registry.
func (g *Gateway) Registry() *Registry { return g.registry }

// Verify runs one verification for userID.
//
// Requests that fail before reaching the provider (no user, unknown type,
// missing parameters, no credentials) return an error and are not logged.
// Every other outcome, including provider failures, yields a Result whose
// payload is returned to the caller and whose status is logged.
func (g *Gateway) Verify(ctx context.Context, userID string, req Request) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{Type: req.Type, Status: StatusUnauthenticated}, ErrUnauthenticated
	}
	spec, ok := g.registry.Lookup(string(req.Type))
	if !ok {
		return Result{Type: req.Type}, ErrUnknownType
	}
	if err := spec.validate(req.Params); err != nil {
		return Result{Type: spec.Type}, err
	}

	payload, err := spec.Handler.Execute(ctx, req.Params)
	errMsg := ""
	switch {
	case err == nil:
	case errors.Is(err, ErrCredentialsNotConfigured):
		obs.VerificationsTotal.WithLabelValues(string(spec.Type), string(StatusCredentialsUnavailable)).Inc()
		return Result{Type: spec.Type, Status: StatusCredentialsUnavailable, ErrorMessage: err.Error()}, err
	case errors.Is(err, ErrProviderUnreachable):
		errMsg = err.Error()
		payload = errorPayload(msgProviderUnreachable)
	case errors.Is(err, ErrTokenUnavailable):
		errMsg = err.Error()
		payload = errorPayload(msgTokenFetchFailed)
	default:
		return Result{Type: spec.Type}, err
	}

	res := Result{
		Type:         spec.Type,
		Status:       Classify(payload, nil),
		LogStatus:    ExtractStatus(payload),
		Payload:      payload,
		ErrorMessage: errMsg,
	}
	obs.VerificationsTotal.WithLabelValues(string(res.Type), string(res.Status)).Inc()
	obs.FromContext(ctx).Info().
		Str("kyc_type", string(res.Type)).
		Str("status", string(res.Status)).
		Msg("verification complete")
	// the provider call already happened; a client disconnect must not drop its row
	g.attempts.Record(context.WithoutCancel(ctx), userID, spec.Label(), res.LogStatus)
	return res, nil
}

package audit

import (
	"context"
	"errors"
	"strings"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/obs"
)

// Dashboard-visible actions that leave an audit trail.
const (
	EventLogin            = "auth.login"
	EventLoginFailed      = "auth.login_failed"
	EventLogout           = "auth.logout"
	EventCredentialsSaved = "settings.credentials_saved"
	EventAPITextSaved     = "settings.api_text_saved"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	if fields == nil {
		fields = map[string]any{}
	}
	e := obs.Logger().Info().
		Str("type", "audit").
		Str("event", event).
		Interface("fields", fields)
	if rid := RequestIDFromContext(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		e = e.Str("user_id", userID)
	}
	e.Msg("audit")
	return nil
}

// Package store defines the persistence surface shared by the Postgres and in-memory backends.
package store

import (
	"context"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/reports"
)

const (
	// APITextKey is the system_settings key of the integration blurb.
	APITextKey = "api_integration_text"
	// DefaultAPIText is served when no integration blurb has been saved.
	DefaultAPIText = "integrated with deepvue.tech API."
)

// Store is everything the API server persists.
type Store interface {
	auth.UserStore
	kyc.CredentialStore
	kyc.AttemptStore
	reports.Store

	SaveCredentials(ctx context.Context, creds kyc.Credentials) error
	APIText(ctx context.Context) (string, error)
	SaveAPIText(ctx context.Context, text string) error

	Ping(ctx context.Context) error
	Close() error
}

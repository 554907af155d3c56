package kyc

import (
	"encoding/json"
	"errors"
)

var (
	ErrUnauthenticated          = errors.New("kyc: unauthenticated")
	ErrUnknownType              = errors.New("invalid verification type")
	ErrMissingParam             = errors.New("missing required parameter")
	ErrCredentialsNotConfigured = errors.New("kyc: provider credentials not configured")
	ErrTokenUnavailable         = errors.New("kyc: access token unavailable")
	ErrProviderUnreachable      = errors.New("kyc: provider unreachable")
	ErrInvalidJSON              = errors.New("kyc: invalid JSON response")
)

// Messages placed in synthesized {"error": ...} payloads.
const (
	msgPollTimeout         = "Verification still in progress after multiple attempts"
	msgTokenFetchFailed    = "Token fetch failed"
	msgProviderUnreachable = "Provider unreachable"
	msgInvalidJSONPrefix   = "Invalid JSON response from "
)

// errorPayload synthesizes the {"error": msg} body used for gateway-generated outcomes.
func errorPayload(msg string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}

func invalidJSONPayload(flow string) json.RawMessage {
	return errorPayload(msgInvalidJSONPrefix + flow)
}

package kyc

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const subCodeInsufficientBalance = "INSUFFICIENT_BALANCE"

// statusFields lists the payload fields consulted by ExtractStatus, highest precedence first.
var statusFields = []string{"message", "sub_code", "error"}

// ExtractStatus derives the attempt-log status string from a payload: its
// message, else sub_code, else error, else "success". For array payloads only
// the first element is inspected. Null and empty values are skipped.
func ExtractStatus(payload json.RawMessage) string {
	obj := firstObject(payload)
	for _, f := range statusFields {
		if v := scalarString(obj[f]); v != "" {
			return v
		}
	}
	return string(StatusSuccess)
}

// Classify maps a handler outcome onto the Status enum.
func Classify(payload json.RawMessage, err error) Status {
	switch {
	case err == nil:
	case errors.Is(err, ErrCredentialsNotConfigured):
		return StatusCredentialsUnavailable
	case errors.Is(err, ErrUnauthenticated):
		return StatusUnauthenticated
	case errors.Is(err, ErrProviderUnreachable):
		return StatusProviderUnreachable
	case errors.Is(err, ErrInvalidJSON):
		return StatusInvalidResponse
	default:
		return StatusProviderError
	}

	obj := firstObject(payload)
	if obj == nil {
		return StatusSuccess
	}
	if msg := scalarString(obj["error"]); msg != "" {
		switch {
		case msg == msgPollTimeout:
			return StatusInProgressTimeout
		case strings.HasPrefix(msg, msgInvalidJSONPrefix):
			return StatusInvalidResponse
		case msg == msgProviderUnreachable:
			return StatusProviderUnreachable
		}
		return StatusProviderError
	}
	if sub := scalarString(obj["sub_code"]); sub != "" {
		if strings.EqualFold(sub, subCodeInsufficientBalance) {
			return StatusInsufficientBalance
		}
		return StatusProviderError
	}
	if code, err := strconv.Atoi(scalarString(obj["code"])); err == nil && code >= 400 {
		return StatusProviderError
	}
	return StatusSuccess
}

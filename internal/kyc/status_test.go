package kyc

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStatusPrecedence(t *testing.T) {
	cases := []struct {
		payload string
		want    string
	}{
		{`{"message":"m","sub_code":"S","error":"e"}`, "m"},
		{`{"sub_code":"INSUFFICIENT_BALANCE","error":"e"}`, "INSUFFICIENT_BALANCE"},
		{`{"error":"e"}`, "e"},
		{`{"code":200,"data":{}}`, "success"},
		{`{"message":null,"sub_code":"","error":"e"}`, "e"},
		{`{"message":404}`, "404"},
		{`[{"message":"first"},{"message":"second"}]`, "first"},
		{`[]`, "success"},
		{`"plain"`, "success"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractStatus(json.RawMessage(tc.payload)), tc.payload)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		payload string
		err     error
		want    Status
	}{
		{`{"data":{}}`, nil, StatusSuccess},
		{`[{"status":"completed"}]`, nil, StatusSuccess},
		{`{"error":"Verification still in progress after multiple attempts"}`, nil, StatusInProgressTimeout},
		{`{"error":"Invalid JSON response from PAN"}`, nil, StatusInvalidResponse},
		{`{"error":"Provider unreachable"}`, nil, StatusProviderUnreachable},
		{`{"error":"Token fetch failed"}`, nil, StatusProviderError},
		{`{"message":"Insufficient balance","sub_code":"INSUFFICIENT_BALANCE"}`, nil, StatusInsufficientBalance},
		{`{"sub_code":"INVALID_PAN"}`, nil, StatusProviderError},
		{`{"code":422,"message":"bad input"}`, nil, StatusProviderError},
		{``, fmt.Errorf("wrap: %w", ErrProviderUnreachable), StatusProviderUnreachable},
		{``, ErrCredentialsNotConfigured, StatusCredentialsUnavailable},
		{``, ErrInvalidJSON, StatusInvalidResponse},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(json.RawMessage(tc.payload), tc.err), tc.payload)
	}
}

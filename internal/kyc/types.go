// Package kyc implements the verification gateway: provider credentials and
// access-token lifecycle, per-type request shapes, the asynchronous
// submit-then-poll flows, the two-phase Aadhaar OTP flow, status derivation
// and attempt logging.
package kyc

import (
	"encoding/json"
	"time"
)

// Type identifies a verification flow as sent by the dashboard in the "type" field.
type Type string

const (
	TypeAadhaar        Type = "aadhar"
	TypeAadhaarVerify  Type = "aadhar-verify"
	TypePAN            Type = "pan"
	TypePANAadhaarLink Type = "pan-aadhaar-link"
	TypeDrivingLicense Type = "dl"
	TypeVoterID        Type = "voter"
	TypePassport       Type = "passport"
	TypeCIN            Type = "cin"
	TypeGST            Type = "gst"
	TypeFSSAI          Type = "fssai"
	TypeShopact        Type = "shopact"
	TypeUdyam          Type = "udyam"
)

// labels maps every dispatchable type to the display name written to the attempt log.
// Both Aadhaar phases log under the same label.
var labels = map[Type]string{
	TypeAadhaar:        "Aadhaar",
	TypeAadhaarVerify:  "Aadhaar",
	TypePAN:            "PAN",
	TypePANAadhaarLink: "PAN-Aadhaar Link",
	TypeDrivingLicense: "Driving License",
	TypeVoterID:        "Voter ID",
	TypePassport:       "Passport",
	TypeCIN:            "CIN (Corporate Identification Number)",
	TypeGST:            "GST",
	TypeFSSAI:          "FSSAI (Food License)",
	TypeShopact:        "Shopact License",
	TypeUdyam:          "Udyam Aadhaar",
}

// Label returns the human-readable name of t, or "" for unknown types.
func Label(t Type) string { return labels[t] }

// Params carries the type-specific request inputs (pan_number, otp, ...).
type Params map[string]string

// Request is a single inbound verification request.
type Request struct {
	Type   Type
	Params Params
}

// Status is the normalized outcome of a verification.
type Status string

const (
	StatusSuccess                Status = "success"
	StatusProviderError          Status = "provider_error"
	StatusInsufficientBalance    Status = "insufficient_balance"
	StatusInProgressTimeout      Status = "in_progress_timeout"
	StatusInvalidResponse        Status = "invalid_response"
	StatusProviderUnreachable    Status = "provider_unreachable"
	StatusUnauthenticated        Status = "unauthenticated"
	StatusCredentialsUnavailable Status = "credentials_unavailable"
)

// Result is produced once per request and never mutated.
//
// Payload is the provider's raw JSON (or a synthesized {"error": ...} object)
// and is what the dashboard receives. LogStatus is the string recorded in the
// attempt log.
type Result struct {
	Type         Type
	Status       Status
	LogStatus    string
	Payload      json.RawMessage
	ErrorMessage string
}

// Credentials are the provider client id/secret pair.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AccessToken is the provider bearer token and the time it was obtained.
type AccessToken struct {
	Value     string
	FetchedAt time.Time
}

// AadhaarChallenge correlates the OTP-generate call with the OTP-verify call.
// The caller carries it between the two requests.
type AadhaarChallenge struct {
	ReferenceID   string `json:"reference_id"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Attempt is one row of the attempt log.
type Attempt struct {
	UserID    string
	KycType   string
	Status    string
	Timestamp time.Time
}

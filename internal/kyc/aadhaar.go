package kyc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

const (
	aadhaarGeneratePath = "/v2/ekyc/aadhaar/generate-otp"
	aadhaarVerifyPath   = "/v2/ekyc/aadhaar/verify-otp"

	flowAadhaarGenerate = "Aadhaar OTP generate"
	flowAadhaarVerify   = "Aadhaar OTP verify"
)

// AadhaarFlow runs the two-phase OTP verification. It keeps no state between
// the phases: GenerateOTP hands back the challenge, VerifyOTP takes it as input.
type AadhaarFlow struct {
	up *upstream
}

// GenerateOTP asks the provider to send an OTP to the Aadhaar holder.
// The challenge is empty when the provider rejected the request; raw always
// holds the provider's answer.
func (f *AadhaarFlow) GenerateOTP(ctx context.Context, aadhaarNumber string) (AadhaarChallenge, json.RawMessage, error) {
	headers, err := f.up.headers.APIKey(ctx)
	if err != nil {
		return AadhaarChallenge{}, nil, err
	}
	q := consentQuery()
	q.Set("aadhaar_number", aadhaarNumber)
	raw, err := f.up.call(ctx, flowAadhaarGenerate, http.MethodPost, aadhaarGeneratePath, q, headers)
	if err != nil {
		return AadhaarChallenge{}, nil, err
	}
	return challengeFrom(raw), raw, nil
}

// VerifyOTP submits the OTP for a previously issued challenge. Reference ids
// are not checked locally; the provider rejects ones it never issued.
func (f *AadhaarFlow) VerifyOTP(ctx context.Context, ch AadhaarChallenge, otp string) (json.RawMessage, error) {
	headers, err := f.up.headers.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	q := consentQuery()
	q.Set("otp", otp)
	q.Set("reference_id", ch.ReferenceID)
	return f.up.call(ctx, flowAadhaarVerify, http.MethodPost, aadhaarVerifyPath, q, headers)
}

func consentQuery() url.Values {
	q := url.Values{}
	q.Set("consent", "Y")
	q.Set("purpose", "ForKYC")
	return q
}

// challengeFrom reads reference_id/transaction_id from the top level of the
// response, or from its "data" object.
func challengeFrom(raw json.RawMessage) AadhaarChallenge {
	obj := firstObject(raw)
	if obj == nil {
		return AadhaarChallenge{}
	}
	ch := AadhaarChallenge{
		ReferenceID:   scalarString(obj["reference_id"]),
		TransactionID: scalarString(obj["transaction_id"]),
	}
	if data := firstObject(obj["data"]); data != nil {
		if ch.ReferenceID == "" {
			ch.ReferenceID = scalarString(data["reference_id"])
		}
		if ch.TransactionID == "" {
			ch.TransactionID = scalarString(data["transaction_id"])
		}
	}
	return ch
}

func (f *AadhaarFlow) generateHandler() Handler {
	return HandlerFunc(func(ctx context.Context, p Params) (json.RawMessage, error) {
		_, raw, err := f.GenerateOTP(ctx, p["aadhaar_number"])
		return raw, err
	})
}

func (f *AadhaarFlow) verifyHandler() Handler {
	return HandlerFunc(func(ctx context.Context, p Params) (json.RawMessage, error) {
		ch := AadhaarChallenge{ReferenceID: p["reference_id"], TransactionID: p["transaction_id"]}
		if ch.TransactionID == "" {
			ch.TransactionID = p["txnId"]
		}
		return f.VerifyOTP(ctx, ch, p["otp"])
	})
}

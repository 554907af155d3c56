package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/obs"
)

// handleVerify dispatches POST /api/kyc. The body is a flat object with a
// "type" field and the type's parameters; the provider payload is returned as is.
func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	req, err := decodeVerifyRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	res, err := a.gateway.Verify(r.Context(), userID, req)
	if err != nil {
		handleVerifyError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, res.Payload)
}

func decodeVerifyRequest(w http.ResponseWriter, r *http.Request) (kyc.Request, error) {
	var body map[string]json.RawMessage
	reader := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer reader.Close()
	if err := json.NewDecoder(reader).Decode(&body); err != nil {
		return kyc.Request{}, errors.New("invalid JSON payload")
	}

	params := kyc.Params{}
	var typ string
	for k, raw := range body {
		v, ok := scalarParam(raw)
		if !ok {
			continue
		}
		if k == "type" {
			typ = v
			continue
		}
		params[k] = v
	}
	return kyc.Request{Type: kyc.Type(strings.TrimSpace(typ)), Params: params}, nil
}

// scalarParam renders a JSON scalar as the string the provider query expects.
// Nulls, objects and arrays are skipped.
func scalarParam(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strings.TrimSpace(string(raw)), true
	default:
		return "", false
	}
}

func handleVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, kyc.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, kyc.ErrUnknownType):
		writeError(w, r, http.StatusBadRequest, "Invalid verification type")
	case errors.Is(err, kyc.ErrMissingParam):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, kyc.ErrCredentialsNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, "Provider credentials are not configured")
	default:
		obs.FromContext(r.Context()).Error().Err(err).Msg("verification failed")
		writeError(w, r, http.StatusInternalServerError, "Server error")
	}
}

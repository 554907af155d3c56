package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kycdesk.org/internal/audit"
	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/obs"
)

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		creds, err := a.store.Credentials(r.Context())
		if errors.Is(err, kyc.ErrCredentialsNotConfigured) {
			writeError(w, r, http.StatusNotFound, "No credentials found")
			return
		}
		if err != nil {
			obs.FromContext(r.Context()).Error().Err(err).Msg("load credentials")
			writeError(w, r, http.StatusInternalServerError, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, creds)
	case http.MethodPost:
		if a.envCreds {
			writeError(w, r, http.StatusConflict, "Provider credentials are set by the server environment")
			return
		}
		var creds kyc.Credentials
		if err := decodeJSON(w, r, &creds); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		creds.ClientID = strings.TrimSpace(creds.ClientID)
		creds.ClientSecret = strings.TrimSpace(creds.ClientSecret)
		if creds.ClientID == "" || creds.ClientSecret == "" {
			writeError(w, r, http.StatusBadRequest, "Both client_id and client_secret are required")
			return
		}
		if err := a.store.SaveCredentials(r.Context(), creds); err != nil {
			obs.FromContext(r.Context()).Error().Err(err).Msg("save credentials")
			writeError(w, r, http.StatusInternalServerError, "Server error")
			return
		}
		// the cached token was minted with the previous pair
		if a.gateway != nil {
			a.gateway.Tokens().Invalidate()
		}
		_ = audit.LogEvent(r.Context(), audit.EventCredentialsSaved, map[string]any{"client_id": creds.ClientID})
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Credentials saved successfully",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

type apiTextRequest struct {
	Text *string `json:"text"`
}

// handleAPIText serves the integration blurb to every user; only admins change it.
func (a *API) handleAPIText(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		text, err := a.store.APIText(r.Context())
		if err != nil {
			obs.FromContext(r.Context()).Error().Err(err).Msg("load api text")
			writeError(w, r, http.StatusInternalServerError, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"text": text})
	case http.MethodPost:
		RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.saveAPIText)).ServeHTTP(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) saveAPIText(w http.ResponseWriter, r *http.Request) {
	var req apiTextRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Text == nil || strings.TrimSpace(*req.Text) == "" {
		writeError(w, r, http.StatusBadRequest, "Invalid text provided")
		return
	}
	if err := a.store.SaveAPIText(r.Context(), *req.Text); err != nil {
		obs.FromContext(r.Context()).Error().Err(err).Msg("save api text")
		writeError(w, r, http.StatusInternalServerError, "Server error")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAPITextSaved, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Settings saved successfully",
	})
}

package httpapi

import (
	"errors"
	"net/http"

	"kycdesk.org/internal/audit"
	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, token, expires, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{"email": req.Email})
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"message": "Invalid email or password",
			})
			return
		}
		obs.FromContext(r.Context()).Error().Err(err).Msg("login failed")
		writeError(w, r, http.StatusInternalServerError, "Server error")
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, expires, a.secureCookies))
	ctx := auth.ContextWithUser(r.Context(), user)
	_ = audit.LogEvent(ctx, audit.EventLogin, map[string]any{"role": user.Role})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"role":    user.Role,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	ctx := r.Context()
	if user, err := a.sessions.Resolve(r); err == nil {
		a.sessions.Forget(user.ID)
		ctx = auth.ContextWithUser(ctx, user)
	}
	http.SetCookie(w, auth.ClearedSessionCookie(a.secureCookies))
	_ = audit.LogEvent(ctx, audit.EventLogout, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out",
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}

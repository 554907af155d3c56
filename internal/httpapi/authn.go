package httpapi

import (
	"errors"
	"net/http"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/obs"
)

// authenticated resolves the session and rejects anonymous requests with 401.
func (a *API) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.sessions.Resolve(r)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) {
				obs.FromContext(r.Context()).Error().Err(err).Msg("session lookup failed")
				writeError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="kycdesk"`)
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := auth.ContextWithUser(r.Context(), user)
		next(w, r.WithContext(ctx))
	}
}

// admin is authenticated plus RequireRole(RoleAdmin).
func (a *API) admin(next http.HandlerFunc) http.HandlerFunc {
	return a.authenticated(RequireRole(auth.RoleAdmin)(next).ServeHTTP)
}

// RequireRole lets the request through only when the context user has role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="kycdesk"`)
				writeError(w, r, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if user.Role != role {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
				writeError(w, r, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

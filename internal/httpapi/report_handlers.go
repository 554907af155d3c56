package httpapi

import (
	"errors"
	"net/http"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/obs"
	"kycdesk.org/internal/reports"
)

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	logs, err := a.reports.Logs(r.Context())
	if err != nil {
		a.reportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	a.stats(w, r, "")
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	a.stats(w, r, userID)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = reports.PeriodToday
	}
	buckets, err := a.reports.Stats(r.Context(), period, userID)
	if err != nil {
		a.reportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (a *API) handleTopTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	top, err := a.reports.TopTypes(r.Context(), userID)
	if err != nil {
		a.reportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (a *API) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ov, err := a.reports.Overview(r.Context())
	if err != nil {
		a.reportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (a *API) reportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, reports.ErrInvalidPeriod) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid period",
		})
		return
	}
	obs.FromContext(r.Context()).Error().Err(err).Msg("report query failed")
	writeError(w, r, http.StatusInternalServerError, "Server error")
}

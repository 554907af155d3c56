package httpapi

import (
	"context"
	"net/http"
	"time"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/obs"
	"kycdesk.org/internal/reports"
	"kycdesk.org/internal/store"
)

// Pinger is anything whose liveness gates readiness, typically the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe reports whether the service can take traffic.
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Gateway  *kyc.Gateway
	Sessions *auth.Sessions
	Store    store.Store
	Reports  *reports.Service
	Version  string

	AllowedOrigins []string
	RateBurst      int
	RatePerSec     int
	SecureCookies  bool

	// CredentialsFromEnv is set when the gateway ignores the settings table.
	CredentialsFromEnv bool
}

// API is the dashboard HTTP surface.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	gateway  *kyc.Gateway
	sessions *auth.Sessions
	store    store.Store
	reports  *reports.Service

	origins       []string
	rateBurst     int
	ratePerSec    int
	secureCookies bool
	envCreds      bool
}

func New(d Deps) *API {
	a := &API{
		mux:           http.NewServeMux(),
		readyProbe:    ReadyProbe{Store: d.Store},
		version:       d.Version,
		gateway:       d.Gateway,
		sessions:      d.Sessions,
		store:         d.Store,
		reports:       d.Reports,
		origins:       d.AllowedOrigins,
		rateBurst:     d.RateBurst,
		ratePerSec:    d.RatePerSec,
		secureCookies: d.SecureCookies,
		envCreds:      d.CredentialsFromEnv,
	}
	if a.reports == nil && d.Store != nil {
		a.reports = reports.New(d.Store, nil)
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// session
	a.mux.HandleFunc("/api/login", a.handleLogin)
	a.mux.HandleFunc("/api/logout", a.handleLogout)
	a.mux.HandleFunc("/api/me", a.authenticated(a.handleMe))

	// verification
	a.mux.HandleFunc("/api/kyc", a.authenticated(a.handleVerify))

	// settings
	a.mux.HandleFunc("/api/settings", a.admin(a.handleSettings))
	a.mux.HandleFunc("/api/admin/settings/api-text", a.authenticated(a.handleAPIText))

	// reports
	a.mux.HandleFunc("/api/kyc-logs", a.admin(a.handleLogs))
	a.mux.HandleFunc("/api/kyc-stats", a.admin(a.handleStats))
	a.mux.HandleFunc("/api/overview", a.admin(a.handleOverview))
	a.mux.HandleFunc("/api/user/kyc-stats", a.authenticated(a.handleUserStats))
	a.mux.HandleFunc("/api/user/top-kyc", a.authenticated(a.handleTopTypes))
	a.mux.HandleFunc("/api/user/kyc-logs", a.authenticated(a.handleTopTypes))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	return a
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = MaxBodyBytes(h, maxJSONBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// Probe exposes the readiness probe for the gRPC health server.
func (a *API) Probe() ReadyProbe { return a.readyProbe }

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kycdesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	types := []kyc.Type{}
	if a.gateway != nil {
		types = a.gateway.Registry().Types()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "kycdesk-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"types":   types,
	})
}

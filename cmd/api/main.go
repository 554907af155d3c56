package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/config"
	"kycdesk.org/internal/httpapi"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/obs"
	"kycdesk.org/internal/reports"
	"kycdesk.org/internal/store"
	"kycdesk.org/internal/store/memory"
	"kycdesk.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := obs.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	log = obs.Logger()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	var creds kyc.CredentialStore = st
	if cfg.Provider.HasStaticCredentials() {
		creds = kyc.StaticCredentials{ClientID: cfg.Provider.ClientID, ClientSecret: cfg.Provider.ClientSecret}
		log.Info().Msg("provider credentials taken from environment")
	}
	provider := kyc.NewProvider(cfg.Provider.BaseURL,
		kyc.WithTimeout(cfg.Provider.Timeout),
		kyc.WithRetryMax(cfg.Provider.RetryMax),
	)
	gateway := kyc.NewGateway(provider, creds, st)

	signer, err := auth.NewTokens(cfg.AuthSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session tokens")
	}

	api := httpapi.New(httpapi.Deps{
		Gateway:        gateway,
		Sessions:       auth.NewSessions(signer, st),
		Store:          st,
		Reports:        reports.New(st, nil),
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins,
		RateBurst:      cfg.RateBurst,
		RatePerSec:     cfg.RatePerSec,
		SecureCookies:  cfg.SecureCookies,

		CredentialsFromEnv: cfg.Provider.HasStaticCredentials(),
	})

	// the async flows may poll the provider for ~10s before answering
	writeTimeout := cfg.Provider.Timeout*2 + 15*time.Second
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen")
	}
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(api.Probe(), 0))

	log.Info().
		Str("version", version).
		Str("http_addr", srv.Addr).
		Str("grpc_addr", cfg.GRPCAddr).
		Msg("starting kycdesk-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http listen")
		}
	}()
	go func() {
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Fatal().Err(err).Msg("grpc serve")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcSrv.GracefulStop()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("stopped")
}

// openStore connects to Postgres, or falls back to an in-memory store for
// local development when no DSN is configured.
func openStore(cfg config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		st, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			obs.Logger().Warn().Err(err).Msg("database not reachable yet; /readyz will report not_ready")
		}
		return st, nil
	}

	obs.Logger().Warn().Msg("KYC_PG_DSN not set; using in-memory store")
	st := memory.New()
	if cfg.DevAdminEmail != "" {
		if err := auth.ValidatePassword(cfg.DevAdminPassword); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(cfg.DevAdminPassword)
		if err != nil {
			return nil, err
		}
		st.AddUser(auth.User{Name: "Admin", Email: cfg.DevAdminEmail, Role: auth.RoleAdmin, PasswordHash: hash})
	}
	return st, nil
}

// Package app wires configuration, storage, services and the HTTP server
// into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	authhttp "github.com/edustack/auth/internal/auth/http"
	"github.com/edustack/auth/internal/auth/notify"
	"github.com/edustack/auth/internal/auth/service"
	"github.com/edustack/auth/internal/auth/store"
	"github.com/edustack/auth/internal/auth/store/drivers/sqlite"
	"github.com/edustack/auth/pkg/cryptox"
	"github.com/edustack/auth/pkg/jwtx"
	"github.com/edustack/auth/pkg/slogx"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

// Application owns the full service lifecycle.
type Application struct {
	cfg    Config
	log    *slog.Logger
	store  store.Store
	server *http.Server

	housekeeping *service.HousekeepingService
}

// New constructs the application: logger, storage with migrations,
// services and the HTTP server. Nothing starts listening until Run.
func New(cfg Config) (*Application, error) {
	log := slogx.New(slogx.Config{
		Service: "auth",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	cryptox.SetPepperPath(cfg.PepperFile)

	st, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	codec, err := jwtx.NewCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("access token codec: %w", err)
	}

	var notifier notify.Notifier
	switch cfg.Notifier {
	case "smtp":
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	default:
		notifier = notify.NewConsoleNotifier()
	}

	tokens := service.NewTokenService(st, codec, cfg.RefreshTokenTTL)
	resets := service.NewResetService(st, notifier, cfg.ResetTokenTTL)
	auth := service.NewAuthService(st, tokens, resets)

	router := authhttp.NewRouter(authhttp.RouterConfig{
		Handlers:       authhttp.NewHandlers(auth),
		Codec:          codec,
		Store:          st,
		InternalAPIKey: cfg.InternalAPIKey,
		EnableSwagger:  cfg.EnableSwagger,
	})

	return &Application{
		cfg:   cfg,
		log:   log,
		store: st,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		housekeeping: service.NewHousekeepingService(st, cfg.HousekeepingInterval),
	}, nil
}

// Run starts the housekeeping worker and serves HTTP until the server
// shuts down.
func (a *Application) Run() error {
	a.housekeeping.Start()

	a.log.Info("listening", "addr", a.cfg.HTTPAddr, "notifier", a.cfg.Notifier)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, stops the housekeeping worker and
// closes the store.
func (a *Application) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGrace)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.housekeeping.Stop()

	if cerr := a.store.Close(); err == nil {
		err = cerr
	}

	a.log.Info("shutdown complete")
	return err
}

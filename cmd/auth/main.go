// The auth service: credential verification, access/refresh token
// lifecycle and password reset for the EduStack platform.
//
//	@title			EduStack Auth API
//	@version		1.0
//	@description	Authentication and token lifecycle service.
//	@BasePath		/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						X-API-Key
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edustack/auth/internal/auth/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("startup error", "err", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
		}
	}

	if err := application.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown error", "err", err)
		os.Exit(1)
	}
}

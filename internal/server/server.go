// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes into
// the HTTP server.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/tradebench/tradebench/internal/config"
	"github.com/tradebench/tradebench/internal/database"
	"github.com/tradebench/tradebench/internal/repository"
	"github.com/tradebench/tradebench/internal/services/auth"
	"github.com/tradebench/tradebench/internal/services/broker"
	"github.com/tradebench/tradebench/internal/services/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("jwt-secret is required")
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	stateHashKey, err := resolveStateHashKey(cfg.Auth.StateHashKey)
	if err != nil {
		return fmt.Errorf("invalid state-hash-key: %w", err)
	}

	repo := repository.New(db)
	issuer := token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenDuration())
	authService := auth.NewService(repo)
	brokerService := broker.NewService(repo, broker.NewClient(&cfg.Broker))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, &routeDeps{
		cfg:          cfg,
		repo:         repo,
		issuer:       issuer,
		authService:  authService,
		brokerSvc:    brokerService,
		stateHashKey: stateHashKey,
	})

	return startWithGracefulShutdown(e, cfg)
}

// resolveStateHashKey decodes the configured hex key, or generates an
// ephemeral one. An ephemeral key invalidates pending OAuth states on
// restart, which is acceptable outside production.
func resolveStateHashKey(hexKey string) ([]byte, error) {
	if hexKey != "" {
		return hex.DecodeString(hexKey)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("state-hash-key not configured, using ephemeral key")
	return key, nil
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errChan := make(chan error, 1)

	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

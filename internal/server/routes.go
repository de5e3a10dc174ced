// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package server

import (
	"github.com/labstack/echo/v4"

	"github.com/tradebench/tradebench/internal/config"
	"github.com/tradebench/tradebench/internal/handlers"
	"github.com/tradebench/tradebench/internal/middleware"
	"github.com/tradebench/tradebench/internal/repository"
	"github.com/tradebench/tradebench/internal/services/auth"
	"github.com/tradebench/tradebench/internal/services/broker"
	"github.com/tradebench/tradebench/internal/services/token"
)

// Page prefixes the session gate operates on. A path is protected or
// auth-only iff it equals a prefix or is nested under it.
var (
	protectedPrefixes = []string{"/dashboard"}
	authOnlyPrefixes  = []string{"/login", "/register"}
)

// routeDeps holds everything the routes need.
type routeDeps struct {
	cfg          *config.Config
	repo         *repository.Repository
	issuer       *token.Issuer
	authService  *auth.Service
	brokerSvc    *broker.Service
	stateHashKey []byte
}

// setupRoutes configures all HTTP routes on the given Echo instance.
func setupRoutes(e *echo.Echo, deps *routeDeps) {
	cfg := deps.cfg

	// Resolve the session cookie on every request.
	e.Use(middleware.LoadUser(deps.issuer, cfg.Auth.CookieName, deps.repo))

	h := handlers.New(deps.repo)
	authHandler := handlers.NewAuth(deps.authService, deps.issuer, cfg)
	brokerHandler := handlers.NewBroker(deps.brokerSvc, deps.stateHashKey, cfg)

	// Pages, gated by auth state.
	pages := e.Group("", middleware.SessionGate(protectedPrefixes, authOnlyPrefixes))
	pages.GET("/", h.Home)
	pages.GET("/login", h.LoginPage)
	pages.GET("/register", h.RegisterPage)
	pages.GET("/dashboard", h.DashboardPage)
	pages.GET("/dashboard/*", h.DashboardPage)

	// JSON API.
	api := e.Group("/api")
	api.GET("/health", h.Health)

	limiter := middleware.NewRateLimiter(cfg.Auth.LoginRatePerMin)
	authAPI := api.Group("/auth")
	authAPI.POST("/register", authHandler.Register, limiter.Middleware)
	authAPI.POST("/login", authHandler.Login, limiter.Middleware)
	authAPI.POST("/logout", authHandler.Logout)
	authAPI.GET("/verify", authHandler.Verify, middleware.RequireAuth)

	brokerAPI := api.Group("/broker")
	brokerAPI.GET("/auth", brokerHandler.AuthURL, middleware.RequireAuth)
	brokerAPI.GET("/callback", brokerHandler.Callback) // reports auth problems via redirect
	brokerAPI.GET("/token", brokerHandler.Token, middleware.RequireAuth)
	brokerAPI.GET("/credentials", brokerHandler.GetCredentials, middleware.RequireAuth)
	brokerAPI.POST("/credentials", brokerHandler.SaveCredentials, middleware.RequireAuth)
}

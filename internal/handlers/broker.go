// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"

	"github.com/tradebench/tradebench/internal/apperr"
	"github.com/tradebench/tradebench/internal/config"
	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/services/broker"
	"github.com/tradebench/tradebench/internal/session"
)

const (
	stateCookieName = "broker_state"
	stateCookieAge  = 10 * time.Minute
)

// BrokerHandlers contains handlers for the broker OAuth link.
type BrokerHandlers struct {
	broker *broker.Service
	states *securecookie.SecureCookie
	cfg    *config.Config
}

// NewBroker creates a new BrokerHandlers instance. The hash key signs the
// OAuth state cookie that binds the callback to the initiating browser.
func NewBroker(brokerService *broker.Service, stateHashKey []byte, cfg *config.Config) *BrokerHandlers {
	return &BrokerHandlers{
		broker: brokerService,
		states: securecookie.New(stateHashKey, nil),
		cfg:    cfg,
	}
}

// AuthURL returns the broker authorization dialog URL for the current user.
func (h *BrokerHandlers) AuthURL(c echo.Context) error {
	sessUser := session.FromContext(c.Request().Context())

	state := uuid.NewString()
	authURL, err := h.broker.AuthorizationURL(c.Request().Context(), sessUser.ID, state)
	if err != nil {
		if errors.Is(err, broker.ErrNoCredentials) {
			return apperr.New(apperr.NotFound, "Broker API credentials not found")
		}
		return apperr.Wrap(apperr.Internal, "Failed to create authorization URL", err)
	}

	if err := h.setStateCookie(c, state); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to create authorization URL", err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"authorizationUrl": authURL,
	})
}

// Callback handles the broker redirect carrying the authorization code.
// Outcomes are reported to the dashboard via query parameters; a broken
// link never blocks the rest of the dashboard.
func (h *BrokerHandlers) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.Redirect(http.StatusFound, "/dashboard?error=no_code")
	}

	sessUser := session.FromContext(c.Request().Context())
	if sessUser == nil {
		return c.Redirect(http.StatusFound, "/login?error=not_authenticated")
	}

	if !h.validState(c) {
		return c.Redirect(http.StatusFound, "/dashboard?error=state_mismatch")
	}
	h.clearStateCookie(c)

	if _, err := h.broker.Exchange(c.Request().Context(), sessUser.ID, code); err != nil {
		if errors.Is(err, broker.ErrNoCredentials) {
			return c.Redirect(http.StatusFound, "/dashboard?error=credentials_not_found")
		}
		return c.Redirect(http.StatusFound, "/dashboard?error=token_exchange_failed")
	}

	return c.Redirect(http.StatusFound, "/dashboard?success=broker_connected")
}

// Token returns the current broker access token, refreshing it first when
// expired. A failed refresh keeps the stored token untouched and reports
// an upstream error instead of fake data.
func (h *BrokerHandlers) Token(c echo.Context) error {
	sessUser := session.FromContext(c.Request().Context())

	tok, _, err := h.broker.FreshToken(c.Request().Context(), sessUser.ID)
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrNotLinked):
			return c.JSON(http.StatusOK, map[string]any{
				"isConnected": false,
			})
		case errors.Is(err, broker.ErrRefreshFailed):
			return apperr.Wrap(apperr.Upstream, "Failed to refresh broker token", err)
		case errors.Is(err, broker.ErrNoCredentials):
			return apperr.New(apperr.NotFound, "Broker API credentials not found")
		default:
			return apperr.Wrap(apperr.Internal, "Failed to load broker token", err)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"isConnected": true,
		"accessToken": tok.AccessToken,
		"tokenType":   tok.TokenType,
		"expiresAt":   tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// BrokerCredentialsRequest is the settings form body for broker API credentials.
type BrokerCredentialsRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
}

// GetCredentials returns the stored broker credentials. The secret is
// never echoed back.
func (h *BrokerHandlers) GetCredentials(c echo.Context) error {
	sessUser := session.FromContext(c.Request().Context())

	creds, err := h.broker.Credentials(c.Request().Context(), sessUser.ID)
	if err != nil {
		if errors.Is(err, broker.ErrNoCredentials) {
			return apperr.New(apperr.NotFound, "Broker API credentials not found")
		}
		return apperr.Wrap(apperr.Internal, "Failed to load broker credentials", err)
	}

	return c.JSON(http.StatusOK, creds)
}

// SaveCredentials stores or replaces the broker credentials from the
// settings form.
func (h *BrokerHandlers) SaveCredentials(c echo.Context) error {
	sessUser := session.FromContext(c.Request().Context())

	var req BrokerCredentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body")
	}
	if req.ClientID == "" || req.ClientSecret == "" || req.RedirectURI == "" {
		return apperr.New(apperr.Validation, "clientId, clientSecret and redirectUri are required")
	}

	creds := &models.BrokerCredentials{
		UserID:       sessUser.ID,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
	}
	if err := h.broker.SaveCredentials(c.Request().Context(), creds); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to save broker credentials", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

func (h *BrokerHandlers) setStateCookie(c echo.Context, state string) error {
	encoded, err := h.states.Encode(stateCookieName, state)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(stateCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *BrokerHandlers) validState(c echo.Context) bool {
	state := c.QueryParam("state")
	if state == "" {
		return false
	}
	cookie, err := c.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	var stored string
	if err := h.states.Decode(stateCookieName, cookie.Value, &stored); err != nil {
		return false
	}
	return stored == state
}

func (h *BrokerHandlers) clearStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradebench/tradebench/internal/apperr"
	"github.com/tradebench/tradebench/internal/config"
	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/services/auth"
	"github.com/tradebench/tradebench/internal/services/token"
	"github.com/tradebench/tradebench/internal/session"
)

// AuthHandlers contains handlers for registration, login and session
// verification.
type AuthHandlers struct {
	auth   *auth.Service
	issuer *token.Issuer
	cfg    *config.Config
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(authService *auth.Service, issuer *token.Issuer, cfg *config.Config) *AuthHandlers {
	return &AuthHandlers{
		auth:   authService,
		issuer: issuer,
		cfg:    cfg,
	}
}

// CredentialsRequest is the request body for login and registration.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the user shape returned to clients.
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Register creates a new account and logs it in immediately.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.New(apperr.Validation, "Email and password are required")
	}

	user, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return apperr.New(apperr.Validation, "User already exists")
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			return apperr.Wrap(apperr.Validation, err.Error(), err)
		default:
			return apperr.Wrap(apperr.Internal, "Registration failed", err)
		}
	}

	tok, err := h.issueFor(user)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Registration failed", err)
	}
	h.setAuthCookies(c, tok, user)

	return c.JSON(http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    UserResponse{ID: user.ID, Email: user.Email},
		"token":   tok,
	})
}

// Login authenticates credentials and mints a session token.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.New(apperr.Validation, "Email and password are required")
	}

	user, err := h.auth.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return apperr.New(apperr.Authentication, "Invalid credentials")
		}
		return apperr.Wrap(apperr.Internal, "Login failed", err)
	}

	tok, err := h.issueFor(user)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Login failed", err)
	}
	h.setAuthCookies(c, tok, user)

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    UserResponse{ID: user.ID, Email: user.Email},
		"token":   tok,
	})
}

// Logout discards the client's session cookies. There is no server-side
// revocation list, so an unexpired token stays cryptographically valid
// until it ages out; logout is complete once the client dropped it.
// Calling logout without a session is fine, the call is idempotent.
func (h *AuthHandlers) Logout(c echo.Context) error {
	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

// Verify confirms the current session and returns its user.
func (h *AuthHandlers) Verify(c echo.Context) error {
	sessUser := session.FromContext(c.Request().Context())
	if sessUser == nil {
		return apperr.New(apperr.Authentication, "Not authenticated")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Token verified",
		"user":    UserResponse{ID: sessUser.ID, Email: sessUser.Email},
	})
}

func (h *AuthHandlers) issueFor(user *models.User) (string, error) {
	return h.issuer.Issue(strconv.FormatInt(user.ID, 10))
}

// setAuthCookies sets the session token cookie and the client-readable
// user info cookie. Unlike the usual dashboard scaffolding, the token
// cookie is HttpOnly; only user_info is meant for client script.
func (h *AuthHandlers) setAuthCookies(c echo.Context, tok string, user *models.User) {
	maxAge := int(h.cfg.Auth.TokenDuration().Seconds())

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})

	info, _ := json.Marshal(map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"lastLogin": time.Now().UTC().Format(time.RFC3339),
	})
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Auth.UserInfoCookie,
		Value:    url.QueryEscape(string(info)),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false, // deliberately readable by the dashboard UI
		Secure:   h.cfg.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(c echo.Context) {
	for _, name := range []string{h.cfg.Auth.CookieName, h.cfg.Auth.UserInfoCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == h.cfg.Auth.CookieName,
			Secure:   h.cfg.CookieSecure(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

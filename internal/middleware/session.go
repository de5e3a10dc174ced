// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package middleware provides the session boundary and request guards.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tradebench/tradebench/internal/apperr"
	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/repository"
	"github.com/tradebench/tradebench/internal/services/token"
	"github.com/tradebench/tradebench/internal/session"
)

// UserLoader loads full user data for a verified session.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// LoadUser resolves the session cookie to an authenticated identity and
// stores it in the request context. A missing cookie and an invalid or
// expired token are treated identically: the request stays anonymous.
//
// When the database read fails mid-request (e.g. the client aborted and the
// context was canceled), the identity degrades to the verified token claims
// instead of a forced logout.
func LoadUser(issuer *token.Issuer, cookieName string, loader UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			claims, err := issuer.Verify(cookie.Value)
			if err != nil {
				// Expired and forged tokens both yield Anonymous.
				slog.Debug("session_token_rejected", "error", err)
				return next(c)
			}

			userID, err := strconv.ParseInt(claims.UserID(), 10, 64)
			if err != nil {
				return next(c)
			}

			sessUser := &session.User{ID: userID}
			if loader != nil {
				user, loadErr := loader.GetUserByID(c.Request().Context(), userID)
				switch {
				case loadErr == nil:
					sessUser.Email = user.Email
				case errors.Is(loadErr, repository.ErrNotFound):
					// Token for a user that no longer exists.
					return next(c)
				default:
					// Use last-known session rather than failing auth.
					slog.Warn("session_user_load_failed", "user_id", userID, "error", loadErr)
				}
			}

			ctx := session.WithUser(c.Request().Context(), sessUser)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// SessionGate redirects requests between pages based on auth state:
// authenticated users are pushed away from auth-only pages (login,
// register) to the dashboard, anonymous users away from protected pages to
// login. A path matches a prefix when it equals it or is nested under it.
func SessionGate(protected, authOnly []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			authenticated := session.IsAuthenticated(c.Request().Context())

			if authenticated && matchesPrefix(path, authOnly) {
				return c.Redirect(http.StatusFound, "/dashboard")
			}
			if !authenticated && matchesPrefix(path, protected) {
				return c.Redirect(http.StatusFound, "/login")
			}
			return next(c)
		}
	}
}

// RequireAuth guards API routes: anonymous requests get a 401 instead of
// a redirect.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !session.IsAuthenticated(c.Request().Context()) {
			return apperr.New(apperr.Authentication, "Not authenticated")
		}
		return next(c)
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"fmt"
	"html"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradebench/tradebench/internal/session"
)

// Page handlers serve placeholder shells for the dashboard SPA. The real
// UI is rendered client-side; these routes exist so the session gate has
// concrete pages to protect and redirect between.

func page(c echo.Context, title, body string) error {
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<!doctype html><html><head><title>%s</title></head><body>%s</body></html>`,
		title, body))
}

// Home renders the landing page.
func (h *Handlers) Home(c echo.Context) error {
	return page(c, "Tradebench", `<h1>Tradebench</h1><a href="/login">Log in</a> <a href="/register">Register</a>`)
}

// LoginPage renders the login page shell.
func (h *Handlers) LoginPage(c echo.Context) error {
	return page(c, "Log in", `<h1>Log in</h1><div id="login-form"></div>`)
}

// RegisterPage renders the registration page shell.
func (h *Handlers) RegisterPage(c echo.Context) error {
	return page(c, "Register", `<h1>Register</h1><div id="register-form"></div>`)
}

// DashboardPage renders the dashboard shell for any path under /dashboard.
// The email is user-controlled (quoted local parts survive address
// validation) and must be escaped before interpolation.
func (h *Handlers) DashboardPage(c echo.Context) error {
	sessUser := session.FromContext(c.Request().Context())
	return page(c, "Dashboard", fmt.Sprintf(
		`<h1>Dashboard</h1><p>Signed in as %s</p><div id="app"></div>`,
		html.EscapeString(sessUser.Email)))
}

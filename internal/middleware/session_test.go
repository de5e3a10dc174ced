// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebench/tradebench/internal/apperr"
	"github.com/tradebench/tradebench/internal/middleware"
	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/services/token"
	"github.com/tradebench/tradebench/internal/session"
	"github.com/tradebench/tradebench/internal/testutil"
)

const cookieName = "token"

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// whoAmI reports the session user, or "anonymous".
func whoAmI(c echo.Context) error {
	user := session.FromContext(c.Request().Context())
	if user == nil {
		return c.String(http.StatusOK, "anonymous")
	}
	return c.String(http.StatusOK, user.Email)
}

func TestLoadUser_ValidToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")
	issuer := token.NewIssuer([]byte("secret"), time.Hour)

	signed, err := issuer.Issue(strconv.FormatInt(user.ID, 10))
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: signed})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := middleware.LoadUser(issuer, cookieName, repo)(whoAmI)
	require.NoError(t, h(c))

	assert.Equal(t, "alice@example.com", rec.Body.String())
}

func TestLoadUser_NoCookie(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	issuer := token.NewIssuer([]byte("secret"), time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := middleware.LoadUser(issuer, cookieName, repo)(whoAmI)
	require.NoError(t, h(c))

	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestLoadUser_InvalidToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	issuer := token.NewIssuer([]byte("secret"), time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := middleware.LoadUser(issuer, cookieName, repo)(whoAmI)
	require.NoError(t, h(c))

	// A forged token yields the same outcome as no cookie at all.
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestLoadUser_ExpiredToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")
	stale := token.NewIssuer([]byte("secret"), -time.Hour)

	signed, err := stale.Issue(strconv.FormatInt(user.ID, 10))
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: signed})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	issuer := token.NewIssuer([]byte("secret"), time.Hour)
	h := middleware.LoadUser(issuer, cookieName, repo)(whoAmI)
	require.NoError(t, h(c))

	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestLoadUser_DeletedUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	issuer := token.NewIssuer([]byte("secret"), time.Hour)

	// Token for a user id that never existed.
	signed, err := issuer.Issue("999")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: signed})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := middleware.LoadUser(issuer, cookieName, repo)(whoAmI)
	require.NoError(t, h(c))

	assert.Equal(t, "anonymous", rec.Body.String())
}

// failingLoader simulates a database read that errors mid-request.
type failingLoader struct {
	err error
}

func (f *failingLoader) GetUserByID(context.Context, int64) (*models.User, error) {
	return nil, f.err
}

func TestLoadUser_LoadFailureKeepsClaimsIdentity(t *testing.T) {
	// A failed user load (e.g. the client aborted and the context was
	// canceled) degrades to the verified token claims instead of a
	// forced logout.
	issuer := token.NewIssuer([]byte("secret"), time.Hour)

	signed, err := issuer.Issue("42")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: signed})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *session.User
	capture := func(c echo.Context) error {
		got = session.FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}

	loader := &failingLoader{err: context.Canceled}
	h := middleware.LoadUser(issuer, cookieName, loader)(capture)
	require.NoError(t, h(c))

	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.ID)
	assert.Empty(t, got.Email)
}

func newGateContext(t *testing.T, path string, authenticated bool) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authenticated {
		ctx := session.WithUser(req.Context(), &session.User{ID: 1, Email: "alice@example.com"})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSessionGate(t *testing.T) {
	protected := []string{"/dashboard"}
	authOnly := []string{"/login", "/register"}
	gate := middleware.SessionGate(protected, authOnly)

	tests := []struct {
		name          string
		path          string
		authenticated bool
		wantRedirect  string // empty means pass through
	}{
		{"anonymous on protected page", "/dashboard", false, "/login"},
		{"anonymous on nested protected page", "/dashboard/settings", false, "/login"},
		{"anonymous on login", "/login", false, ""},
		{"anonymous on home", "/", false, ""},
		{"authenticated on dashboard", "/dashboard", true, ""},
		{"authenticated on login", "/login", true, "/dashboard"},
		{"authenticated on register", "/register", true, "/dashboard"},
		{"prefix does not match sibling path", "/dashboard-public", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newGateContext(t, tt.path, tt.authenticated)

			err := gate(okHandler)(c)
			require.NoError(t, err)

			if tt.wantRedirect == "" {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusFound, rec.Code)
				assert.Equal(t, tt.wantRedirect, rec.Header().Get(echo.HeaderLocation))
			}
		})
	}
}

func TestRequireAuth_Anonymous(t *testing.T) {
	c, _ := newGateContext(t, "/api/auth/verify", false)

	err := middleware.RequireAuth(okHandler)(c)

	require.Error(t, err)
	assert.Equal(t, apperr.Authentication, apperr.KindOf(err))
}

func TestRequireAuth_Authenticated(t *testing.T) {
	c, rec := newGateContext(t, "/api/auth/verify", true)

	err := middleware.RequireAuth(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

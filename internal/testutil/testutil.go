// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradebench/tradebench/internal/database"
	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/repository"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a test user with the given email and password.
func NewTestUser(t *testing.T, repo *repository.Repository, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), email, string(hash))
	require.NoError(t, err)
	return user
}

// NewTestBrokerCredentials stores broker API credentials for a user.
func NewTestBrokerCredentials(t *testing.T, repo *repository.Repository, userID int64) *models.BrokerCredentials {
	t.Helper()
	creds := &models.BrokerCredentials{
		UserID:       userID,
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://localhost:3000/api/broker/callback",
	}
	require.NoError(t, repo.UpsertBrokerCredentials(context.Background(), creds))
	return creds
}

// NewTestBrokerToken stores a broker token for a user, expiring at the
// given time.
func NewTestBrokerToken(t *testing.T, repo *repository.Repository, userID int64, expiresAt time.Time) *models.BrokerToken {
	t.Helper()
	token := &models.BrokerToken{
		UserID:       userID,
		AccessToken:  "test-access-token",
		RefreshToken: "test-refresh-token",
		TokenType:    "Bearer",
		ExpiresIn:    86400,
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, repo.UpsertBrokerToken(context.Background(), token))
	return token
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

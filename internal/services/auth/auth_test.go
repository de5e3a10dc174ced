// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebench/tradebench/internal/services/auth"
	"github.com/tradebench/tradebench/internal/testutil"
)

func TestRegister(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "secret123")

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Alice@Example.COM ", "secret123")

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestRegister_Duplicate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "other-password")

	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestRegister_DuplicateCaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@EXAMPLE.COM", "secret123")

	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestRegister_InvalidEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "secret123")

	assert.ErrorIs(t, err, auth.ErrInvalidEmail)
}

func TestRegister_WeakPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "short")

	assert.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestAuthenticate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice@example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestAuthenticate_CaseInsensitiveEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "Alice@Example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-password")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := auth.NewService(repo)
	ctx := context.Background()

	// Unknown user and wrong password are indistinguishable to the caller.
	_, err := svc.Authenticate(ctx, "nobody@example.com", "whatever1")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"alice@example.com", "alice@example.com"},
		{"ALICE@EXAMPLE.COM", "alice@example.com"},
		{"  alice@example.com  ", "alice@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, auth.NormalizeEmail(tt.input))
	}
}

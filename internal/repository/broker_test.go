// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/repository"
	"github.com/tradebench/tradebench/internal/testutil"
)

func TestUpsertBrokerCredentials(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")

	creds := &models.BrokerCredentials{
		UserID:       user.ID,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:3000/cb",
	}
	require.NoError(t, repo.UpsertBrokerCredentials(ctx, creds))

	stored, err := repo.GetBrokerCredentials(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "client-1", stored.ClientID)
	assert.Equal(t, "secret-1", stored.ClientSecret)
}

func TestUpsertBrokerCredentials_Replaces(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")
	testutil.NewTestBrokerCredentials(t, repo, user.ID)

	updated := &models.BrokerCredentials{
		UserID:       user.ID,
		ClientID:     "new-client",
		ClientSecret: "new-secret",
		RedirectURI:  "http://localhost:3000/cb2",
	}
	require.NoError(t, repo.UpsertBrokerCredentials(ctx, updated))

	stored, err := repo.GetBrokerCredentials(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-client", stored.ClientID)
	assert.Equal(t, "http://localhost:3000/cb2", stored.RedirectURI)
}

func TestGetBrokerCredentials_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := repo.GetBrokerCredentials(ctx, 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsertBrokerToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")

	expiresAt := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	token := &models.BrokerToken{
		UserID:       user.ID,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		ExpiresIn:    86400,
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, repo.UpsertBrokerToken(ctx, token))

	stored, err := repo.GetBrokerToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
	assert.Equal(t, expiresAt.Unix(), stored.ExpiresAt.Unix())
}

func TestUpsertBrokerToken_ReplacesExisting(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")
	testutil.NewTestBrokerToken(t, repo, user.ID, time.Now().Add(time.Hour))

	replacement := &models.BrokerToken{
		UserID:       user.ID,
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		TokenType:    "Bearer",
		ExpiresIn:    86400,
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, repo.UpsertBrokerToken(ctx, replacement))

	stored, err := repo.GetBrokerToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestGetBrokerToken_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := repo.GetBrokerToken(ctx, 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateBrokerTokenIfCurrent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")
	testutil.NewTestBrokerToken(t, repo, user.ID, time.Now().Add(-time.Hour))

	next := &models.BrokerToken{
		UserID:       user.ID,
		AccessToken:  "access-next",
		RefreshToken: "refresh-next",
		TokenType:    "Bearer",
		ExpiresIn:    86400,
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}

	updated, err := repo.UpdateBrokerTokenIfCurrent(ctx, next, "test-refresh-token")
	require.NoError(t, err)
	assert.True(t, updated)

	stored, err := repo.GetBrokerToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-next", stored.AccessToken)
	assert.Equal(t, "refresh-next", stored.RefreshToken)
}

func TestUpdateBrokerTokenIfCurrent_StaleBase(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")
	testutil.NewTestBrokerToken(t, repo, user.ID, time.Now().Add(-time.Hour))

	next := &models.BrokerToken{
		UserID:       user.ID,
		AccessToken:  "access-next",
		RefreshToken: "refresh-next",
		TokenType:    "Bearer",
		ExpiresIn:    86400,
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}

	// The stored refresh token is "test-refresh-token"; basing the update
	// on a different one means someone else already rotated it.
	updated, err := repo.UpdateBrokerTokenIfCurrent(ctx, next, "already-rotated")
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err := repo.GetBrokerToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", stored.AccessToken)
}

func TestHasBrokerToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com", "secret123")

	has, err := repo.HasBrokerToken(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, has)

	testutil.NewTestBrokerToken(t, repo, user.ID, time.Now().Add(time.Hour))

	has, err = repo.HasBrokerToken(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

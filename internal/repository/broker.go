// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/tradebench/tradebench/internal/models"
)

// UpsertBrokerCredentials creates or replaces a user's broker API credentials.
func (r *Repository) UpsertBrokerCredentials(ctx context.Context, creds *models.BrokerCredentials) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO broker_credentials (user_id, client_id, client_secret, redirect_uri, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   client_id = excluded.client_id,
		   client_secret = excluded.client_secret,
		   redirect_uri = excluded.redirect_uri,
		   updated_at = excluded.updated_at`,
		creds.UserID, creds.ClientID, creds.ClientSecret, creds.RedirectURI, now, now)
	return err
}

// GetBrokerCredentials retrieves a user's broker API credentials.
func (r *Repository) GetBrokerCredentials(ctx context.Context, userID int64) (*models.BrokerCredentials, error) {
	var creds models.BrokerCredentials
	if err := r.db.GetContext(ctx, &creds, `SELECT * FROM broker_credentials WHERE user_id = ?`, userID); err != nil {
		return nil, wrapError(err)
	}
	return &creds, nil
}

// UpsertBrokerToken creates or replaces a user's broker token. Used after a
// fresh authorization-code exchange, where overwriting any previous token is
// always correct.
func (r *Repository) UpsertBrokerToken(ctx context.Context, token *models.BrokerToken) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO broker_tokens (user_id, access_token, refresh_token, token_type, expires_in, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   token_type = excluded.token_type,
		   expires_in = excluded.expires_in,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		token.UserID, token.AccessToken, token.RefreshToken, token.TokenType,
		token.ExpiresIn, token.ExpiresAt, now, now)
	return err
}

// GetBrokerToken retrieves a user's broker token.
func (r *Repository) GetBrokerToken(ctx context.Context, userID int64) (*models.BrokerToken, error) {
	var token models.BrokerToken
	if err := r.db.GetContext(ctx, &token, `SELECT * FROM broker_tokens WHERE user_id = ?`, userID); err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// UpdateBrokerTokenIfCurrent overwrites the stored token only if the row
// still carries prevRefreshToken. Two concurrent refreshes race to write;
// the conditional update lets exactly one win, the loser re-reads the
// winner's row. Returns false when the row changed underneath us.
func (r *Repository) UpdateBrokerTokenIfCurrent(ctx context.Context, token *models.BrokerToken, prevRefreshToken string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE broker_tokens SET
		   access_token = ?, refresh_token = ?, token_type = ?,
		   expires_in = ?, expires_at = ?, updated_at = ?
		 WHERE user_id = ? AND refresh_token = ?`,
		token.AccessToken, token.RefreshToken, token.TokenType,
		token.ExpiresIn, token.ExpiresAt, time.Now().UTC(),
		token.UserID, prevRefreshToken)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// HasBrokerToken reports whether a broker token exists for the user.
// Connection state is derived from this instead of a separate flag.
func (r *Repository) HasBrokerToken(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM broker_tokens WHERE user_id = ?`, userID); err != nil {
		return false, err
	}
	return count > 0, nil
}

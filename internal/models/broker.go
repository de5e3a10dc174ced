// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// BrokerCredentials are the per-user broker API credentials entered in the
// settings form. Owned 1:1 by a user. The secret is never echoed back.
type BrokerCredentials struct { //nolint:govet // fieldalignment not critical for models
	UserID       int64     `db:"user_id" json:"-"`
	ClientID     string    `db:"client_id" json:"clientId"`
	ClientSecret string    `db:"client_secret" json:"-"`
	RedirectURI  string    `db:"redirect_uri" json:"redirectUri"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// BrokerToken is the access/refresh token pair obtained from the broker.
// Owned 1:1 by a user, created on exchange, overwritten in place on refresh.
// ExpiresAt must always reflect the last issued token.
type BrokerToken struct { //nolint:govet // fieldalignment not critical for models
	UserID       int64     `db:"user_id" json:"-"`
	AccessToken  string    `db:"access_token" json:"accessToken"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	TokenType    string    `db:"token_type" json:"tokenType"`
	ExpiresIn    int64     `db:"expires_in" json:"expiresIn"`
	ExpiresAt    time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// Expired reports whether the token has reached its expiry. A token
// expiring exactly now counts as expired.
func (t *BrokerToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

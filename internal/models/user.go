// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package models defines the persisted data types.
package models

import (
	"time"
)

// User is a registered account. The password hash is never serialized
// back to callers.
type User struct { //nolint:govet // fieldalignment not critical for models
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

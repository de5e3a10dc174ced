// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package session carries the per-request authenticated identity. It is
// created by the middleware from a verified session token and discarded
// after the response; handlers never re-derive auth state themselves.
package session

import (
	"context"

	"github.com/tradebench/tradebench/internal/ctxkeys"
)

// User is the identity extracted from a valid session token, possibly
// enriched from the database.
type User struct {
	ID    int64
	Email string
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxkeys.User{}, u)
}

// FromContext returns the authenticated user, or nil if anonymous.
func FromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(ctxkeys.User{}).(*User); ok {
		return u
	}
	return nil
}

// IsAuthenticated reports whether the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return FromContext(ctx) != nil
}

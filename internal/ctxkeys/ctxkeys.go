// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package ctxkeys holds the context keys shared across packages.
package ctxkeys

// User is the context key for the authenticated session user.
type User struct{}

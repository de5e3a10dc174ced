// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package apperr defines the error taxonomy shared by all services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and logging.
type Kind int

const (
	// Internal is the fallback for unexpected errors. Details are logged,
	// clients only see a generic message.
	Internal Kind = iota
	// Validation covers missing or malformed input.
	Validation
	// Authentication covers bad credentials and invalid or expired tokens.
	// The client-facing message stays generic.
	Authentication
	// NotFound covers missing records, e.g. no broker credentials on file.
	NotFound
	// Upstream covers broker API failures. Never swallowed into fake data.
	Upstream
)

// Error is the tagged error type used across the credential store, token
// issuer and OAuth bridge.
type Error struct {
	Kind    Kind
	Message string // client-facing
	Err     error  // wrapped cause, server-side only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and client-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error that wraps a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, falling back to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-facing message for err. Internal errors
// always map to a generic message regardless of their cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "Internal server error"
}

// StatusCode maps a Kind to its HTTP status code.
func (k Kind) StatusCode() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case NotFound:
		return "not_found"
	case Upstream:
		return "upstream"
	default:
		return "internal"
	}
}

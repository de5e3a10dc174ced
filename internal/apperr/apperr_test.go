// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradebench/tradebench/internal/apperr"
)

func TestKindStatusCode(t *testing.T) {
	tests := []struct {
		kind     apperr.Kind
		expected int
	}{
		{apperr.Internal, http.StatusInternalServerError},
		{apperr.Validation, http.StatusBadRequest},
		{apperr.Authentication, http.StatusUnauthorized},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Upstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.kind.StatusCode(), tt.kind.String())
	}
}

func TestKindOf(t *testing.T) {
	err := apperr.New(apperr.Validation, "bad input")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(wrapped))

	assert.Equal(t, apperr.Internal, apperr.KindOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "bad input", apperr.MessageOf(apperr.New(apperr.Validation, "bad input")))

	// Internal details never leak to clients.
	internal := apperr.Wrap(apperr.Internal, "query exploded", errors.New("syntax error near SELECT"))
	assert.Equal(t, "Internal server error", apperr.MessageOf(internal))

	assert.Equal(t, "Internal server error", apperr.MessageOf(errors.New("plain")))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := apperr.Wrap(apperr.Upstream, "broker call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broker call failed")
	assert.Contains(t, err.Error(), "root cause")
}

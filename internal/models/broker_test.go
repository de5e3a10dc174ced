// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tradebench/tradebench/internal/models"
)

func TestBrokerTokenExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"future expiry", now.Add(time.Hour), false},
		{"past expiry", now.Add(-time.Hour), true},
		{"expires exactly now", now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &models.BrokerToken{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, token.Expired(now))
		})
	}
}

// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

// Package broker links user accounts to the third-party trading broker:
// authorization-code exchange, token persistence and transparent refresh.
//
// Per user the link is in one of three states: unlinked (no stored token),
// linked with a valid token, or linked with an expired token. Expiry is
// purely time-based; the next access attempt refreshes and re-validates.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tradebench/tradebench/internal/models"
	"github.com/tradebench/tradebench/internal/repository"
)

var (
	// ErrNoCredentials means the user never entered broker API credentials.
	ErrNoCredentials = errors.New("broker credentials not found")
	// ErrNotLinked means no broker token is on file for the user.
	ErrNotLinked = errors.New("broker token not found")
	// ErrExchangeFailed means the authorization-code exchange failed.
	// Stored state is left untouched.
	ErrExchangeFailed = errors.New("broker code exchange failed")
	// ErrRefreshFailed means the refresh call failed. The previously stored
	// token is preserved rather than corrupted.
	ErrRefreshFailed = errors.New("broker token refresh failed")
)

// TokenClient is the broker OAuth endpoint surface the service depends on.
type TokenClient interface {
	AuthorizationURL(clientID, redirectURI, state string) string
	Exchange(ctx context.Context, creds *models.BrokerCredentials, code string) (*TokenResponse, error)
	Refresh(ctx context.Context, creds *models.BrokerCredentials, refreshToken string) (*TokenResponse, error)
}

// Service drives the per-user broker token lifecycle.
type Service struct {
	repo   *repository.Repository
	client TokenClient

	mu    sync.RWMutex
	locks map[int64]*sync.Mutex // per-user refresh locks
}

func NewService(repo *repository.Repository, client TokenClient) *Service {
	return &Service{
		repo:   repo,
		client: client,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// AuthorizationURL builds the broker dialog URL from the user's stored
// credentials. The state value binds the later callback to this request.
func (s *Service) AuthorizationURL(ctx context.Context, userID int64, state string) (string, error) {
	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.client.AuthorizationURL(creds.ClientID, creds.RedirectURI, state), nil
}

// Exchange swaps an authorization code for a token pair and persists it.
// A failed exchange never mutates previously stored state.
func (s *Service) Exchange(ctx context.Context, userID int64, code string) (*models.BrokerToken, error) {
	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Exchange(ctx, creds, code)
	if err != nil {
		slog.Error("broker_exchange_failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	token := tokenFromResponse(userID, resp, time.Now().UTC())
	if err := s.repo.UpsertBrokerToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store broker token: %w", err)
	}

	slog.Info("broker_linked", "user_id", userID, "expires_at", token.ExpiresAt)
	return token, nil
}

// FreshToken returns the stored token, refreshing it first when expired.
// The boolean reports whether a refresh happened. A per-user lock keeps
// at most one refresh in flight in this process; the conditional update in
// the repository guards concurrent writers elsewhere.
func (s *Service) FreshToken(ctx context.Context, userID int64) (*models.BrokerToken, bool, error) {
	token, err := s.storedToken(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !token.Expired(time.Now()) {
		return token, false, nil
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent request may have refreshed
	// while we waited.
	token, err = s.storedToken(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !token.Expired(time.Now()) {
		return token, false, nil
	}

	refreshed, err := s.refresh(ctx, userID, token)
	if err != nil {
		return nil, false, err
	}
	return refreshed, true, nil
}

// Connected reports whether the user has a broker token on file. This is
// the single source of truth; no separate connected flag is stored.
func (s *Service) Connected(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasBrokerToken(ctx, userID)
}

// Credentials returns the user's stored broker API credentials.
func (s *Service) Credentials(ctx context.Context, userID int64) (*models.BrokerCredentials, error) {
	return s.credentials(ctx, userID)
}

// SaveCredentials stores or replaces the user's broker API credentials.
func (s *Service) SaveCredentials(ctx context.Context, creds *models.BrokerCredentials) error {
	if err := s.repo.UpsertBrokerCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to store broker credentials: %w", err)
	}
	slog.Info("broker_credentials_saved", "user_id", creds.UserID)
	return nil
}

func (s *Service) refresh(ctx context.Context, userID int64, stale *models.BrokerToken) (*models.BrokerToken, error) {
	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Refresh(ctx, creds, stale.RefreshToken)
	if err != nil {
		slog.Error("broker_refresh_failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	token := tokenFromResponse(userID, resp, time.Now().UTC())

	updated, err := s.repo.UpdateBrokerTokenIfCurrent(ctx, token, stale.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to store refreshed token: %w", err)
	}
	if !updated {
		// Lost the write race to another process; serve its token.
		slog.Warn("broker_refresh_lost_race", "user_id", userID)
		return s.storedToken(ctx, userID)
	}

	slog.Info("broker_refresh_success", "user_id", userID, "expires_at", token.ExpiresAt)
	return token, nil
}

func (s *Service) credentials(ctx context.Context, userID int64) (*models.BrokerCredentials, error) {
	creds, err := s.repo.GetBrokerCredentials(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to get broker credentials: %w", err)
	}
	return creds, nil
}

func (s *Service) storedToken(ctx context.Context, userID int64) (*models.BrokerToken, error) {
	token, err := s.repo.GetBrokerToken(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to get broker token: %w", err)
	}
	return token, nil
}

// userLock returns the refresh lock for a user, creating it on first use.
func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.RLock()
	lock, exists := s.locks[userID]
	s.mu.RUnlock()

	if !exists {
		s.mu.Lock()
		// Double-check after acquiring write lock
		lock, exists = s.locks[userID]
		if !exists {
			lock = &sync.Mutex{}
			s.locks[userID] = lock
		}
		s.mu.Unlock()
	}

	return lock
}

func tokenFromResponse(userID int64, resp *TokenResponse, now time.Time) *models.BrokerToken {
	return &models.BrokerToken{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
}

// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tradebench/tradebench/internal/config"
	"github.com/tradebench/tradebench/internal/models"
)

// TokenResponse is the broker token endpoint's response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Client talks to the broker's OAuth endpoints. Every call carries the
// uniform configured timeout and honors request-context cancellation.
type Client struct {
	tokenURL  string
	dialogURL string
	http      *http.Client
}

// NewClient creates a broker API client from configuration.
func NewClient(cfg *config.BrokerConfig) *Client {
	return &Client{
		tokenURL:  cfg.TokenURL,
		dialogURL: cfg.DialogURL,
		http:      &http.Client{Timeout: cfg.CallTimeout()},
	}
}

// AuthorizationURL builds the broker's authorization dialog URL the client
// is redirected to.
func (c *Client) AuthorizationURL(clientID, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	return c.dialogURL + "?" + q.Encode()
}

// Exchange swaps an authorization code for an access/refresh token pair.
func (c *Client) Exchange(ctx context.Context, creds *models.BrokerCredentials, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("redirect_uri", creds.RedirectURI)
	form.Set("grant_type", "authorization_code")

	return c.postForm(ctx, form)
}

// Refresh obtains a new token pair for a stored refresh token.
func (c *Client) Refresh(ctx context.Context, creds *models.BrokerCredentials, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("grant_type", "refresh_token")

	return c.postForm(ctx, form)
}

func (c *Client) postForm(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 256))
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	if tr.TokenType == "" {
		tr.TokenType = "Bearer"
	}

	return &tr, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

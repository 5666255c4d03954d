package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dtroode/healping/internal/model"
)

// tokenResponse is the body of a successful token grant.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
}

// errorResponse covers both error shapes returned by the auth provider.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (e errorResponse) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

// AuthClient talks to the hosted auth provider.
type AuthClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption configures an AuthClient.
type ClientOption func(*AuthClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AuthClient) {
		c.httpClient = client
	}
}

// NewAuthClient creates a client for the auth provider at baseURL using apiKey as the project key.
func NewAuthClient(baseURL, apiKey string, opts ...ClientOption) *AuthClient {
	c := &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Refresh exchanges refreshToken for a new token pair.
// A refresh token the provider refuses yields model.ErrRefreshRejected.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=refresh_token", bytes.NewReader(body))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := readError(resp)
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return model.TokenPair{}, fmt.Errorf("%w: %w", model.ErrRefreshRejected, err)
		}
		return model.TokenPair{}, err
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	pair := model.TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	switch {
	case tr.ExpiresAt > 0:
		pair.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		pair.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return pair, nil
}

// Logout revokes the session identified by accessToken at the provider.
func (c *AuthClient) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	// an already revoked session is as good as a successful logout
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized {
		return nil
	}

	return readError(resp)
}

func (c *AuthClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func readError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.text() != "" {
		return fmt.Errorf("auth provider returned status %d: %s", resp.StatusCode, er.text())
	}
	return fmt.Errorf("auth provider returned status %d", resp.StatusCode)
}

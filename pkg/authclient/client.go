// Package authclient is a slim HTTP client for the auth service, used by
// sibling services and the end-to-end suite.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the auth service's public surface.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and returns the issued tokens.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, "/v1/auth/register", req, &out, http.StatusCreated, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for tokens. Identifier may be a username or
// an email address.
func (c *Client) Login(ctx context.Context, identifier, password string) (*TokenResponse, error) {
	var out TokenResponse
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.postJSON(ctx, "/v1/auth/login", body, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates a refresh token. The presented token is revoked on
// success and must be replaced by the returned one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.postJSON(ctx, "/v1/auth/refresh", body, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes a refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.postJSON(ctx, "/v1/auth/logout", body, nil, http.StatusNoContent, nil)
}

// ChangePassword swaps the password for the bearer of accessToken.
func (c *Client) ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string) error {
	body := map[string]string{
		"current_password": currentPassword,
		"new_password":     newPassword,
	}
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	return c.postJSON(ctx, "/v1/auth/password/change", body, nil, http.StatusNoContent, headers)
}

// ForgotPassword starts the reset flow for the address.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.postJSON(ctx, "/v1/auth/password/forgot", body, nil, http.StatusAccepted, nil)
}

// ResetPassword completes the reset flow with a token from the email.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{
		"token":        token,
		"new_password": newPassword,
	}
	return c.postJSON(ctx, "/v1/auth/password/reset", body, nil, http.StatusNoContent, nil)
}

// Livez reports whether the service is up.
func (c *Client) Livez(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/livez", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("livez: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any, expect int, headers map[string]string) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return decodeResponse(resp, out, expect)
}

func decodeResponse(resp *http.Response, out any, expect int) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != expect {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		return &APIError{
			StatusCode:  status,
			Code:        "server_error",
			Description: fmt.Sprintf("unexpected response (status %d)", status),
		}
	}
	return apiErr
}

package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// InternalClient talks to the API-key-guarded internal surface. Sibling
// services use it to resolve user identities.
type InternalClient struct {
	client *Client
	apiKey string
}

// Internal returns a client for the internal surface using the given API
// key.
func (c *Client) Internal(apiKey string) *InternalClient {
	return &InternalClient{client: c, apiKey: apiKey}
}

// GetUser fetches a user by id.
func (ic *InternalClient) GetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := ic.getJSON(ctx, "/v1/internal/users/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserByUsername fetches a user by username.
func (ic *InternalClient) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var out User
	path := "/v1/internal/users/by-username?username=" + url.QueryEscape(username)
	if err := ic.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetUserEnabled enables or disables an account. Disabling revokes the
// user's refresh tokens.
func (ic *InternalClient) SetUserEnabled(ctx context.Context, id string, enabled bool) error {
	buf, err := json.Marshal(map[string]bool{"enabled": enabled})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	path := "/v1/internal/users/" + url.PathEscape(id) + "/enabled"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ic.client.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", ic.apiKey)

	resp, err := ic.client.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return decodeResponse(resp, nil, http.StatusNoContent)
}

func (ic *InternalClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ic.client.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", ic.apiKey)

	resp, err := ic.client.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return decodeResponse(resp, out, http.StatusOK)
}

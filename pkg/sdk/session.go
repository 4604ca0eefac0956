package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Login authenticates a name/password pair. The session cookie set by
// the service lands in the client's jar, so subsequent calls on the same
// Client are authenticated. code may be empty unless the account has a
// confirmed second factor.
func (c *Client) Login(ctx context.Context, username, password, code string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}
	if code != "" {
		body["code"] = code
	}

	resp, err := c.postJSON(ctx, "/v1/session/login", body)
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := decodeJSON(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout ends the current session. Safe to call when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.postJSON(ctx, "/v1/session/logout", struct{}{})
	if err != nil {
		return err
	}

	var out map[string]bool
	return decodeJSON(resp, &out, http.StatusOK)
}

// Me reports who the current session (or bearerToken, when non-empty) is
// authenticated as. An anonymous session is not an error; check
// Identity.Authenticated.
func (c *Client) Me(ctx context.Context, bearerToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/v1/session/me"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var identity Identity
	if err := decodeJSON(resp, &identity, http.StatusOK); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token
// is invalidated on success.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	resp, err := c.postJSON(ctx, "/v1/session/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := decodeJSON(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// Bootstrap creates the initial admin principal on a fresh install,
// returning its id.
func (c *Client) Bootstrap(ctx context.Context, token, name, email, password string) (string, error) {
	resp, err := c.postJSON(ctx, "/v1/bootstrap", map[string]string{
		"token":    token,
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into target, turning non-expected
// statuses into a typed APIError.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

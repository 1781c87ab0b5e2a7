// Package client talks to the groupware status API on behalf of the presence agent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chorus/groupware/models"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client is a small JSON client for the status endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Heartbeat reports the away flag. The response body is not used.
func (c *Client) Heartbeat(ctx context.Context, away bool) error {
	return c.do(ctx, http.MethodPost, "/api/v1/status/heartbeat", models.HeartbeatRequest{Away: away}, nil)
}

// FetchStatus returns the canonical status of the authenticated user.
func (c *Client) FetchStatus(ctx context.Context) (*models.PresenceStatus, error) {
	var status models.PresenceStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) SetStatus(ctx context.Context, statusType models.StatusType) (*models.PresenceStatus, error) {
	var status models.PresenceStatus
	if err := c.do(ctx, http.MethodPut, "/api/v1/status/type", models.SetStatusRequest{StatusType: statusType}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) SetMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) (*models.PresenceStatus, error) {
	req := models.SetMessageRequest{Icon: icon, Message: message, ClearAt: clearAt}

	var status models.PresenceStatus
	if err := c.do(ctx, http.MethodPut, "/api/v1/status/message", req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) ClearMessage(ctx context.Context) (*models.PresenceStatus, error) {
	var status models.PresenceStatus
	if err := c.do(ctx, http.MethodDelete, "/api/v1/status/message", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

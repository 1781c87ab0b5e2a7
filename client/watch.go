package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"chorus/groupware/models"
)

// Watch streams status changes of the authenticated user to fn until ctx is done or the
// connection drops. The first status delivered is the current one.
func (c *Client) Watch(ctx context.Context, fn func(models.PresenceStatus)) error {
	u, err := url.Parse(c.baseURL + "/ws/status")
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return &StatusError{Method: http.MethodGet, Path: "/ws/status", Code: resp.StatusCode}
		}
		return fmt.Errorf("failed to connect status stream: %w", err)
	}
	defer conn.Close()

	// Closing the connection unblocks ReadJSON when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var status models.PresenceStatus
		if err := conn.ReadJSON(&status); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("status stream: %w", err)
		}
		fn(status)
	}
}

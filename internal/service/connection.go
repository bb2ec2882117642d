package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/helper"
)

// Connection is a client handle to the helper's unix socket.
type Connection struct {
	socket    string
	client    *http.Client
	transport *http.Transport
}

func newConnection(socket string, timeout time.Duration) *Connection {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
		MaxIdleConns:    1,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Connection{
		socket:    socket,
		transport: transport,
		client:    &http.Client{Transport: transport, Timeout: timeout},
	}
}

// ping confirms the helper is listening and has accepted this process.
func (c *Connection) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://helper"+helper.HealthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helper health check returned %s", resp.Status)
	}
	return nil
}

// Run sends one command and waits for its reply.
func (c *Connection) Run(ctx context.Context, command string) (*helper.CommandResponse, error) {
	body, err := json.Marshal(helper.CommandRequest{Command: command})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://helper"+helper.CommandPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out helper.CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding helper reply (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helper returned %s: %s", resp.Status, out.Output)
	}
	return &out, nil
}

// Close drops pooled sockets; later calls on c would dial again.
func (c *Connection) Close() {
	c.transport.CloseIdleConnections()
}

// Package client talks to the agent's HTTP API on behalf of the CLI verbs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/api"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

// APIError is a non-success answer from the agent.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Debug("Calling agent", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return resp, nil
}

// call sends a JSON request and decodes a JSON answer into out when out is
// not nil. Any status other than want is an *APIError.
func (c *Client) call(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.request(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
		for field, problem := range payload.Fields {
			msg += fmt.Sprintf("; %s: %s", field, problem)
		}
	}
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func routePath(id string, suffix string) string {
	return "/api/routes/" + url.PathEscape(id) + suffix
}

func (c *Client) ListRoutes(ctx context.Context, filter *model.RouteFilter) ([]model.Route, error) {
	q := url.Values{}
	if filter != nil {
		if filter.Name != "" {
			q.Set("name", filter.Name)
		}
		if filter.ActiveOnly {
			q.Set("active", "true")
		}
	}
	path := "/api/routes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.Route
	err := c.call(ctx, http.MethodGet, path, nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) GetRoute(ctx context.Context, id string) (*model.Route, error) {
	var out model.Route
	if err := c.call(ctx, http.MethodGet, routePath(id, ""), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRoute(ctx context.Context, route *model.Route) (*model.Route, error) {
	var out model.Route
	if err := c.call(ctx, http.MethodPost, "/api/routes", route, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRoute(ctx context.Context, id string, update *model.RouteUpdate) (*model.Route, error) {
	var out model.Route
	if err := c.call(ctx, http.MethodPut, routePath(id, ""), update, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRoute returns the removal result when the route was active.
func (c *Client) DeleteRoute(ctx context.Context, id string) (*model.RouteResult, error) {
	resp, err := c.request(ctx, http.MethodDelete, routePath(id, ""), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
		var res model.RouteResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return &res, nil
	default:
		return nil, apiError(resp)
	}
}

func (c *Client) DuplicateRoute(ctx context.Context, id string) (*model.Route, error) {
	var out model.Route
	if err := c.call(ctx, http.MethodPost, routePath(id, "/duplicate"), nil, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApplyRoute(ctx context.Context, id string) (model.RouteResult, error) {
	var out model.RouteResult
	err := c.call(ctx, http.MethodPost, routePath(id, "/apply"), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) RemoveRoute(ctx context.Context, id string) (model.RouteResult, error) {
	var out model.RouteResult
	err := c.call(ctx, http.MethodPost, routePath(id, "/remove"), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) RouteStatus(ctx context.Context, id string) (api.RouteStatus, error) {
	var out api.RouteStatus
	err := c.call(ctx, http.MethodGet, routePath(id, "/status"), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) ProbeRoute(ctx context.Context, id string) (model.GatewayProbe, error) {
	var out model.GatewayProbe
	err := c.call(ctx, http.MethodGet, routePath(id, "/probe"), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) ApplyAll(ctx context.Context) (api.BatchResponse, error) {
	var out api.BatchResponse
	err := c.call(ctx, http.MethodPost, "/api/routes/apply", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) RemoveAll(ctx context.Context) (api.BatchResponse, error) {
	var out api.BatchResponse
	err := c.call(ctx, http.MethodPost, "/api/routes/remove", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Refresh(ctx context.Context) ([]model.Route, error) {
	var out []model.Route
	err := c.call(ctx, http.MethodPost, "/api/routes/refresh", nil, http.StatusOK, &out)
	return out, err
}

// Export returns the YAML document of all routes.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	resp, err := c.request(ctx, http.MethodGet, "/api/routes/export", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Import uploads a YAML document and returns the routes it created.
func (c *Client) Import(ctx context.Context, doc io.Reader) ([]model.Route, error) {
	resp, err := c.request(ctx, http.MethodPost, "/api/routes/import", doc, "application/yaml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}
	var out api.ImportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out.Created, nil
}

func (c *Client) ListPorts(ctx context.Context) ([]model.NetworkPort, error) {
	var out []model.NetworkPort
	err := c.call(ctx, http.MethodGet, "/api/ports", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) PortGateway(ctx context.Context, device string) (api.PortGateway, error) {
	var out api.PortGateway
	err := c.call(ctx, http.MethodGet, "/api/ports/"+url.PathEscape(device)+"/gateway", nil, http.StatusOK, &out)
	return out, err
}

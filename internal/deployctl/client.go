package deployctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deployd/pkg/types"
)

// Client talks to a running deployd server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client for the given base URL, e.g. http://localhost:8080.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Deploys are synchronous and may take minutes on slow hosts.
		HTTP: &http.Client{Timeout: 15 * time.Minute},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Deploy submits a deployment request and waits for the outcome.
func (c *Client) Deploy(ctx context.Context, req types.DeployRequest) (*types.DeployResponse, error) {
	var resp types.DeployResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/deploy", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List fetches deployments, optionally filtered by user id.
func (c *Client) List(ctx context.Context, userID string) ([]types.Deployment, error) {
	path := "/api/v1/deployments"
	if userID != "" {
		path += "?user_id=" + userID
	}
	var resp types.DeploymentsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Deployments, nil
}

// Get fetches one deployment by id.
func (c *Client) Get(ctx context.Context, id string) (*types.Deployment, error) {
	var rec types.Deployment
	if err := c.do(ctx, http.MethodGet, "/api/v1/deployments/"+id, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Terminate tears down one deployment by id.
func (c *Client) Terminate(ctx context.Context, id string) (*types.Deployment, error) {
	var rec types.Deployment
	if err := c.do(ctx, http.MethodDelete, "/api/v1/deployments/"+id, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Status fetches the server status snapshot.
func (c *Client) Status(ctx context.Context) (*types.StatusResponse, error) {
	var st types.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Models fetches the model catalog.
func (c *Client) Models(ctx context.Context) ([]types.Model, error) {
	var resp types.ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

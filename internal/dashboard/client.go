// Package dashboard exports Grafana dashboard panels as static images and an
// HTML gallery for publishing alongside the analysis output.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Polling cadence and per-request timeout for the health check.
const (
	healthPollInterval = 5 * time.Second
	healthTimeout      = 5 * time.Second
	renderTimeout      = 60 * time.Second
	requestTimeout     = 10 * time.Second
)

// ErrNotReady indicates Grafana did not become healthy within the deadline.
var ErrNotReady = errors.New("grafana did not become ready in time")

// Client is a minimal Grafana API client. Grafana is an external
// collaborator; only the endpoints the exporter needs are covered.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client for the Grafana instance at baseURL.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{},
	}
}

// WaitForReady polls the health endpoint until Grafana responds or the
// timeout elapses.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		healthy := func() bool {
			reqCtx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/api/health", nil)
			if err != nil {
				return false
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return false
			}
			defer resp.Body.Close()

			return resp.StatusCode == http.StatusOK
		}()
		if healthy {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}

	return ErrNotReady
}

// DashboardRef is one search result from the dashboard listing.
type DashboardRef struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
}

// GridPos is a panel's size in Grafana grid units.
type GridPos struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Panel is one dashboard panel definition.
type Panel struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	GridPos GridPos `json:"gridPos"`
}

// Dashboard is the panel layout of one dashboard.
type Dashboard struct {
	Title  string  `json:"title"`
	Panels []Panel `json:"panels"`
}

// SearchDashboards lists all dashboards.
func (c *Client) SearchDashboards(ctx context.Context) ([]DashboardRef, error) {
	var refs []DashboardRef

	err := c.getJSON(ctx, "/api/search?type=dash-db", &refs)
	if err != nil {
		return nil, fmt.Errorf("search dashboards: %w", err)
	}

	return refs, nil
}

// DashboardByUID fetches one dashboard definition.
func (c *Client) DashboardByUID(ctx context.Context, uid string) (*Dashboard, error) {
	var envelope struct {
		Dashboard Dashboard `json:"dashboard"`
	}

	err := c.getJSON(ctx, "/api/dashboards/uid/"+uid, &envelope)
	if err != nil {
		return nil, fmt.Errorf("fetch dashboard %s: %w", uid, err)
	}

	return &envelope.Dashboard, nil
}

// RenderPanel renders a single panel as PNG through the Grafana image
// renderer.
func (c *Client) RenderPanel(ctx context.Context, uid string, panelID, width, height int, timeFrom, timeTo string) ([]byte, error) {
	path := fmt.Sprintf("/render/d-solo/%s/?panelId=%d&width=%d&height=%d&from=%s&to=%s",
		uid, panelID, width, height, timeFrom, timeTo)

	reqCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	body, err := c.get(reqCtx, path)
	if err != nil {
		return nil, fmt.Errorf("render panel %d: %w", panelID, err)
	}

	return body, nil
}

// getJSON fetches a JSON endpoint into target.
func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := c.get(reqCtx, path)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, target)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// get performs an authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: unexpected status %s", path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

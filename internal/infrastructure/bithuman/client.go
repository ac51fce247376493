// Package bithuman is a thin client for the bitHuman cloud API.
package bithuman

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public bitHuman API.
const DefaultBaseURL = "https://api.bithuman.ai"

// DynamicsBaseURL serves agent gesture listings.
const DynamicsBaseURL = "https://public.api.bithuman.ai"

// Client calls the bitHuman API with a bearer API secret.
type Client struct {
	baseURL   string
	apiSecret string
	http      *resty.Client
}

// HealthStatus is the decoded body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// NewClient builds a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiSecret string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "avatar-bridge/1.0")
	if apiSecret != "" {
		httpClient.SetAuthToken(apiSecret)
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: apiSecret,
		http:      httpClient,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks API reachability. Any non-200 answer is an error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get(c.baseURL + "/health")
	if err != nil {
		return nil, fmt.Errorf("bithuman health request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("bithuman health returned status %d", resp.StatusCode())
	}
	if status.Status == "" {
		status.Status = "ok"
	}
	return &status, nil
}

type dynamicsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Gestures map[string]string `json:"gestures"`
	} `json:"data"`
}

// Gestures lists the dynamics clips of agentID, keyed by gesture name with
// the clip URL as value. The dynamics API authenticates with an api-secret
// header rather than a bearer token.
func (c *Client) Gestures(ctx context.Context, agentID string) (map[string]string, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("bithuman dynamics: agent id is required")
	}
	var body dynamicsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("api-secret", c.apiSecret).
		SetPathParam("agentID", agentID).
		SetResult(&body).
		Get(c.baseURL + "/v1/dynamics/{agentID}")
	if err != nil {
		return nil, fmt.Errorf("bithuman dynamics request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("bithuman dynamics returned status %d", resp.StatusCode())
	}
	if !body.Success {
		return nil, fmt.Errorf("bithuman dynamics returned success=false")
	}
	if body.Data.Gestures == nil {
		return map[string]string{}, nil
	}
	return body.Data.Gestures, nil
}

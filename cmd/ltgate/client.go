package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/learningtriangle/ltgate/internal/config"
)

// apiClient talks to a running ltgate server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

// newAPIClient is a variable so tests can point the CLI at an httptest server.
var newAPIClient = func(cfg config.Config) *apiClient {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return &apiClient{
		baseURL:    "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// health reports whether the server answers its health check.
func (c *apiClient) health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// publishedReviews counts the reviews the public listing returns.
func (c *apiClient) publishedReviews(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, "/gateway?action=get-reviews")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("review listing returned %d", resp.StatusCode)
	}
	var body struct {
		Reviews []json.RawMessage `json:"reviews"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return 0, err
	}
	return len(body.Reviews), nil
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

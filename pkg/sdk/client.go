// Package sdk provides a Go client for the linecsv conversion API.
package sdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ClientConfig holds configuration for the linecsv client
type ClientConfig struct {
	// Endpoint is the server base URL (default http://localhost:8080)
	Endpoint string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Timeout for each request (default 10s)
	Timeout time.Duration
}

// Client talks to a linecsv server
type Client struct {
	config ClientConfig
	client *http.Client
}

// ConvertResult is the outcome of one conversion request
type ConvertResult struct {
	// CSV is the conversion output (empty when NoData)
	CSV string

	// Hash is the content hash the server stored the result under
	Hash string

	// Points and Skipped mirror the server's conversion counters
	Points  int
	Skipped int

	// Cached reports whether the server served a stored result
	Cached bool

	// NoData is true when the document held no valid records
	// and no CSV was produced
	NoData bool
}

// New creates a new linecsv client
func New(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:8080"
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Convert sends a line protocol document for conversion. source is an
// optional label recorded with the stored conversion ("" omits it).
func (c *Client) Convert(ctx context.Context, document, source string) (*ConvertResult, error) {
	endpoint := c.config.Endpoint + "/v1/convert"
	if source != "" {
		endpoint += "?source=" + url.QueryEscape(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &ConvertResult{
			Hash:   resp.Header.Get("X-Linecsv-Hash"),
			NoData: true,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("convert failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result := &ConvertResult{
		CSV:    string(body),
		Hash:   resp.Header.Get("X-Linecsv-Hash"),
		Cached: resp.Header.Get("X-Linecsv-Cache") == "hit",
	}
	result.Points, _ = strconv.Atoi(resp.Header.Get("X-Linecsv-Points"))
	result.Skipped, _ = strconv.Atoi(resp.Header.Get("X-Linecsv-Skipped"))
	return result, nil
}

// GetConversion fetches a stored conversion's CSV by its content hash.
func (c *Client) GetConversion(ctx context.Context, hash string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.Endpoint+"/v1/conversions/"+url.PathEscape(hash), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("conversion %s not found", hash)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get conversion failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

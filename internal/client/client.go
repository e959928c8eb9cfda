// Package client is the HTTP client for the swap API used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/server"
	"github.com/sirupsen/logrus"
)

// Client talks to the swap API with retry and timeout support
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// Config holds configuration for the API client
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	server.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.ErrorResponse.Error)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.ErrorResponse.Error)
}

// Kind returns the engine failure kind carried by err, if any.
func Kind(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// New creates an API client
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// Health returns the API health report.
func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var out server.HealthResponse
	return &out, c.do(ctx, http.MethodGet, "/v1/health", nil, &out)
}

// InitializePool submits a signed pool creation.
func (c *Client) InitializePool(ctx context.Context, req server.InitializePoolRequest) (*server.PoolResponse, error) {
	var out server.PoolResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pools", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pools lists every pool.
func (c *Client) Pools(ctx context.Context) ([]server.PoolResponse, error) {
	var out struct {
		Items []server.PoolResponse `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/pools", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Pool fetches one pool by address.
func (c *Client) Pool(ctx context.Context, address string) (*server.PoolResponse, error) {
	var out server.PoolResponse
	if err := c.do(ctx, http.MethodGet, "/v1/pools/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Inspect reports reserve state for a pool; source is "ledger" or "cluster".
func (c *Client) Inspect(ctx context.Context, address, source string) (*server.InspectResponse, error) {
	path := "/v1/pools/" + url.PathEscape(address) + "/inspect"
	if source != "" {
		path += "?source=" + url.QueryEscape(source)
	}
	var out server.InspectResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Swap submits a signed swap against pool.
func (c *Client) Swap(ctx context.Context, pool string, req server.SwapRequest) (*server.SwapResponse, error) {
	var out server.SwapResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pools/"+url.PathEscape(pool)+"/swap", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecentSwaps returns up to limit of the latest swaps.
func (c *Client) RecentSwaps(ctx context.Context, limit int) ([]*models.SwapEvent, error) {
	var out struct {
		Items []*models.SwapEvent `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/swaps/recent?limit="+strconv.Itoa(limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateAccount creates a token account; the API must run in dev mode.
func (c *Client) CreateAccount(ctx context.Context, req server.CreateAccountRequest) (*server.AccountResponse, error) {
	var out server.AccountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/dev/accounts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mint credits an account; the API must run in dev mode.
func (c *Client) Mint(ctx context.Context, req server.MintRequest) (*server.AccountResponse, error) {
	var out server.AccountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/dev/mint", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request with retries. Signed POSTs are only retried on
// transport failure or 429.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = data
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"path":    path,
			}).Debug("retrying API call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		status, resp, err := c.doRequest(ctx, method, path, body)
		if err != nil {
			lastErr = err
			continue
		}

		if status >= 200 && status < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(resp, out); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
			return nil
		}

		apiErr := &APIError{Status: status}
		if err := json.Unmarshal(resp, &apiErr.ErrorResponse); err != nil || apiErr.ErrorResponse.Error == "" {
			apiErr.ErrorResponse.Error = http.StatusText(status)
		}
		if !retryable(method, status) {
			return apiErr
		}
		lastErr = apiErr
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func retryable(method string, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if method != http.MethodGet {
		return false
	}
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

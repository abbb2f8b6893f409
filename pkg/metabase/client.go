// Package metabase provides a client for the Metabase REST API: native query
// execution and validation, database metadata, saved cards and signed embeds.
package metabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/logging"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultTimeout           = 60 * time.Second
	DefaultValidationTimeout = 10 * time.Second
	DefaultPollInterval      = 500 * time.Millisecond
)

// Config holds connection settings for a Metabase instance.
type Config struct {
	URL               string
	APIKey            string
	EmbedSecret       string
	Timeout           time.Duration
	ValidationTimeout time.Duration // how long a running async query is polled
	PollInterval      time.Duration
}

// Client provides access to the Metabase API.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	apiKey            string
	embedSecret       string
	validationTimeout time.Duration
	pollInterval      time.Duration
	logger            *zap.Logger
}

// NewClient creates a new Metabase client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("metabase url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid metabase url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = DefaultValidationTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Client{
		httpClient:        &http.Client{Timeout: cfg.Timeout},
		baseURL:           cfg.URL,
		apiKey:            cfg.APIKey,
		embedSecret:       cfg.EmbedSecret,
		validationTimeout: cfg.ValidationTimeout,
		pollInterval:      cfg.PollInterval,
		logger:            logger.Named("metabase"),
	}, nil
}

// WithAPIKey returns a copy of c that authenticates with key.
// An empty key returns c unchanged.
func (c *Client) WithAPIKey(key string) *Client {
	if key == "" || key == c.apiKey {
		return c
	}
	clone := *c
	clone.apiKey = key
	return &clone
}

// HTTPError is returned when Metabase answers with an unexpected status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable implements retry.RetryableError.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type response struct {
	status int
	body   []byte
}

// do sends a JSON request and returns the raw response without judging the status.
func (c *Client) do(ctx context.Context, method string, payload any, segments ...string) (*response, error) {
	endpoint, err := buildURL(c.baseURL, segments...)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call metabase: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &response{status: resp.StatusCode, body: data}, nil
}

// doExpect is do plus a status check and optional JSON decoding into out.
func (c *Client) doExpect(ctx context.Context, method string, payload, out any, ok []int, segments ...string) error {
	resp, err := c.do(ctx, method, payload, segments...)
	if err != nil {
		return err
	}

	if !statusIn(resp.status, ok) {
		c.logger.Warn("Metabase returned error",
			zap.String("method", method),
			zap.String("path", path.Join(segments...)),
			zap.Int("status", resp.status),
			zap.String("body", logging.TruncateString(string(resp.body), 500)))
		return &HTTPError{StatusCode: resp.status, Body: string(resp.body)}
	}

	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func statusIn(status int, accepted []int) bool {
	for _, s := range accepted {
		if status == s {
			return true
		}
	}
	return false
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)

	return u.String(), nil
}

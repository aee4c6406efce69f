// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Client wraps an http.Client with the User-Agent, rate limit and retry
// policy an adapter needs. Each adapter owns its own Client so one source's
// limiter never throttles another.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Policy    RetryPolicy
	Limiter   *rate.Limiter
	Log       zerolog.Logger
}

// NewClient builds a Client from the shared HTTP settings.
func NewClient(cfg types.HTTPConfig, log zerolog.Logger) *Client {
	c := &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
		Policy: RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			MaxDelay:   cfg.RetryMaxDelay,
		},
		Log: log,
	}
	if cfg.RateLimit > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// waitLimiter blocks until the rate limiter admits one request.
func (c *Client) waitLimiter(ctx context.Context) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Get fetches rawURL and returns the response body. header values are added
// to the request; the User-Agent is always set.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, header, nil)
}

// PostJSON sends body as JSON to rawURL and decodes the JSON response into v.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	header := http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json"},
	}
	data, err := c.do(ctx, http.MethodPost, rawURL, header, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	policy := c.Policy
	if c.Limiter != nil {
		policy.BeforeAttempt = c.waitLimiter
	}
	resp, err := DoWithRetry(ctx, client, req, policy, c.Log)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}
	body, err := c.Get(ctx, rawURL, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// Package remote provides client functionality for communicating with Webside backends.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every backend request unless overridden.
const DefaultTimeout = 30 * time.Second

// Client communicates with a Webside backend.
//
// A Client is bound to one backend for its whole life: switching backends
// means building a new Client, which also restarts change-log negotiation.
type Client struct {
	BaseURL    string
	Author     string
	HTTPClient *http.Client

	// ReportError, if set, is offered every normalized failure before it is
	// returned to the caller.
	ReportError func(error)
	// ReportChange, if set, is called with every change the backend accepted.
	ReportChange func(*Change)

	logger *slog.Logger

	modeMu sync.Mutex
	mode   Mode
}

// Option configures a Client.
type Option func(*Client)

// WithErrorReporter sets the error reporter.
func WithErrorReporter(fn func(error)) Option {
	return func(c *Client) { c.ReportError = fn }
}

// WithChangeReporter sets the change reporter.
func WithChangeReporter(fn func(*Change)) Option {
	return func(c *Client) { c.ReportChange = fn }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new Webside client.
// baseURL is the backend root (e.g., http://localhost:9001/pharo) and author
// is the developer identity stamped on every change.
func NewClient(baseURL, author string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Author:  author,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Raw verbs ---

// Get performs a GET and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST with a JSON payload.
func (c *Client) Post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

// Put performs a PUT with a JSON payload.
func (c *Client) Put(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, payload)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// --- Helper methods ---

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := c.Post(ctx, path, payload)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do sends the request and reports any failure once before returning it.
func (c *Client) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	data, err := c.send(ctx, method, path, payload)
	if err != nil {
		c.report(err)
		return nil, err
	}
	return data, nil
}

// send performs the HTTP exchange and normalizes failures without reporting them.
func (c *Client) send(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	ctx, span := startRequestSpan(ctx, method, path)
	defer span.End()
	start := time.Now()

	description := describe(method, path)
	fullURL := c.BaseURL + path

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, newTransportError(description, fullURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Author != "" {
		req.Header.Set("X-Webside-Author", c.Author)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		e := newTransportError(description, fullURL, err)
		endRequestSpan(ctx, span, method, 0, time.Since(start), e)
		return nil, e
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e := newTransportError(description, fullURL, fmt.Errorf("reading body: %w", err))
		endRequestSpan(ctx, span, method, resp.StatusCode, time.Since(start), e)
		return nil, e
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := newHTTPError(description, fullURL, resp.StatusCode, data)
		endRequestSpan(ctx, span, method, resp.StatusCode, time.Since(start), e)
		return nil, e
	}

	endRequestSpan(ctx, span, method, resp.StatusCode, time.Since(start), nil)
	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)
	return data, nil
}

func (c *Client) report(err error) {
	c.logger.Debug("backend request failed", slog.Any("error", err))
	if c.ReportError != nil {
		c.ReportError(err)
	}
}

func describe(method, path string) string {
	return "Cannot " + strings.ToLower(method) + " " + path
}

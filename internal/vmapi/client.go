package vmapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/internal/logging"
)

// DefaultTimeout bounds a single VMAPI request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

const (
	requestIDHeader = "x-request-id"
	maxErrorBody    = 64 << 10
)

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing. Nil falls back to
// slog.Default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client talks JSON over HTTP to VMAPI.
type Client struct {
	vmapi   *url.URL
	wfapi   *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient builds a client for the given VMAPI endpoint. The workflow
// endpoint is optional and only recorded.
func NewClient(vmapiURL, wfapiURL string, opts ...ClientOption) (*Client, error) {
	vmapi, err := parseEndpoint(vmapiURL)
	if err != nil {
		return nil, fmt.Errorf("vmapi url: %w", err)
	}
	var wfapi *url.URL
	if strings.TrimSpace(wfapiURL) != "" {
		if wfapi, err = parseEndpoint(wfapiURL); err != nil {
			return nil, fmt.Errorf("wfapi url: %w", err)
		}
	}

	c := &Client{
		vmapi:   vmapi,
		wfapi:   wfapi,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Ensure(c.logger).With("component", "vmapi_client", "vmapi_url", vmapi.String())
	return c, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty endpoint")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}

// VMAPIURL returns the configured VMAPI endpoint.
func (c *Client) VMAPIURL() string {
	return c.vmapi.String()
}

// WFAPIURL returns the configured workflow endpoint, or "" when unset.
func (c *Client) WFAPIURL() string {
	if c.wfapi == nil {
		return ""
	}
	return c.wfapi.String()
}

// ListVMs fetches every record matching filter from GET /vms.
func (c *Client) ListVMs(ctx context.Context, filter Filter) ([]VM, error) {
	endpoint := c.vmapi.JoinPath("vms")
	endpoint.RawQuery = filter.Encode()

	var vms []VM
	if err := c.send(ctx, http.MethodGet, endpoint, &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

// errorBody is the restify error envelope VMAPI answers failures with.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) send(ctx context.Context, method string, endpoint *url.URL, response any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := strings.ToLower(method) + " " + endpoint.Path
	fail := func(status int, message string, err error) error {
		return &TransportError{Op: op, URL: endpoint.String(), StatusCode: status, Message: message, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return fail(0, "", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, "", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("vmapi request",
		"method", method,
		"path", endpoint.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, readErrorMessage(resp.Body), nil)
	}
	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope errorBody
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Message != "" {
		if envelope.Code != "" {
			return envelope.Code + ": " + envelope.Message
		}
		return envelope.Message
	}
	return strings.TrimSpace(string(data))
}

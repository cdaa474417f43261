package http

import (
	"bytes"
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

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/validation"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// StatusError is returned for an unexpected response status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client implements ports.FlowRepository against a service exposing the
// flow-agents endpoints: GET /flow-agents/{id} to load and
// PATCH /flow-agents/{id}/flow to save.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	codec   *persistence.Codec
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		codec:   persistence.NewCodec(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, target string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: read response: %w", method, target, err)
	}
	c.logger.DebugContext(ctx, "collaborator call", "method", method, "url", target, "status", resp.StatusCode, "took", time.Since(start))
	return resp, data, nil
}

func statusError(method, target string, resp *http.Response, body []byte) error {
	return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Load fetches the agent and returns its flow. A 404 maps to domain.ErrFlowNotFound.
func (c *Client) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	target := c.url("flow-agents", agentID)
	resp, body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrFlowNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, statusError(http.MethodGet, target, resp, body)
	}
	return c.codec.DecodeEnvelope(body)
}

// Save replaces the agent's flow. A 422 response is returned as a
// *validation.Error carrying the server's results.
func (c *Client) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	target := c.url("flow-agents", agentID, "flow")
	resp, body, err := c.do(ctx, http.MethodPatch, target, domain.AgentFlow{FlowData: doc})
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var verr validation.Error
		if err := json.Unmarshal(body, &verr); err == nil && len(verr.Results) > 0 {
			return &verr
		}
		return statusError(http.MethodPatch, target, resp, body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusError(http.MethodPatch, target, resp, body)
	}
	return nil
}

// Delete removes the agent's flow. A 404 is not an error.
func (c *Client) Delete(ctx context.Context, agentID string) error {
	target := c.url("flow-agents", agentID, "flow")
	resp, body, err := c.do(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return nil
	}
	return statusError(http.MethodDelete, target, resp, body)
}

// List returns the agent ids known to the service.
func (c *Client) List(ctx context.Context) ([]string, error) {
	target := c.url("flow-agents")
	resp, body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, target, resp, body)
	}
	var out listResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode agent list: %w", err)
	}
	return out.Agents, nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gateway is the typed client for the research backend. Each
// operation makes exactly one HTTP attempt against the configured base URL;
// every failure is returned as a *GatewayError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/pkg/types"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultUserAgent = "farabi/0.1"

	// maxErrorBody bounds how much of a failed response is kept as message.
	maxErrorBody = 512
)

// validate checks decoded responses against their struct tags.
var validate = validator.New()

// ErrorKind classifies a GatewayError.
type ErrorKind string

const (
	// KindTransport covers connection failures, timeouts, and cancellation.
	KindTransport ErrorKind = "transport"
	// KindStatus covers non-2xx responses.
	KindStatus ErrorKind = "status"
	// KindValidation covers bodies that do not decode or fail validation.
	KindValidation ErrorKind = "validation"
)

// GatewayError is the single error type returned by every Client method.
// StatusCode is zero for transport failures.
type GatewayError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// AsGatewayError reports whether err wraps a *GatewayError and returns it.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// Client issues JSON requests to the research backend.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	log       *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client for cfg.BaseURL.
func New(cfg types.GatewayConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gateway base URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{
		baseURL:   base,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the endpoint all operations are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &GatewayError{Op: op, Kind: KindValidation, Message: fmt.Sprintf("encoding request: %v", err), Err: err}
	}
	return c.do(ctx, op, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

// do sends one request and decodes a 2xx body into out. It never retries.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &GatewayError{Op: op, Kind: KindTransport, Message: fmt.Sprintf("creating request: %v", err), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("gateway request failed", zap.String("op", op), zap.Error(err))
		return &GatewayError{Op: op, Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("gateway response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Message: fmt.Sprintf("reading response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &GatewayError{Op: op, Kind: KindValidation, StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err), Err: err}
	}
	if err := validate.Struct(out); err != nil {
		return &GatewayError{Op: op, Kind: KindValidation, StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid response: %v", err), Err: err}
	}
	return nil
}

// errorMessage extracts {"detail": "..."} from an error body, falling back
// to the trimmed raw body and then the HTTP status text.
func errorMessage(data []byte, status string) string {
	var er ErrorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Detail != "" {
		return er.Detail
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		return status
	}
	return msg
}

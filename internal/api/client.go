package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/nhle/taskclient/internal/credential"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// RequestIDHeader carries a per-request UUID for correlating client and
// server logs.
const RequestIDHeader = "X-Request-ID"

// CredentialSource supplies the bearer credential for authenticated calls.
// *credential.Store satisfies it.
type CredentialSource interface {
	Get() (credential.Credential, bool)
}

// Client is a thin HTTP client for the task service REST API. It attaches
// the bearer token through an oauth2 transport, marshals JSON, and turns
// every failure into an *Error. It never retries.
type Client struct {
	baseURL   string
	creds     CredentialSource
	transport http.RoundTripper
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the base round tripper (defaults to
// http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout bounds each request end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for per-request log lines.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the clock used for client-side deadline checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:5000/api). creds is read on every authenticated
// call and never written.
func NewClient(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		creds:     creds,
		transport: http.DefaultTransport,
		timeout:   15 * time.Second,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes a single API call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	auth   bool
	body   interface{}
	result interface{}
}

// do builds the request, attaches auth, executes it and normalizes the
// outcome.
func (c *Client) do(ctx context.Context, r request) error {
	var httpClient *http.Client
	if r.auth {
		cred, ok := c.creds.Get()
		if !ok {
			return unauthenticated(r.op)
		}
		httpClient = &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{
					AccessToken: cred.Token,
					TokenType:   "Bearer",
				}),
				Base: c.transport,
			},
			Timeout: c.timeout,
		}
	} else {
		httpClient = &http.Client{Transport: c.transport, Timeout: c.timeout}
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return &Error{Kind: KindValidation, Op: r.op, Err: fmt.Errorf("marshaling request body: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, bodyReader)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: r.op, Err: fmt.Errorf("creating request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	fields := []zap.Field{
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.String("request_id", requestID),
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			append(fields, zap.Duration("latency", time.Since(start)), zap.Error(err))...)
		return &Error{Kind: KindNetwork, Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	fields = append(fields,
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if readErr != nil {
		c.logger.Warn("api response unreadable", append(fields, zap.Error(readErr))...)
		return &Error{Kind: KindNetwork, Op: r.op, Status: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", readErr)}
	}

	if apiErr := classify(r.op, resp.StatusCode, respBody); apiErr != nil {
		if apiErr.Kind == KindServerFault {
			c.logger.Error("api request", fields...)
		} else {
			c.logger.Warn("api request", fields...)
		}
		return apiErr
	}
	c.logger.Debug("api request", fields...)

	if r.result == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return &Error{Kind: KindServerFault, Op: r.op, Status: resp.StatusCode, Err: fmt.Errorf("empty response body")}
	}
	if err := json.Unmarshal(respBody, r.result); err != nil {
		return &Error{
			Kind:   KindServerFault,
			Op:     r.op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unmarshaling response from %s %s: %w", r.method, r.path, err),
		}
	}
	return nil
}

// classify maps a non-2xx status onto the error taxonomy.
func classify(op string, status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}

	e := &Error{Op: op, Status: status, Message: serverMessage(body)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthenticated
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 400 && status < 500:
		e.Kind = KindValidation
	default:
		e.Kind = KindServerFault
	}
	if e.Message == "" {
		e.Err = fmt.Errorf("unexpected status %d", status)
	}
	return e
}

// serverMessage extracts a human-readable message from a JSON error body.
// Non-JSON bodies (proxy error pages and the like) yield "".
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Errors  []struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	var parts []string
	for _, e := range payload.Errors {
		switch {
		case e.Msg != "":
			parts = append(parts, e.Msg)
		case e.Message != "":
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

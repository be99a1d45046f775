package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/retry"
)

// TokenSource supplies the current access credential. Absence of a credential
// is not an error at this layer; some endpoints are public.
type TokenSource interface {
	AccessToken() (string, bool)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func() (string, bool)

func (f TokenSourceFunc) AccessToken() (string, bool) { return f() }

// Refresher obtains a fresh access credential after an authorization failure.
// Implementations must coalesce concurrent callers into a single underlying
// refresh (single-flight); the session coordinator satisfies this interface.
type Refresher interface {
	RefreshAccess(ctx context.Context) (string, error)
}

// Client is the single HTTP entry point used by all other components and by
// feature code. It injects bearer credentials, retries transient failures per
// the retry policy, and performs at-most-one refresh-and-retry cycle per
// request on authorization failures.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	policy    retry.Policy
	tokens    TokenSource
	log       *slog.Logger

	// refresher and onExpired are set after construction because the session
	// coordinator that provides them is itself constructed with this client.
	mu        sync.RWMutex
	refresher Refresher
	onExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource sets the access credential source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithPolicy sets the retry policy for transient failures.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a gateway client for the given backend base URL.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		policy:    cfg.Policy(),
		log:       logger.Discard(),
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRefresher wires the component that can mint fresh credentials. Without
// one, authorization failures are returned to the caller as-is.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	c.refresher = r
	c.mu.Unlock()
}

// SetSessionExpiredHandler wires the forced-logout hook invoked when a
// refresh attempt fails unrecoverably.
func (c *Client) SetSessionExpiredHandler(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Health issues a single unauthenticated liveness probe without retries.
// Used by the warmup pinger.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Get(ctx, "/health", WithoutAuth(), WithoutRetry())
	return err
}

// Do issues a request and decodes the response envelope.
//
// Transient network failures are retried per the retry policy with widening
// per-attempt timeouts. A 401 response triggers at most one refresh-and-retry
// cycle via the wired Refresher; if the refresh fails, ErrSessionExpired is
// returned and the session-expired handler fires.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	ro := defaultRequestOptions()
	for _, opt := range opts {
		opt(ro)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Join(ErrInvalidRequest, err)
		}
	}

	authRetried := false
	var lastErr error

	for attempt := 1; ; attempt++ {
		resp, err := c.attempt(ctx, method, path, payload, ro, attempt)

		if err == nil && resp.StatusCode == http.StatusUnauthorized && !ro.skipAuth {
			if authRetried {
				// One refresh-and-retry cycle maximum, regardless of
				// retry policy settings.
				return resp, c.apiError(resp)
			}

			c.mu.RLock()
			refresher := c.refresher
			c.mu.RUnlock()
			if refresher == nil {
				return resp, c.apiError(resp)
			}

			token, rerr := refresher.RefreshAccess(ctx)
			if rerr != nil {
				if retry.IsTransient(rerr) {
					// An unreachable or cold backend is recoverable; only a
					// rejected refresh may tear the session down.
					c.log.Debug("gateway: credential refresh unreachable", logger.Error(rerr))
					return nil, rerr
				}
				c.log.Debug("gateway: credential refresh failed", logger.Error(rerr))
				c.fireSessionExpired()
				return nil, errors.Join(ErrSessionExpired, rerr)
			}

			authRetried = true
			ro.overrideToken = token
			continue
		}

		if err == nil {
			if apiErr := c.apiError(resp); apiErr != nil {
				return resp, apiErr
			}
			return resp, nil
		}

		lastErr = err

		// The parent context ending trumps any retry schedule.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ro.noRetry || !c.policy.ShouldRetry(attempt, err) {
			return nil, lastErr
		}

		delay := c.policy.DelayFor(attempt)
		c.log.Debug("gateway: retrying after transient failure",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attempt performs a single HTTP round trip with a per-attempt timeout.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, ro *requestOptions, attempt int) (*Response, error) {
	timeout := ro.timeout
	if timeout == 0 {
		timeout = c.policy.TimeoutFor(attempt)
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range ro.headers {
		req.Header.Set(k, v)
	}

	if !ro.skipAuth {
		if token, ok := c.bearerToken(ro); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		// Lift the attempt deadline into the error chain so the policy
		// classifies it as transient even through url.Error wrapping.
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, errors.Join(context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
	}
	resp.decodeEnvelope()

	// 5xx responses are transient backend failures handled by the retry
	// loop; surface them as classified errors carrying the API detail.
	if retry.TransientStatus(resp.StatusCode) {
		apiErr := resp.envelopeError()
		if apiErr == nil {
			apiErr = &APIError{Status: resp.StatusCode, Code: codeUnavailable, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, retry.Transient(apiErr)
	}

	return resp, nil
}

func (c *Client) bearerToken(ro *requestOptions) (string, bool) {
	if ro.overrideToken != "" {
		return ro.overrideToken, true
	}
	if c.tokens == nil {
		return "", false
	}
	return c.tokens.AccessToken()
}

// apiError maps a non-2xx response to its application error, or nil for 2xx.
func (c *Client) apiError(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if apiErr := resp.envelopeError(); apiErr != nil {
		return apiErr
	}
	return &APIError{Status: resp.StatusCode, Code: codeUnknown, Message: http.StatusText(resp.StatusCode)}
}

func (c *Client) fireSessionExpired() {
	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// maxResponseBytes caps response reads; profile and token payloads are small.
const maxResponseBytes = 1 << 20

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from a platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorBodySize bounds how much of an error body is kept on RemoteAPIError
const maxErrorBodySize = 2048

// RetryPolicy controls retries of transient failures (429, 5xx, network).
// Delays use exponential backoff with full jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	return p
}

// backoff returns the full-jitter delay before retry number attempt (1-based)
func (p RetryPolicy) backoff(attempt int) time.Duration {
	ceiling := p.BaseDelay << (attempt - 1)
	if ceiling <= 0 || ceiling > p.MaxDelay {
		ceiling = p.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}

// RequestObserver is notified after every HTTP attempt
type RequestObserver interface {
	ObserveRequest(platform integration.PlatformCode, method string, statusCode int, duration time.Duration)
	ObserveRetry(platform integration.PlatformCode, method string)
	ObserveRateLimitWait(platform integration.PlatformCode, wait time.Duration)
}

type apiResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// apiClient is the shared transport for platform adapters: pacing, retries,
// bounded reads and error classification
type apiClient struct {
	platform   integration.PlatformCode
	httpClient *http.Client
	limiter    *TokenBucketLimiter
	retry      RetryPolicy
	logger     *zap.Logger
	observer   RequestObserver
	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func newAPIClient(platform integration.PlatformCode, timeout time.Duration, limiter *TokenBucketLimiter, retry RetryPolicy, logger *zap.Logger) *apiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &apiClient{
		platform:   platform,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retry:      retry.normalized(),
		logger:     logger.With(zap.String("platform", platform.String())),
		sleep:      sleepContext,
	}
}

// errRequestNotSent marks network failures that happened before the request
// reached the server (dial or DNS)
var errRequestNotSent = errors.New("request not sent")

// do sends a request, retrying transient failures. headers is applied to every
// attempt. A non-nil body is JSON encoded. POST is treated as non-idempotent.
func (c *apiClient) do(ctx context.Context, method, rawURL string, headers http.Header, body any) (*apiResponse, error) {
	return c.send(ctx, method, rawURL, headers, body, idempotentMethod(method))
}

// doIdempotent is do for POST endpoints whose effect is absolute, so a repeat
// cannot apply twice
func (c *apiClient) doIdempotent(ctx context.Context, method, rawURL string, headers http.Header, body any) (*apiResponse, error) {
	return c.send(ctx, method, rawURL, headers, body, true)
}

func (c *apiClient) send(ctx context.Context, method, rawURL string, headers http.Header, body any, idempotent bool) (*apiResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", c.platform, err)
		}
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, err := c.attempt(ctx, method, rawURL, path, headers, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !c.retryable(err, idempotent) || attempt == c.retry.MaxAttempts {
			break
		}

		delay := c.retry.backoff(attempt)
		if ra := retryAfter(resp); ra > 0 {
			delay = min(ra, c.retry.MaxDelay)
		}
		c.logger.Warn("Retrying platform request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if c.observer != nil {
			c.observer.ObserveRetry(c.platform, method)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// attempt performs a single HTTP exchange. On an HTTP error it returns both the
// response (for Retry-After) and a *RemoteAPIError.
func (c *apiClient) attempt(ctx context.Context, method, rawURL, path string, headers http.Header, payload []byte) (*apiResponse, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		if c.observer != nil {
			c.observer.ObserveRateLimitWait(c.platform, time.Since(waitStart))
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.platform, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.observe(method, 0, time.Since(start))
		if notSent(err) {
			return nil, fmt.Errorf("%w: %w: %s %s: %v", integration.ErrTransientNetwork, errRequestNotSent, method, path, err)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", integration.ErrTransientNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.observe(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: failed to read response: %v", integration.ErrTransientNetwork, method, path, err)
	}

	out := &apiResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	if resp.StatusCode >= 400 {
		return out, &integration.RemoteAPIError{
			Platform:   c.platform,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBodySize),
		}
	}
	return out, nil
}

func (c *apiClient) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(c.platform, method, status, d)
	}
}

// retryable decides whether err may be retried. A non-idempotent request is
// retried only when the server cannot have applied it: a 429 rejection or a
// failure before the connection was made.
func (c *apiClient) retryable(err error, idempotent bool) bool {
	if !idempotent {
		return errors.Is(err, errRequestNotSent) || errors.Is(err, integration.ErrRateLimited)
	}
	if errors.Is(err, integration.ErrTransientNetwork) {
		return true
	}
	var apiErr *integration.RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func idempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// notSent reports whether a transport error happened before any byte of the
// request reached the server
func notSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// decodeJSON unmarshals a response body, classifying failures as malformed data
func decodeJSON(platform integration.PlatformCode, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: failed to parse response: %v", integration.ErrMalformedData, platform, err)
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds
func retryAfter(resp *apiResponse) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

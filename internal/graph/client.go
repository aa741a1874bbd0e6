package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the Graph API v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Retry and backoff constants.
const (
	maxRetries       = 5
	baseBackoff      = 1 * time.Second
	maxBackoff       = 60 * time.Second
	backoffFactor    = 2.0
	jitterFraction   = 0.25
	defaultUserAgent = "sharepoint-go/0.1"
)

// Credentials supplies bearer headers for authenticated calls. Defined at the
// consumer; internal/auth provides the real implementation.
//
// Invalidate drops any cached credential so the next Headers call fetches a
// fresh one. The client calls it at most once per request, on a 401.
type Credentials interface {
	Headers(ctx context.Context) (map[string]string, error)
	Invalidate()
}

// Site identifies the document library every request is scoped to.
type Site struct {
	SiteID  string
	DriveID string
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the $top value for children listings.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// Client is an HTTP client for one SharePoint site drive. It maps logical
// paths to request URLs, authenticates, retries transient failures on
// idempotent calls, and classifies errors.
type Client struct {
	baseURL    string
	site       Site
	httpClient *http.Client
	creds      Credentials
	logger     *slog.Logger
	pageSize   int
	userAgent  string

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Graph client scoped to site.
// baseURL is typically DefaultBaseURL.
func NewClient(
	baseURL string, site Site, httpClient *http.Client, creds Credentials, logger *slog.Logger, opts ...Option,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		site:       site,
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
		pageSize:   listChildrenPageSize,
		userAgent:  defaultUserAgent,
		sleepFunc:  timeSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Site returns the site and drive the client is bound to.
func (c *Client) Site() Site {
	return c.site
}

// request describes one logical call. The body is held as bytes so it can be
// replayed on retry.
type request struct {
	method      string
	url         string
	label       string // logged in place of url; pre-authenticated URLs must never be logged
	body        []byte
	contentType string
	authorize   bool
	retry       bool // retry transient statuses and network errors
}

// Do executes an authenticated request against the Graph API.
// The path is appended to the client's base URL. For non-nil bodies,
// Content-Type is set to application/json. GET, HEAD and DELETE are retried
// on transient failures; mutations are not. The caller closes the response
// body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	var payload []byte

	if body != nil {
		var err error

		payload, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("graph: reading request body: %w", err)
		}
	}

	r := request{
		method:    method,
		url:       c.baseURL + path,
		label:     path,
		body:      payload,
		authorize: true,
		retry:     isIdempotent(method),
	}

	if body != nil {
		r.contentType = "application/json"
	}

	return c.send(ctx, r)
}

// send runs the request loop: one bounded credential refresh on 401, and
// capped exponential backoff for transient failures when r.retry is set.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	var (
		attempt   int
		refreshed bool
	)

	for {
		reqID := uuid.NewString()

		resp, err := c.doOnce(ctx, r, reqID)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("graph: request canceled: %w", ctx.Err())
			}

			if r.retry && attempt < maxRetries && !isCredentialError(err) {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", r.method),
					slog.String("path", r.label),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("graph: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, err
		}

		// 2xx: success.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", r.method),
				slog.String("path", r.label),
				slog.Int("status", resp.StatusCode),
				slog.String("client_request_id", reqID),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if resp.StatusCode == http.StatusUnauthorized && r.authorize && !refreshed {
			c.logger.Info("refreshing credentials after 401",
				slog.String("method", r.method),
				slog.String("path", r.label),
			)

			c.creds.Invalidate()
			refreshed = true

			continue
		}

		if r.retry && isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", r.method),
				slog.String("path", r.label),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("graph: request canceled: %w", err)
			}

			attempt++

			continue
		}

		graphErr := &GraphError{
			StatusCode: resp.StatusCode,
			RequestID:  requestIDFrom(resp, reqID),
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", r.method),
				slog.String("path", r.label),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, graphErr
	}
}

// credentialError marks a failure to obtain headers; it is never retried by
// the transport loop.
type credentialError struct {
	err error
}

func (e *credentialError) Error() string { return "graph: obtaining credentials: " + e.err.Error() }
func (e *credentialError) Unwrap() error { return e.err }

func isCredentialError(err error) bool {
	_, ok := err.(*credentialError) //nolint:errorlint // only ever returned unwrapped by doOnce

	return ok
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, r request, reqID string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating request: %w", err)
	}

	if r.authorize {
		headers, hdrErr := c.creds.Headers(ctx)
		if hdrErr != nil {
			return nil, &credentialError{err: hdrErr}
		}

		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	// Explicit content type wins over whatever the credential headers carry.
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	} else if r.body == nil {
		req.Header.Del("Content-Type")
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("client-request-id", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, r.method, r.label, err)
	}

	return resp, nil
}

// requestIDFrom prefers the server's request-id, falling back to ours.
func requestIDFrom(resp *http.Response, clientID string) string {
	if id := resp.Header.Get("request-id"); id != "" {
		return id
	}

	return clientID
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	default:
		return false
	}
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSiteID  = "contoso.sharepoint.com,site-1"
	testDriveID = "drive-1"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// rotatingCreds hands out tokens in order, advancing on each Invalidate.
// The last token sticks once reached.
type rotatingCreds struct {
	mu            sync.Mutex
	tokens        []string
	idx           int
	invalidations int
	err           error
}

func newCreds(tokens ...string) *rotatingCreds {
	if len(tokens) == 0 {
		tokens = []string{"test-token"}
	}

	return &rotatingCreds{tokens: tokens}
}

func (c *rotatingCreds) Headers(_ context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}

	return map[string]string{
		"Authorization": "Bearer " + c.tokens[c.idx],
		"Content-Type":  "application/json",
	}, nil
}

func (c *rotatingCreds) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidations++
	if c.idx < len(c.tokens)-1 {
		c.idx++
	}
}

func (c *rotatingCreds) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.invalidations
}

// newTestClient creates a Client pointing at the given httptest server
// with instant retry sleeps for fast tests.
func newTestClient(t *testing.T, url string, creds Credentials) *Client {
	t.Helper()

	if creds == nil {
		creds = newCreds()
	}

	c := NewClient(url, Site{SiteID: testSiteID, DriveID: testDriveID}, http.DefaultClient, creds, slog.Default())
	c.sleepFunc = noopSleep

	return c
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Content-Type"), "bodiless request must not claim a content type")

		_, err := uuid.Parse(r.Header.Get("client-request-id"))
		assert.NoError(t, err)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	resp, err := client.Do(context.Background(), http.MethodGet, "/me", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"value":"ok"}`, string(body))
}

func TestDo_JSONBodySetsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body))

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	resp, err := client.Do(context.Background(), http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"gone", http.StatusGone, ErrGone},
		{"throttled", http.StatusTooManyRequests, ErrThrottled},
		{"locked", http.StatusLocked, ErrLocked},
		{"server error", http.StatusInternalServerError, ErrServerError},
		{"teapot", http.StatusTeapot, ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("request-id", "req-123")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":"x"}}`))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, nil)
			_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, IsRemote(err))
			assert.Equal(t, tt.status, StatusCode(err))

			var ge *GraphError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, "req-123", ge.RequestID)
			assert.Contains(t, ge.Message, `"code":"x"`)
		})
	}
}

func TestDo_RefreshesCredentialsOnceOn401(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	creds := newCreds("stale", "fresh")
	client := newTestClient(t, srv.URL, creds)

	resp, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, creds.Invalidations())
}

func TestDo_SecondUnauthorizedSurfaces(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := newCreds("a", "b", "c")
	client := newTestClient(t, srv.URL, creds)

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, int32(2), calls.Load(), "exactly one refreshed retry")
	assert.Equal(t, 1, creds.Invalidations())
}

func TestDo_UnauthorizedMutationStillRefreshesOnce(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"name":"b"}`, string(body), "body must be replayed intact")

		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, newCreds("stale", "fresh"))

	resp, err := client.Do(context.Background(), http.MethodPatch, "/x", strings.NewReader(`{"name":"b"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_RetriesTransientGET(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	resp, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestDo_DoesNotRetryMutations(t *testing.T) {
	for _, method := range []string{http.MethodPatch, http.MethodPut, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			var calls atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, nil)

			_, err := client.Do(context.Background(), method, "/x", strings.NewReader(`{}`))
			require.ErrorIs(t, err, ErrServerError)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestDo_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	var slept []time.Duration
	client.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)

		return nil
	}

	resp, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []time.Duration{7 * time.Second}, slept)
}

func TestDo_CredentialErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokenErr := errors.New("tenant disabled")
	creds := newCreds()
	creds.err = tokenErr

	client := newTestClient(t, srv.URL, creds)

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, tokenErr)
	assert.False(t, IsRemote(err))
	assert.Zero(t, calls.Load())
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := newTestClient(t, url, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsRemote(err))
	assert.Zero(t, StatusCode(err))
}

func TestDo_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	client.sleepFunc = func(ctx context.Context, _ time.Duration) error {
		cancel()

		return ctx.Err()
	}

	_, err := client.Do(ctx, http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDo_FreshRequestIDPerAttempt(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("client-request-id"))
		n := len(ids)
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	resp, err := client.Do(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestWithOptions(t *testing.T) {
	c := NewClient(DefaultBaseURL+"/", Site{}, nil, newCreds(), nil, WithPageSize(5), WithUserAgent("custom/1"))

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, 5, c.pageSize)
	assert.Equal(t, "custom/1", c.userAgent)

	c = NewClient(DefaultBaseURL, Site{}, nil, newCreds(), nil, WithPageSize(0), WithUserAgent(""))
	assert.Equal(t, listChildrenPageSize, c.pageSize)
	assert.Equal(t, defaultUserAgent, c.userAgent)
}

func TestCalcBackoff_Bounded(t *testing.T) {
	c := NewClient(DefaultBaseURL, Site{}, nil, newCreds(), nil)

	for attempt := range 10 {
		d := c.calcBackoff(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, time.Duration(float64(maxBackoff)*(1+jitterFraction)))
	}
}

func TestIsRetryable(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 509} {
		assert.True(t, isRetryable(code), code)
	}

	for _, code := range []int{400, 401, 403, 404, 409, 423, 501} {
		assert.False(t, isRetryable(code), code)
	}
}

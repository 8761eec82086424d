package arpansa

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `<stations><location><locationName>Sydney</locationName><index>7.5</index><fullTime>2024-01-01T12:00:00</fullTime></location></stations>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(url string, mutate func(*Options)) *Client {
	opts := Options{
		URL:         url,
		Timeout:     2 * time.Second,
		MaxBytes:    1 << 20,
		MaxFailures: 3,
		OpenTimeout: time.Minute,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewClient(opts, discardLogger(), observability.NewMetricsForTesting())
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/xml/uvvalues.xml", r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept"), "xml")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, feedBody)
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/xml/uvvalues.xml", nil)
	body, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, feedBody, string(body))
}

func TestClient_Fetch_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.Equal(t, srv.URL, fetchErr.URL)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestClient_Fetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(url, nil)
	_, err := c.Fetch(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.StatusCode)
}

func TestClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	_, err := c.Fetch(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, feedBody)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL, nil)
	_, err := c.Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_Fetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	c := testClient(srv.URL, func(o *Options) { o.MaxBytes = 16 })
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBodyTooLarge)
}

func TestClient_Fetch_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, func(o *Options) { o.MaxFailures = 2 })

	for range 2 {
		_, err := c.Fetch(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())

	// Breaker is now open: the upstream must not be contacted.
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())

	var fetchErr *domain.FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestReadLimited(t *testing.T) {
	body, err := readLimited(strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))

	_, err = readLimited(strings.NewReader("abcd"), 3)
	assert.ErrorIs(t, err, errBodyTooLarge)

	body, err = readLimited(strings.NewReader("unbounded"), 0)
	require.NoError(t, err)
	assert.Equal(t, "unbounded", string(body))
}

// Package arpansa retrieves the UV index feed over HTTP.
package arpansa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/sony/gobreaker"
)

// DefaultURL is ARPANSA's public UV index feed.
const DefaultURL = "https://uvdata.arpansa.gov.au/xml/uvvalues.xml"

var (
	errBodyTooLarge = errors.New("response body exceeds size limit")
	errCircuitOpen  = errors.New("circuit breaker open")
)

// Options configures a Client.
type Options struct {
	URL         string
	Timeout     time.Duration
	MaxBytes    int64
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenTimeout time.Duration // how long the breaker stays open before probing
	UserAgent   string
	HTTPClient  *http.Client // optional; Timeout is ignored when set
}

// Client fetches the raw feed document. It implements pipeline.Fetcher.
type Client struct {
	url       string
	maxBytes  int64
	userAgent string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewClient creates a feed client guarded by a circuit breaker so a failing
// upstream is not hit on every refresh tick.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "uv-feed-service/1.0"
	}

	c := &Client{
		url:       opts.URL,
		maxBytes:  opts.MaxBytes,
		userAgent: userAgent,
		http:      httpClient,
		metrics:   metrics,
		logger:    logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "arpansa-feed",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("feed circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.Set(float64(to))
		},
	})
	return c
}

// URL returns the feed location this client reads.
func (c *Client) URL() string { return c.url }

// Fetch performs one GET of the feed and returns the body bytes. Failures are
// reported as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx)
	})
	c.metrics.FeedFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.FetchError{URL: c.url, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &domain.FetchError{URL: c.url, Err: err}
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, &domain.FetchError{URL: c.url, Err: fmt.Errorf("unexpected result type %T from circuit breaker", result)}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: c.url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", snippet),
		}
	}

	body, err := readLimited(resp.Body, c.maxBytes)
	if err != nil {
		return nil, &domain.FetchError{URL: c.url, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("feed fetched", "url", c.url, "bytes", len(body))
	return body, nil
}

// readLimited reads the whole body, failing if it is larger than limit bytes.
// A non-positive limit disables the check.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

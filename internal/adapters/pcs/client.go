package pcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/sborms/cyclingsimilarity.com/pkg/logger"
	"github.com/sborms/cyclingsimilarity.com/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultBaseURL          = "https://www.procyclingstats.com"
	defaultTimeout          = 30 * time.Second
	defaultRequestsPerSec   = 4
	defaultFailureThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
	maxPageBytes            = 8 << 20
	userAgent               = "cyclingsimilarity/1.0 (+https://cyclingsimilarity.com)"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables
// limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithBreaker configures the circuit breaker that stops hammering the site
// after consecutive failures.
func WithBreaker(failureThreshold uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		c.failureThreshold = failureThreshold
		c.breakerTimeout = openTimeout
	}
}

// WithLogger sets the logger used for acquisition gaps.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client fetches and parses procyclingstats pages.
type Client struct {
	baseURL          string
	http             *http.Client
	limiter          *rate.Limiter
	breaker          *gobreaker.CircuitBreaker[[]byte]
	failureThreshold uint32
	breakerTimeout   time.Duration
	logger           logger.Logger
}

var _ Source = (*Client)(nil)

// New creates a client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{Timeout: defaultTimeout},
		limiter:          rate.NewLimiter(rate.Limit(defaultRequestsPerSec), 1),
		failureThreshold: defaultFailureThreshold,
		breakerTimeout:   defaultBreakerTimeout,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	threshold := c.failureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "pcs",
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return c
}

// BreakerState reports the circuit breaker state for monitoring.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, path)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	})
}

func (c *Client) document(ctx context.Context, kind, path string) (*goquery.Document, bool) {
	start := time.Now()
	body, err := c.get(ctx, path)
	var doc *goquery.Document
	if err == nil {
		doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrParse, err)
		}
	}
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.gap(ctx, kind, path, err)
		metrics.RecordAcquisitionFetch(kind, gapReason(err), latency)
		return nil, false
	}
	metrics.RecordAcquisitionFetch(kind, "ok", latency)
	return doc, true
}

func (c *Client) gap(ctx context.Context, kind, path string, err error) {
	metrics.RecordAcquisitionGap(kind)
	c.logger.Warn(ctx, "acquisition gap, skipping",
		logger.String("kind", kind),
		logger.String("slug", path),
		logger.String("reason", gapReason(err)),
		logger.Error(err))
}

// FetchRaceEvent implements Source.
func (c *Client) FetchRaceEvent(ctx context.Context, slug string) (RaceMetadata, bool) {
	slug = strings.Trim(slug, "/")
	doc, ok := c.document(ctx, "race", slug+"/overview")
	if !ok {
		return RaceMetadata{}, false
	}
	meta, err := parseRaceOverview(doc, slug)
	if err != nil {
		c.gap(ctx, "race", slug, err)
		return RaceMetadata{}, false
	}
	return meta, true
}

// FetchStageOrGCResult implements Source.
func (c *Client) FetchStageOrGCResult(ctx context.Context, slug string) ([]Placing, bool) {
	doc, ok := c.document(ctx, "result", slug)
	if !ok {
		return nil, false
	}
	placings, err := parseResults(doc, strings.HasSuffix(slug, "/"))
	if err != nil {
		c.gap(ctx, "result", slug, err)
		return nil, false
	}
	return placings, true
}

// FetchRiderProfile implements Source.
func (c *Client) FetchRiderProfile(ctx context.Context, slug string) (Profile, bool) {
	path := "rider/" + strings.Trim(slug, "/")
	doc, ok := c.document(ctx, "rider_profile", path)
	if !ok {
		return Profile{}, false
	}
	p, err := parseRiderProfile(doc)
	if err != nil {
		c.gap(ctx, "rider_profile", path, err)
		return Profile{}, false
	}
	return p, true
}

// Package flightradar reads the FlightRadar24 live feed and per-flight
// detail records.
package flightradar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/navid-fn/skywatch/internal/faulttolerance"
)

const (
	DefaultFeedURL        = "https://data-cloud.flightradar24.com/zones/fcgi/feed.js"
	DefaultDetailURL      = "https://data-live.flightradar24.com/clickhandler/"
	DefaultDetailInterval = 250 * time.Millisecond
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	requestTimeout        = 15 * time.Second
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the feed and detail endpoints. Detail fetches are paced by
// a limiter and guarded by a circuit breaker; both are shared by every
// goroutine using the client.
type Client struct {
	feedURL    string
	detailURL  string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *faulttolerance.CircuitBreaker
	logger     logrus.FieldLogger
}

type Option func(*Client)

func WithFeedURL(u string) Option   { return func(c *Client) { c.feedURL = u } }
func WithDetailURL(u string) Option { return func(c *Client) { c.detailURL = u } }
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDetailInterval sets the minimum spacing between detail fetches. Zero
// disables pacing.
func WithDetailInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithBreaker(cb *faulttolerance.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client with production endpoints unless overridden.
func New(opts ...Option) *Client {
	c := &Client{
		feedURL:    DefaultFeedURL,
		detailURL:  DefaultDetailURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultDetailInterval), 1),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("driver", "flightradar")
	if c.breaker == nil {
		c.breaker = faulttolerance.NewCircuitBreaker(faulttolerance.CircuitBreakerConfig{
			MaxFailures: 5,
			Timeout:     time.Minute,
			Name:        "flightradar-detail",
		}, c.logger)
	}
	return c
}

// Breaker returns the circuit breaker guarding detail fetches.
func (c *Client) Breaker() *faulttolerance.CircuitBreaker {
	return c.breaker
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

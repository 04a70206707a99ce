// Package upstream is the shared HTTP client for market data providers. Every
// call is paced by a token bucket, guarded by a circuit breaker and retried
// with the shared backoff policy.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/metrics"
	"github.com/ndewijer/portfolio-valuation/internal/retry"
)

// userAgent mimics a browser; some providers reject default Go clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Options configures a Client.
type Options struct {
	Name              string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	Retry             retry.Policy
	Metrics           *metrics.Registry
	HTTPClient        *http.Client // optional, mainly for tests
}

// Client performs GET requests against one provider.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retry   retry.Policy
	metrics *metrics.Registry
}

// New builds a Client from opts. Zero pacing values disable the limiter.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A permanent error (404, bad payload) says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || retry.IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("upstream circuit breaker state change")
		},
	}

	return &Client{
		name:    opts.Name,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   opts.Retry,
		metrics: opts.Metrics,
	}
}

// Name returns the provider name used in logs and metrics.
func (c *Client) Name() string {
	return c.name
}

// GetJSON fetches url and decodes the JSON body into out.
// Client errors other than 429 are not retried.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		data, err := c.breaker.Execute(func() (interface{}, error) {
			return c.get(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return retry.Permanent(err)
			}
			log.Debug().Err(err).Str("provider", c.name).Str("url", url).Msg("upstream request failed")
			return err
		}
		body = data.([]byte)
		return nil
	})
	if err != nil {
		c.metrics.UpstreamFailure(c.name)
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.UpstreamFailure(c.name)
		return fmt.Errorf("%s returned malformed JSON: %w", c.name, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("%w: %d", apperrors.ErrUpstreamStatus, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(statusErr)
		}
		return nil, statusErr
	}
	return data, nil
}

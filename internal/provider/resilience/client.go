package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when all attempts have been
	// exhausted without success.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RateLimitError represents a provider-signaled overload (HTTP 429).
// Retried with exponential backoff.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return "rate limited: " + http.StatusText(e.StatusCode)
}

// PermissionError represents a provider-signaled permanent failure
// (HTTP 401/403). Aborts the retry loop immediately: it indicates
// misconfigured credentials, not transient unavailability.
type PermissionError struct {
	StatusCode int
}

func (e *PermissionError) Error() string {
	return "permission denied: " + http.StatusText(e.StatusCode)
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming.
	Name string

	// AttemptTimeout bounds each individual HTTP attempt. A timed-out
	// attempt is retried immediately (a hung connection, not overload).
	// Default: 10 seconds.
	AttemptTimeout time.Duration

	// MaxAttempts is the total number of attempts, first try included.
	// Default: 3.
	MaxAttempts int

	// BackoffInitialInterval is the delay before the first backoff
	// retry; it doubles on each subsequent one. Applied to rate-limit
	// and 5xx failures only. Default: 2 seconds.
	BackoffInitialInterval time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultClientConfig returns sensible defaults for the resilient client.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:                   name,
		AttemptTimeout:         10 * time.Second,
		MaxAttempts:            3,
		BackoffInitialInterval: 2 * time.Second,
		CircuitBreaker:         &cbConfig,
	}
}

// Client is a resilient HTTP client. Failures are classified per
// attempt: timeouts retry immediately, rate limits and 5xx retry after
// exponential backoff, permission errors abort. Retries are sequential
// and bounded so every call terminates.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffInitialInterval == 0 {
		cfg.BackoffInitialInterval = 2 * time.Second
	}

	var cb *gobreaker.CircuitBreaker[*http.Response]
	if cfg.CircuitBreaker != nil {
		cb = NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker) //nolint:bodyclose // type param, not response
	} else {
		defaultCB := DefaultCircuitBreakerConfig(cfg.Name)
		cb = NewCircuitBreaker[*http.Response](defaultCB) //nolint:bodyclose // type param, not response
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.AttemptTimeout,
		},
		circuitBreaker: cb,
		config:         cfg,
	}
}

// Do executes req with bounded retries and circuit breaker protection.
// Returns immediately with ErrCircuitOpen if the circuit breaker is
// open, or with a PermissionError on 401/403.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes an HTTP request with the given context.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Backoff schedule for overload-class failures. Timeout-class
	// failures bypass it entirely.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.BackoffInitialInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	var lastErr error

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}

		var permErr *PermissionError
		if errors.As(err, &permErr) {
			return nil, err
		}

		lastErr = err

		if attempt == c.config.MaxAttempts-1 {
			break
		}

		// Timeouts signal a hung connection rather than overload: retry
		// immediately. Everything else waits out the backoff schedule.
		if !isTimeout(err) {
			if waitErr := sleepContext(ctx, bo.NextBackOff()); waitErr != nil {
				return nil, waitErr
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

// attempt executes a single request through the circuit breaker and
// classifies the outcome.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller is responsible for closing
		reqClone := req.Clone(ctx)
		resp, err := c.httpClient.Do(reqClone)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, &RateLimitError{StatusCode: resp.StatusCode}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return nil, &PermissionError{StatusCode: resp.StatusCode}
		case resp.StatusCode >= 500:
			resp.Body.Close()
			return nil, &ServerError{StatusCode: resp.StatusCode}
		}

		return resp, nil
	})
}

// isTimeout reports whether err is a per-attempt timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}

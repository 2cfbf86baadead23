// Package fetch retrieves remote dataset sources (vector CSVs, slope grids)
// with retry and circuit breaker protection. Each mirror gets its own client
// so a flapping host does not block the others.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrUnavailable is returned when the source's circuit breaker is open.
	ErrUnavailable = errors.New("source circuit breaker is open")

	// ErrTooLarge is returned when a source body exceeds the size limit.
	ErrTooLarge = errors.New("source exceeds size limit")
)

// StatusError is a non-200 response from a source. Only 5xx responses are
// retried; anything else fails the fetch immediately.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching source", e.StatusCode)
}

// Config holds configuration for a source client.
type Config struct {
	// Name identifies the source for circuit breaker naming.
	Name string

	// Timeout is the per-request timeout. Default: 30 seconds.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts. Default: 3.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval. Default: 250ms.
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval. Default: 5 seconds.
	MaxInterval time.Duration

	// MaxBytes caps the fetched body size. Default: 256 MiB.
	MaxBytes int64

	// BreakerTimeout is the open-state duration before the breaker probes
	// again. Default: 60 seconds.
	BreakerTimeout time.Duration
}

// Client fetches one source with exponential backoff and a circuit breaker.
// It tracks its own health for the ops surface.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	cfg        Config

	mu          sync.Mutex
	lastSuccess *time.Time
	lastFailure *time.Time
	lastError   string
}

// NewClient creates a source client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 250 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 256 << 20
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		cfg:        cfg,
	}
}

// Fetch downloads the source body. Transient failures (network errors, 5xx)
// are retried with exponential backoff; an open breaker, a 4xx or an
// oversized body fail immediately.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0 // retries bounded by WithMaxRetries

	var body []byte
	operation := func() error {
		data, err := c.breaker.Execute(func() ([]byte, error) {
			return c.download(ctx, url)
		})
		if err != nil {
			c.recordFailure(err)
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrUnavailable)
			}
			if errors.Is(err, ErrTooLarge) {
				return backoff.Permanent(err)
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		c.recordSuccess()
		body = data
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.cfg.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.lastSuccess = &now
}

func (c *Client) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.lastFailure = &now
	c.lastError = err.Error()
}

// Health is a point-in-time snapshot of a source client.
type Health struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the breaker is closed.
func (h Health) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Health returns the client's current health snapshot.
func (c *Client) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Health{
		Name:          c.cfg.Name,
		CircuitState:  c.breaker.State(),
		Counts:        c.breaker.Counts(),
		LastSuccessAt: c.lastSuccess,
		LastFailureAt: c.lastFailure,
		LastError:     c.lastError,
	}
}

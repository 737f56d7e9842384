package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Backoff controls per-request retry behaviour inside an adapter. This is
// HTTP-level resilience (rate limits, 5xx); whole-cycle retries belong to
// the Ingestion Orchestrator.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff returns the adapter-level retry defaults.
func DefaultBackoff() Backoff {
	return Backoff{MaxRetries: 3, InitialInterval: 500 * time.Millisecond, MaxInterval: 10 * time.Second}
}

func (b Backoff) interval(attempt int) time.Duration {
	interval := time.Duration(float64(b.InitialInterval) * math.Pow(2, float64(attempt)))
	if b.MaxInterval > 0 && interval > b.MaxInterval {
		interval = b.MaxInterval
	}
	return interval
}

// NewBreaker builds a circuit breaker for an upstream source. After several
// consecutive failures the breaker opens and fetches fail fast until the
// cool-down elapses.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Transport executes HTTP requests with retries, exponential backoff, and a
// circuit breaker, classifying failures into the adapter error taxonomy.
type Transport struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	backoff Backoff
}

// NewTransport constructs a Transport.
func NewTransport(client *http.Client, breaker *gobreaker.CircuitBreaker, backoff Backoff) *Transport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transport{client: client, breaker: breaker, backoff: backoff}
}

// GetJSON fetches a URL and returns the response body. Retries cover
// network errors, 429 and 5xx; 401/403 fail immediately as auth errors.
func (t *Transport) GetJSON(ctx context.Context, op, url string) ([]byte, error) {
	var body []byte
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, NewError(ErrNetwork, op, err)
		}

		result, err := t.breaker.Execute(func() (any, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, NewError(ErrMalformedResponse, op, err)
			}
			resp, err := t.client.Do(req)
			if err != nil {
				return nil, NewError(ErrNetwork, op, err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
				return nil, NewError(ErrAuth, op, fmt.Errorf("status %d", resp.StatusCode))
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, NewError(ErrRateLimited, op, fmt.Errorf("status %d", resp.StatusCode))
			case resp.StatusCode >= 500:
				return nil, NewError(ErrNetwork, op, fmt.Errorf("status %d", resp.StatusCode))
			case resp.StatusCode != http.StatusOK:
				return nil, NewError(ErrMalformedResponse, op, fmt.Errorf("status %d", resp.StatusCode))
			}

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, NewError(ErrNetwork, op, err)
			}
			return data, nil
		})
		if err == nil {
			body = result.([]byte)
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewError(ErrNetwork, op, err)
		}
		if !retryable(err) || attempt >= t.backoff.MaxRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, NewError(ErrNetwork, op, ctx.Err())
		case <-time.After(t.backoff.interval(attempt)):
		}
		attempt++
	}
}

func retryable(err error) bool {
	switch KindOf(err) {
	case ErrNetwork, ErrRateLimited:
		return true
	default:
		return false
	}
}

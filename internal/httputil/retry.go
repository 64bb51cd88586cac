// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the search and full-text
// clients of the backend.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 and 503 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// MaxRetryAfter caps a server-provided Retry-After delay.
var MaxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// RetryPolicy retries rate-limited and temporarily unavailable requests. The zero value retries five
// times starting at RetryBaseDelay and logs nothing.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Log        *zap.Logger
}

// retryable reports whether a response status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// Do executes an HTTP request and retries on HTTP 429 (Too Many Requests)
// and 503 (Service Unavailable).
// A Retry-After header in seconds is honoured; otherwise the delay starts at
// the base delay and doubles each attempt.
//
// On each retryable response the body is drained and closed before sleeping. If
// the context is cancelled during a backoff wait Do returns ctx.Err(). After
// exhausting retries the last response is returned so the caller can
// inspect it.
func (p RetryPolicy) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := p.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries, return the last response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		if ra, ok := RetryAfter(resp.Header); ok {
			backoff = ra
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Debug("retryable response, backing off",
			zap.String("host", req.URL.Host),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// RetryAfter parses a Retry-After header given in whole seconds. HTTP-date
// values are not supported.
func RetryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d, true
}

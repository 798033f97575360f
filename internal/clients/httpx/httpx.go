// Package httpx holds the retry loop shared by the provider HTTP clients.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"intakeflow/internal/pkg/logger"
)

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, body)
}

type Policy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseBackoff: time.Second, MaxBackoff: 10 * time.Second}
}

// Retryable reports whether err is worth another attempt: rate limits,
// server errors and transport timeouts.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// RetryAfter honours a Retry-After seconds header, capped at max.
func RetryAfter(resp *http.Response, fallback, max time.Duration) time.Duration {
	d := fallback
	if resp != nil {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				d = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}

// Do sends the request built by newReq until it succeeds, fails with a
// non-retryable error or runs out of attempts. newReq is called once per
// attempt so request bodies can be rebuilt.
func Do(ctx context.Context, client *http.Client, p Policy, log *logger.Logger, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	backoff := p.BaseBackoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, raw, err := once(ctx, client, newReq)
		if err == nil {
			return raw, nil
		}
		if !Retryable(err) || attempt >= p.MaxRetries {
			return nil, err
		}

		sleep := RetryAfter(resp, backoff, p.MaxBackoff)
		if sleep > 0 {
			sleep += time.Duration(rand.Int64N(int64(sleep)/4 + 1))
		}
		log.Warn("provider request retrying", "attempt", attempt+1, "max_retries", p.MaxRetries, "sleep", sleep.String(), "error", err.Error())

		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
}

func once(ctx context.Context, client *http.Client, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, []byte, error) {
	req, err := newReq(ctx)
	if err != nil {
		return nil, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

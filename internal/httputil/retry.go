// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client shared by every source adapter:
// a descriptive User-Agent, a bounded timeout, optional client-side rate
// limiting, and exponential backoff on transient failures.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay and RetryMaxDelay are the backoff defaults used when a
// RetryPolicy leaves them zero. Tests override them to avoid real sleeps.
var (
	RetryBaseDelay = 1 * time.Second
	RetryMaxDelay  = 16 * time.Second
)

const (
	defaultMaxRetries = 5
	maxErrorBody      = 512
)

// NoRetries as RetryPolicy.MaxRetries makes a single attempt.
const NoRetries = -1

// ErrRetriesExhausted is wrapped into the error returned after the retry
// budget is spent on transient failures.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d from %s: %s", e.Code, e.URL, e.Body)
	}
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Retryable reports whether the status is one the default policy retries.
func (e *StatusError) Retryable() bool { return IsTransientStatus(e.Code) }

// IsTransientStatus reports whether code signals a transient condition:
// 403 and 429 (rate limiting) or any 5xx.
func IsTransientStatus(code int) bool {
	return code == http.StatusForbidden ||
		code == http.StatusTooManyRequests ||
		(code >= 500 && code < 600)
}

// RetryPolicy controls DoWithRetry.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// uses the default (5); NoRetries or any negative value disables them.
	MaxRetries int

	// BaseDelay is the first backoff; it doubles each retry up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Retryable decides which statuses are retried. Nil uses IsTransientStatus.
	Retryable func(status int) bool

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, err error)

	// BeforeAttempt, when set, runs before every attempt, retries included.
	// An error from it ends the request.
	BeforeAttempt func(ctx context.Context) error
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	switch {
	case p.MaxRetries == 0:
		p.MaxRetries = defaultMaxRetries
	case p.MaxRetries < 0:
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = RetryBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = RetryMaxDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsTransientStatus
	}
	return p
}

// backoff returns the delay before retry number attempt (0-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// DoWithRetry executes req and retries transient failures with exponential
// backoff. A response with status below 400 is returned to the caller, who
// must close its body. Non-retryable statuses fail immediately with a
// *StatusError. Network errors are treated as transient. If ctx is
// cancelled, during a request or a backoff wait, ctx.Err() is returned.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy, log zerolog.Logger) (*http.Response, error) {
	policy = policy.withDefaults()

	for attempt := 0; ; attempt++ {
		var lastErr error

		if policy.BeforeAttempt != nil {
			if err := policy.BeforeAttempt(ctx); err != nil {
				return nil, err
			}
		}
		attemptReq, err := attemptRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(attemptReq)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
		case resp.StatusCode < 400:
			return resp, nil
		default:
			se := statusError(resp, req)
			if !policy.Retryable(resp.StatusCode) {
				return nil, se
			}
			lastErr = se
		}

		if attempt >= policy.MaxRetries {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, lastErr)
		}

		delay := policy.backoff(attempt)
		log.Debug().
			Str("url", endpoint(req)).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("transient failure, retrying")
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// attemptRequest clones req for one attempt, rewinding its body when the
// request carries one.
func attemptRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	r := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		r.Body = body
	}
	return r, nil
}

// endpoint renders the request URL without its query string, which may
// carry API keys.
func endpoint(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// statusError drains and closes resp, keeping a short body excerpt.
func statusError(resp *http.Response, req *http.Request) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)
	return &StatusError{
		Code: resp.StatusCode,
		URL:  endpoint(req),
		Body: string(body),
	}
}

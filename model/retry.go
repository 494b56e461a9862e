package model

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/platewise/platewise/logging"
)

// RetryPolicy is a pure value describing how failed model invocations are
// retried. Delay growth is exponential with an absolute cap; the wrapper adds
// symmetric jitter on top so concurrent runs do not retry in lockstep.
type RetryPolicy struct {
	Attempts             int           // total attempts including the first
	InitialDelay         time.Duration // delay before the first retry
	ExpBase              float64       // exponential growth factor
	MaxDelay             time.Duration // upper bound applied before jitter
	Jitter               float64       // fraction in [0,1); delay varies by ±Jitter
	RetryableStatusCodes []int         // provider HTTP statuses worth retrying
}

// DefaultRetryPolicy returns the standard policy: 5 attempts, 1s initial
// delay doubling up to 30s, ±25% jitter, retrying on 429/500/503/504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:             5,
		InitialDelay:         time.Second,
		ExpBase:              2,
		MaxDelay:             30 * time.Second,
		Jitter:               0.25,
		RetryableStatusCodes: []int{429, 500, 503, 504},
	}
}

// Delay returns the base backoff before retry number attempt (0-based):
// min(MaxDelay, InitialDelay * ExpBase^attempt). Jitter is not applied here
// so the schedule stays inspectable.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.ExpBase, float64(attempt)))
	if d > p.MaxDelay || d <= 0 { // overflow guard
		return p.MaxDelay
	}
	return d
}

// JitteredDelay returns Delay(attempt) scaled by a random factor in
// [1-Jitter, 1+Jitter].
func (p RetryPolicy) JitteredDelay(attempt int) time.Duration {
	base := p.Delay(attempt)
	if p.Jitter <= 0 {
		return base
	}
	factor := 1 + (rand.Float64()*2-1)*p.Jitter
	return time.Duration(float64(base) * factor)
}

// ShouldRetry reports whether err is worth another attempt. Only
// InvocationErrors carrying a retryable provider status qualify; validation
// and context errors never do.
func (p RetryPolicy) ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		return false
	}

	for _, code := range p.RetryableStatusCodes {
		if invErr.StatusCode == code {
			return true
		}
	}

	return false
}

// retryingModel decorates a Model with the retry policy. Responses of a
// failed attempt are buffered and discarded so callers never observe partial
// output from an attempt that later failed.
type retryingModel struct {
	inner  Model
	policy RetryPolicy
	logger logging.Logger
}

// WithRetry wraps m so Generate retries transient provider failures per
// policy. The returned model emits only the responses of the successful
// attempt; after the last attempt the final error surfaces unchanged.
func WithRetry(m Model, policy RetryPolicy, logger logging.Logger) Model {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &retryingModel{inner: m, policy: policy, logger: logger}
}

// Info implements Model.
func (r *retryingModel) Info() Info { return r.inner.Info() }

// Generate implements Model with per-attempt buffering.
func (r *retryingModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var lastErr error

		for attempt := 0; attempt < r.policy.Attempts; attempt++ {
			responses, err := r.attempt(ctx, req)
			if err == nil {
				for _, resp := range responses {
					select {
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					case out <- resp:
					}
				}
				return
			}

			lastErr = err

			if attempt == r.policy.Attempts-1 || !r.policy.ShouldRetry(err) {
				break
			}

			delay := r.policy.JitteredDelay(attempt)
			r.logger.Warn("model.retry", "model", r.inner.Info().Name, "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err.Error())

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(delay):
			}
		}

		errCh <- lastErr
	}()

	return out, errCh
}

// attempt drains one inner Generate call, buffering responses until the
// attempt's outcome is known.
func (r *retryingModel) attempt(ctx context.Context, req Request) ([]Response, error) {
	respCh, errCh := r.inner.Generate(ctx, req)

	var buffered []Response
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			buffered = append(buffered, resp)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				// Drain remaining responses so the inner goroutine can exit.
				// respCh is nil when the provider closed it before reporting
				// the error; ranging over nil would block forever.
				if respCh != nil {
					for range respCh {
					}
				}
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return buffered, nil
}

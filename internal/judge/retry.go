package judge

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Default retry configuration
const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 1 * time.Second
	DefaultMaxDelay      = 30 * time.Second
	DefaultJitterPercent = 0.1
)

// RetryConfig controls the exponential backoff applied to transient failures
type RetryConfig struct {
	// MaxAttempts is the number of retries after the first call; 0 disables retries
	MaxAttempts int

	// BaseDelay is the initial backoff; subsequent delays double
	BaseDelay time.Duration

	// MaxDelay caps the backoff
	MaxDelay time.Duration

	// JitterPercent randomizes each delay to avoid thundering herds (0.0-1.0)
	JitterPercent float64
}

// DefaultRetryConfig returns the standard retry bounds
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterPercent: DefaultJitterPercent,
	}
}

var _ Provider = (*RetryingProvider)(nil)

// RetryingProvider wraps a Provider with bounded retry. Only transport and
// rate-limit failures are retried; malformed output is terminal because
// replaying the identical prompt rarely changes the response shape.
type RetryingProvider struct {
	inner  Provider
	config RetryConfig
}

// NewRetryingProvider wraps a provider with retry behavior
func NewRetryingProvider(inner Provider, config RetryConfig) *RetryingProvider {
	return &RetryingProvider{inner: inner, config: config}
}

// Name returns the wrapped provider's name
func (r *RetryingProvider) Name() string { return r.inner.Name() }

// IsAvailable delegates to the wrapped provider
func (r *RetryingProvider) IsAvailable(ctx context.Context) bool {
	return r.inner.IsAvailable(ctx)
}

// Evaluate judges a pair, retrying transient failures with backoff
func (r *RetryingProvider) Evaluate(ctx context.Context, req EvaluateRequest) (*Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxAttempts; attempt++ {
		verdict, err := r.inner.Evaluate(ctx, req)
		if err == nil {
			return verdict, nil
		}

		lastErr = err
		ee, ok := AsEvalError(err)
		if !ok || !ee.Retryable() || attempt == r.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, transportErr("context cancelled during retry", ctx.Err())
		case <-time.After(r.delay(attempt)):
		}
	}
	return nil, lastErr
}

// delay computes the backoff for a given attempt with jitter
func (r *RetryingProvider) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(2, float64(attempt))
	if max := float64(r.config.MaxDelay); d > max {
		d = max
	}
	if r.config.JitterPercent > 0 {
		d += d * r.config.JitterPercent * rand.Float64()
	}
	return time.Duration(d)
}

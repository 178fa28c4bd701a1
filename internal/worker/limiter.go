package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces per-service rate limits shared by every worker in a run.
// Keeping one limiter per external service (judge, embedder) guarantees the
// aggregate call rate stays under quota no matter how many workers run.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter with the given default rate and burst
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the service's rate limit clears or the context ends
func (l *Limiter) Wait(ctx context.Context, service string) error {
	return l.limiterFor(service).Wait(ctx)
}

// WaitWithDelay waits for rate clearance and then pauses for an additional
// fixed delay, used between consecutive judge calls on one evidence item.
func (l *Limiter) WaitWithDelay(ctx context.Context, service string, delay time.Duration) error {
	if err := l.Wait(ctx, service); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// SetServiceRate overrides the rate for one service
func (l *Limiter) SetServiceRate(service string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[service] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) limiterFor(service string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[service]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Double-check after acquiring the write lock
	if lim, ok := l.limiters[service]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[service] = lim
	return lim
}

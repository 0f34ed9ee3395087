package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate-limits requests per host
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host
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

// Wait blocks until a request to rawURL's host is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	return l.forHost(Host(rawURL)).Wait(ctx)
}

// WaitWithDelay waits for the host limit and then for an extra delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, delay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	return limiter
}

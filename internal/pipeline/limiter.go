package pipeline

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket shared by the workers of a pool.
type Limiter struct {
	mu sync.Mutex

	// Configuration
	rate  float64 // tokens per second
	burst float64

	// Token bucket state
	tokens     float64
	lastUpdate time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
}

// LimiterStatus reports current limiter state.
type LimiterStatus struct {
	TokensAvailable int
	RPS             float64
	TotalConsumed   int64
	TotalWaited     time.Duration
}

// NewLimiter creates a limiter allowing rps calls per second with the given
// burst. The bucket starts full. burst below 1 is treated as 1.
func NewLimiter(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:       rps,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()

		if l.tokens >= 1.0 {
			l.tokens--
			l.totalConsumed++
			l.mu.Unlock()
			return nil
		}

		// Calculate wait time for next token
		waitTime := time.Duration((1.0 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		// Wait outside lock
		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			l.mu.Lock()
			l.totalWaited += waitTime
			l.mu.Unlock()
		}
	}
}

// Status returns current limiter status.
func (l *Limiter) Status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return LimiterStatus{
		TokensAvailable: int(l.tokens),
		RPS:             l.rate,
		TotalConsumed:   l.totalConsumed,
		TotalWaited:     l.totalWaited,
	}
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}

// limiterFor derives the pool limiter: rps wins, otherwise one call per delay.
// Returns nil when neither is set.
func limiterFor(rps float64, delay time.Duration) *Limiter {
	if rps <= 0 && delay > 0 {
		rps = 1 / delay.Seconds()
	}
	if rps <= 0 {
		return nil
	}
	return NewLimiter(rps, 1)
}

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket refilled at a fixed rate
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter refilling perSecond tokens each second up to burst
func New(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// NewWithInterval creates a limiter allowing n events per interval
func NewWithInterval(n int, interval time.Duration) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(n)), n),
	}
}

// Allow checks if a request is allowed
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// AllowN checks if n requests are allowed at once
func (l *Limiter) AllowN(n int) bool {
	return l.limiter.AllowN(time.Now(), n)
}

// Wait blocks until a token is available or the context is done
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// WaitN blocks until n tokens are available or the context is done
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	return l.limiter.WaitN(ctx, n)
}

// Package ratelimit throttles listing requests so fast scrolling and deep
// searches stay under provider request-rate limits.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/models"
)

// warnInterval limits how often a long wait is reported.
const warnInterval = 10 * time.Second

// RateLimiter is a token bucket: bursts up to burst requests, then
// refills at ratePerSec.
type RateLimiter struct {
	limiter  *rate.Limiter
	logger   *logging.Logger
	mu       sync.Mutex
	lastWarn time.Time
}

// NewRateLimiter creates a limiter that starts with a full bucket.
func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:  logging.NewLogger("ratelimit", nil),
	}
}

// NewListRateLimiter returns the limiter used for listing calls.
func NewListRateLimiter() *RateLimiter {
	return NewRateLimiter(constants.ListRequestsPerSecond, constants.ListBurst)
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	r := rl.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate limiter cannot satisfy request")
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if delay > 2*time.Second {
		rl.warn(delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Allow consumes a token if one is available without waiting.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

func (rl *RateLimiter) warn(delay time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastWarn) < warnInterval {
		return
	}
	rl.lastWarn = time.Now()
	rl.logger.Warn().Dur("wait", delay).Msg("rate limited, waiting for listing capacity")
}

// Lister waits on a RateLimiter before each page request.
type Lister struct {
	next    storage.Lister
	limiter *RateLimiter
}

// WrapLister throttles next with limiter. A nil limiter uses NewListRateLimiter.
func WrapLister(next storage.Lister, limiter *RateLimiter) *Lister {
	if limiter == nil {
		limiter = NewListRateLimiter()
	}
	return &Lister{next: next, limiter: limiter}
}

// ListPage implements storage.Lister.
func (l *Lister) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}
	return l.next.ListPage(ctx, req)
}

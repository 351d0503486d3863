package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/models"
)

// TestNewRateLimiterStartsFull verifies the bucket starts at full capacity.
func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 10)
	if tokens := rl.Tokens(); tokens < 9.9 {
		t.Errorf("expected ~10 tokens, got %.2f", tokens)
	}
}

// TestAllowConsumesToken verifies burst capacity is enforced.
func TestAllowConsumesToken(t *testing.T) {
	rl := NewRateLimiter(1.0, 5)

	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("Allow() failed on attempt %d", i+1)
		}
	}
	if rl.Allow() {
		t.Error("Allow() should fail when bucket is empty")
	}
}

// TestWaitRefills verifies Wait blocks roughly one refill interval once drained.
func TestWaitRefills(t *testing.T) {
	rl := NewRateLimiter(20.0, 1) // one token every 50ms
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected to wait for refill, returned after %v", elapsed)
	}
}

// TestWaitContextCancelled verifies Wait returns promptly on cancellation.
func TestWaitContextCancelled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1) // 10s per token
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait did not return promptly: %v", elapsed)
	}
}

type countingLister struct {
	calls int32
}

func (c *countingLister) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	atomic.AddInt32(&c.calls, 1)
	return &models.Page{Prefix: req.Prefix}, nil
}

// TestListerDelegates verifies the wrapper forwards requests.
func TestListerDelegates(t *testing.T) {
	next := &countingLister{}
	l := WrapLister(next, NewRateLimiter(100, 10))

	page, err := l.ListPage(context.Background(), storage.ListRequest{Bucket: "b", Prefix: "docs/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Prefix != "docs/" {
		t.Errorf("expected prefix docs/, got %q", page.Prefix)
	}
	if got := atomic.LoadInt32(&next.calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

// TestListerCancelledWhileThrottled verifies a throttled call does not reach the provider.
func TestListerCancelledWhileThrottled(t *testing.T) {
	next := &countingLister{}
	rl := NewRateLimiter(0.1, 1)
	rl.Allow()
	l := WrapLister(next, rl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.ListPage(ctx, storage.ListRequest{Bucket: "b"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := atomic.LoadInt32(&next.calls); got != 0 {
		t.Errorf("expected no provider calls, got %d", got)
	}
}

func TestWrapListerDefaultLimiter(t *testing.T) {
	l := WrapLister(&countingLister{}, nil)
	if l.limiter == nil {
		t.Fatal("expected default limiter")
	}
}

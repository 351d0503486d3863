package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
)

func fastRetry(max int) Config {
	return Config{MaxRetries: max, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func throttled() error {
	return &storage.ProviderError{Op: "ListObjectsV2", Provider: "s3", Kind: storage.ErrThrottled, Err: errors.New("SlowDown")}
}

func TestExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		max       int
		wantCalls int
		wantErr   bool
	}{
		{"first try", nil, 3, 1, false},
		{"throttled twice", []error{throttled(), throttled()}, 4, 3, false},
		{"reset then ok", []error{errors.New("read: connection reset by peer")}, 3, 2, false},
		{"not found is final", []error{&storage.ProviderError{Kind: storage.ErrNotFound, Err: errors.New("NoSuchKey")}}, 5, 1, true},
		{"bad request is final", []error{errors.New("400 bad request")}, 5, 1, true},
		{"gives up", []error{errors.New("503"), errors.New("503"), errors.New("503"), errors.New("503")}, 3, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := ExecuteWithRetry(context.Background(), fastRetry(tt.max), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecuteWithRetry_GiveUpWrapsLastError(t *testing.T) {
	last := throttled()
	err := ExecuteWithRetry(context.Background(), fastRetry(2), func() error { return last })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.ErrorIs(t, err, storage.ErrThrottled)
}

func TestExecuteWithRetry_OnRetry(t *testing.T) {
	cfg := fastRetry(3)
	var attempts []int
	var kinds []ErrorType
	cfg.OnRetry = func(attempt int, _ error, errType ErrorType) {
		attempts = append(attempts, attempt)
		kinds = append(kinds, errType)
	}

	calls := 0
	require.NoError(t, ExecuteWithRetry(context.Background(), cfg, func() error {
		calls++
		switch calls {
		case 1:
			return throttled()
		case 2:
			return errors.New("i/o timeout")
		}
		return nil
	}))
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []ErrorType{ErrorTypeRetryable, ErrorTypeNetwork}, kinds)
}

func TestExecuteWithRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxRetries: 5, InitialDelay: 5 * time.Second, MaxDelay: 30 * time.Second}

	// The first backoff is at most 10s; the cancel lands inside it or before
	// the second attempt.
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	calls := 0
	err := ExecuteWithRetry(ctx, cfg, func() error {
		calls++
		return errors.New("connection reset")
	})
	require.Error(t, err)
	assert.GreaterOrEqual(t, calls, 1)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecuteWithRetry_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := ExecuteWithRetry(ctx, fastRetry(3), func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeSuccess},
		{"cancelled", context.Canceled, ErrorTypeFatal},
		{"deadline", context.DeadlineExceeded, ErrorTypeFatal},
		{"no such key", &storage.ProviderError{Kind: storage.ErrNotFound, Err: errors.New("NoSuchKey")}, ErrorTypeFatal},
		{"no such bucket", &storage.ProviderError{Kind: storage.ErrBucketNotFound, Err: errors.New("NoSuchBucket")}, ErrorTypeFatal},
		{"access denied", &storage.ProviderError{Kind: storage.ErrAccessDenied, Err: errors.New("AccessDenied")}, ErrorTypeCredential},
		{"throttled", throttled(), ErrorTypeRetryable},
		{"reset", errors.New("read: connection reset by peer"), ErrorTypeNetwork},
		{"expired token", errors.New("ExpiredToken: the token has expired"), ErrorTypeCredential},
		{"signature", errors.New("SignatureDoesNotMatch"), ErrorTypeCredential},
		{"azure busy", errors.New("ServerBusy"), ErrorTypeRetryable},
		{"s3 slow down", errors.New("SlowDown: reduce your request rate"), ErrorTypeRetryable},
		{"bad request", errors.New("400 bad request"), ErrorTypeFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "network", ErrorTypeNetwork.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}

func TestCalculateBackoff(t *testing.T) {
	assert.Zero(t, CalculateBackoff(0, time.Second, time.Minute))
	assert.Zero(t, CalculateBackoff(3, 0, time.Minute))

	for attempt := 1; attempt < 40; attempt++ {
		d := CalculateBackoff(attempt, 100*time.Millisecond, 2*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 2*time.Second, "attempt %d", attempt)
	}
	assert.Less(t, CalculateBackoff(1, 100*time.Millisecond, time.Minute), 200*time.Millisecond)
}

func TestNewMetadataClient(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		want     int
		hits     int32
	}{
		{"retries 503", []int{http.StatusServiceUnavailable, http.StatusOK}, http.StatusOK, 2},
		{"404 is returned as is", []int{http.StatusNotFound}, http.StatusNotFound, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.statuses[min(int(n), len(tt.statuses))-1])
			}))
			defer srv.Close()

			resp, err := NewMetadataClient(srv.Client(), nil).Get(srv.URL)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, tt.hits, atomic.LoadInt32(&hits))
		})
	}
}

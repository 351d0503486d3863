package http

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
)

// ErrorType classifies a failure for the retry strategy.
type ErrorType int

const (
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential: expired or rejected credentials
	ErrorTypeCredential
	// ErrorTypeNetwork: timeouts, resets, refused connections
	ErrorTypeNetwork
	// ErrorTypeRetryable: throttling and 5xx responses
	ErrorTypeRetryable
	// ErrorTypeFatal: everything else, including 4xx and not-found
	ErrorTypeFatal
)

// String returns a short name for logs.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Config holds retry parameters for ExecuteWithRetry.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// OnRetry is invoked before each retry attempt.
	OnRetry func(attempt int, err error, errorType ErrorType)
}

// DefaultConfig returns the transfer retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
	}
}

// ClassifyError determines the retry class of err. Provider errors are
// classified by kind; anything else falls back to message matching.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeFatal
	case errors.Is(err, storage.ErrInvalidCredentials), errors.Is(err, storage.ErrAccessDenied):
		return ErrorTypeCredential
	case errors.Is(err, storage.ErrThrottled), errors.Is(err, storage.ErrProviderUnavailable):
		return ErrorTypeRetryable
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrBucketNotFound),
		errors.Is(err, storage.ErrInsufficientSpace):
		return ErrorTypeFatal
	case storage.IsNetworkError(err):
		return ErrorTypeNetwork
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, "expiredtoken", "expired token", "invalid token", "403", "unauthorized",
		"authenticationfailed", "authentication failed", "signature not valid", "signaturedoesnotmatch") {
		return ErrorTypeCredential
	}

	if containsAny(errStr, "tls handshake timeout", "connection reset", "i/o timeout", "eof",
		"connection refused", "broken pipe", "timeout") {
		return ErrorTypeNetwork
	}

	if containsAny(errStr, "requesttimeout", "internalerror", "serviceunavailable", "slowdown",
		"throttl", "429", "500", "502", "503", "504", "serverbusy", "server busy", "operationtimeout") {
		return ErrorTypeRetryable
	}

	return ErrorTypeFatal
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CalculateBackoff returns exponential backoff with full jitter:
// random(0, min(maxDelay, initialDelay * 2^attempt)).
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}

	base := maxDelay
	if attempt < 30 {
		if d := time.Duration(1<<uint(attempt)) * initialDelay; d < maxDelay {
			base = d
		}
	}
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// ExecuteWithRetry runs operation up to config.MaxRetries times.
//
// Network and retryable errors back off with jitter, credential errors
// pause one second, fatal errors return immediately. Cancelling ctx aborts
// both the loop and any pending backoff.
func ExecuteWithRetry(ctx context.Context, config Config, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		if errType == ErrorTypeFatal {
			return err
		}
		if attempt == config.MaxRetries-1 {
			break
		}

		wait := time.Second
		if errType != ErrorTypeCredential {
			wait = CalculateBackoff(attempt+1, config.InitialDelay, config.MaxDelay)
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, errType)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries, lastErr)
}

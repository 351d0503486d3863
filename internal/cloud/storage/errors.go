package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrThrottled indicates the request was rate limited.
	ErrThrottled = errors.New("request throttled")

	// ErrInsufficientSpace indicates there isn't enough disk space for a download.
	ErrInsufficientSpace = errors.New("insufficient disk space")
)

// ProviderError wraps a backend error with the operation context.
// Kind is one of the sentinels above when the backend error was recognised.
type ProviderError struct {
	Op       string
	Provider string
	Bucket   string
	Key      string
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	cause := e.Err
	if cause == nil {
		cause = e.Kind
	}
	switch {
	case e.Key != "":
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, cause)
	case e.Bucket != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, cause)
	}
}

// Unwrap exposes both the sentinel kind and the backend error to errors.Is/As.
func (e *ProviderError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsRetryable reports whether retrying the same call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrProviderUnavailable) || IsNetworkError(err)
}

// IsDiskFullError checks if an error is likely caused by running out of disk space.
func IsDiskFullError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInsufficientSpace) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"no space left on device",
		"disk full",
		"out of disk space",
		"not enough space",
		"enospc",
		"disk quota exceeded",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is network-related.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection",
		"timeout",
		"network",
		"eof",
		"broken pipe",
		"tls handshake",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

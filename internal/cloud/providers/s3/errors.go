package s3

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
)

// wrapError converts an SDK error into a *storage.ProviderError whose Kind
// is set when the failure is recognised.
func wrapError(op, bucket, key string, err error) error {
	wrapped := &storage.ProviderError{
		Op:       op,
		Provider: ProviderName,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Kind = storage.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Kind = storage.ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind := kindForCode(apiErr.ErrorCode()); kind != nil {
			wrapped.Kind = kind
			return wrapped
		}
	}

	// HEAD responses carry no body, so only the status code is known.
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 404:
			wrapped.Kind = storage.ErrNotFound
		case 403:
			wrapped.Kind = storage.ErrAccessDenied
		case 429:
			wrapped.Kind = storage.ErrThrottled
		case 500, 502, 503, 504:
			wrapped.Kind = storage.ErrProviderUnavailable
		}
		if wrapped.Kind != nil {
			return wrapped
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchBucket"):
		wrapped.Kind = storage.ErrBucketNotFound
	case strings.Contains(msg, "NoSuchKey"), strings.Contains(msg, "NotFound"):
		wrapped.Kind = storage.ErrNotFound
	case strings.Contains(msg, "AccessDenied"), strings.Contains(msg, "Forbidden"):
		wrapped.Kind = storage.ErrAccessDenied
	case strings.Contains(msg, "InvalidAccessKeyId"), strings.Contains(msg, "SignatureDoesNotMatch"):
		wrapped.Kind = storage.ErrInvalidCredentials
	case strings.Contains(msg, "SlowDown"), strings.Contains(msg, "Throttling"):
		wrapped.Kind = storage.ErrThrottled
	case strings.Contains(msg, "ServiceUnavailable"):
		wrapped.Kind = storage.ErrProviderUnavailable
	}

	return wrapped
}

func kindForCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return storage.ErrNotFound
	case "NoSuchBucket":
		return storage.ErrBucketNotFound
	case "AccessDenied", "Forbidden", "AllAccessDisabled":
		return storage.ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
		return storage.ErrInvalidCredentials
	case "SlowDown", "Throttling", "RequestLimitExceeded", "TooManyRequests":
		return storage.ErrThrottled
	case "ServiceUnavailable", "InternalError":
		return storage.ErrProviderUnavailable
	}
	return nil
}

package azure

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
)

// wrapError converts an azcore error into a *storage.ProviderError.
func wrapError(op, bucket, key string, err error) error {
	wrapped := &storage.ProviderError{
		Op:       op,
		Provider: ProviderName,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return wrapped
	}

	switch bloberror.Code(respErr.ErrorCode) {
	case bloberror.BlobNotFound, bloberror.ResourceNotFound:
		wrapped.Kind = storage.ErrNotFound
	case bloberror.ContainerNotFound:
		wrapped.Kind = storage.ErrBucketNotFound
	case bloberror.AuthenticationFailed, bloberror.InvalidAuthenticationInfo:
		wrapped.Kind = storage.ErrInvalidCredentials
	case bloberror.AuthorizationFailure, bloberror.AuthorizationPermissionMismatch,
		bloberror.InsufficientAccountPermissions:
		wrapped.Kind = storage.ErrAccessDenied
	case bloberror.ServerBusy:
		wrapped.Kind = storage.ErrThrottled
	case bloberror.InternalError, bloberror.OperationTimedOut:
		wrapped.Kind = storage.ErrProviderUnavailable
	}
	if wrapped.Kind != nil {
		return wrapped
	}

	switch respErr.StatusCode {
	case http.StatusNotFound:
		wrapped.Kind = storage.ErrNotFound
	case http.StatusForbidden:
		wrapped.Kind = storage.ErrAccessDenied
	case http.StatusTooManyRequests:
		wrapped.Kind = storage.ErrThrottled
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		wrapped.Kind = storage.ErrProviderUnavailable
	}
	return wrapped
}

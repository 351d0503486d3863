// Package services provides frontend-agnostic object operations for the
// GUI, the TUI and the CLI. Nothing here imports a UI toolkit; progress and
// state changes are published on the event bus.
package services

import (
	"context"
	"errors"

	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/progress"
	"github.com/objectdesk/objectdesk/internal/transfer"
	"github.com/objectdesk/objectdesk/internal/util/paths"
	"github.com/objectdesk/objectdesk/internal/validation"
)

// Service errors.
var (
	ErrNoStore       = errors.New("storage backend not configured")
	ErrInvalidName   = validation.ErrInvalidName
	ErrAlreadyExists = errors.New("an object with that name already exists")
	ErrTooLarge      = errors.New("object is too large to open")
	ErrNotText       = errors.New("object is not valid UTF-8 text")
	ErrIsFolder      = errors.New("operation not supported on folders")
)

// TransferRequest specifies a single transfer.
type TransferRequest struct {
	Type transfer.TaskType

	Bucket string
	Key    string

	// LocalPath is the file to upload, or the download destination file.
	LocalPath string

	// Size in bytes; for uploads it is read from disk when zero.
	Size int64

	// BatchID groups the transfers started by one action.
	BatchID string

	// Reporter receives byte progress in addition to the transfer queue.
	Reporter progress.Reporter
}

// TransferStats mirrors the queue counters.
type TransferStats = transfer.QueueStats

// DeleteFailure is one key that could not be deleted.
type DeleteFailure struct {
	Key string
	Err error
}

// DeleteResult summarizes a delete of several entries.
type DeleteResult struct {
	Deleted int
	Failed  []DeleteFailure
}

// Err returns an error summarizing the failures, or nil.
func (r DeleteResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// TransferServiceInterface is the transfer surface the front ends consume.
type TransferServiceInterface interface {
	StartTransfers(ctx context.Context, requests []TransferRequest) error
	Download(ctx context.Context, req TransferRequest) error
	Upload(ctx context.Context, req TransferRequest) error
	CancelTransfer(taskID string) error
	CancelAll()
	RetryTransfer(taskID string) error
	GetStats() TransferStats
	GetTasks() []transfer.TransferTask
	ClearCompleted()
}

// FileServiceInterface is the object-management surface the front ends consume.
type FileServiceInterface interface {
	ListBuckets(ctx context.Context) ([]models.Bucket, error)
	ListAll(ctx context.Context, bucket, prefix string) ([]models.Entry, error)
	PlanDownload(ctx context.Context, bucket, parentPrefix string, entries []models.Entry, destDir string) ([]paths.FileForDownload, error)
	Delete(ctx context.Context, bucket string, entries []models.Entry) (DeleteResult, error)
	Rename(ctx context.Context, bucket string, entry models.Entry, newName string) (string, error)
	Move(ctx context.Context, bucket string, entry models.Entry, target string) (string, error)
	CreateFolder(ctx context.Context, bucket, prefix, name string) (string, error)
	ReadText(ctx context.Context, bucket, key string) (string, error)
	WriteText(ctx context.Context, bucket, key, content string) error
}

var (
	_ TransferServiceInterface = (*TransferService)(nil)
	_ FileServiceInterface     = (*FileService)(nil)
)

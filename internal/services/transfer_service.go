package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/diskspace"
	"github.com/objectdesk/objectdesk/internal/events"
	inthttp "github.com/objectdesk/objectdesk/internal/http"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/progress"
	"github.com/objectdesk/objectdesk/internal/transfer"
	"github.com/objectdesk/objectdesk/internal/util/buffers"
)

// TransferService runs uploads and downloads against the object store and
// records them in the transfer queue. It is frontend-agnostic: progress and
// state changes are published via the EventBus.
type TransferService struct {
	store    storage.ObjectStore
	eventBus *events.EventBus
	queue    *transfer.Queue
	logger   *logging.Logger
	retry    inthttp.Config

	// Concurrency control
	semaphore   chan struct{}
	activeSlots int32

	mu sync.RWMutex
}

// TransferServiceConfig configures the TransferService.
type TransferServiceConfig struct {
	// MaxConcurrent is the maximum number of concurrent transfers.
	// Defaults to constants.DefaultMaxConcurrent (5).
	MaxConcurrent int

	// Retry overrides the retry policy; zero MaxRetries means inthttp.DefaultConfig.
	Retry inthttp.Config
}

// NewTransferService creates a new TransferService.
func NewTransferService(store storage.ObjectStore, eventBus *events.EventBus, config TransferServiceConfig) *TransferService {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = constants.DefaultMaxConcurrent
	}
	if config.Retry.MaxRetries <= 0 {
		config.Retry = inthttp.DefaultConfig()
	}

	ts := &TransferService{
		store:     store,
		eventBus:  eventBus,
		queue:     transfer.NewQueue(eventBus),
		logger:    logging.NewLogger("transfer-service", eventBus),
		retry:     config.Retry,
		semaphore: make(chan struct{}, config.MaxConcurrent),
	}
	if ts.retry.OnRetry == nil {
		ts.retry.OnRetry = func(attempt int, err error, errorType inthttp.ErrorType) {
			ts.logger.Warn().Err(err).Int("attempt", attempt).Str("class", errorType.String()).Msg("Retrying transfer")
		}
	}

	ts.queue.SetRetryExecutor(ts)
	return ts
}

// SetStore swaps the backend (e.g. after a profile change).
func (ts *TransferService) SetStore(store storage.ObjectStore) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.store = store
}

func (ts *TransferService) getStore() (storage.ObjectStore, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.store == nil {
		return nil, ErrNoStore
	}
	return ts.store, nil
}

// GetQueue returns the underlying transfer queue.
func (ts *TransferService) GetQueue() *transfer.Queue {
	return ts.queue
}

// StartTransfers runs the requests in the background and returns
// immediately; progress is published via events.
func (ts *TransferService) StartTransfers(ctx context.Context, requests []TransferRequest) error {
	if len(requests) == 0 {
		return nil
	}
	if _, err := ts.getStore(); err != nil {
		return err
	}

	for _, req := range requests {
		task := ts.track(req)
		go func(r TransferRequest, t *transfer.TransferTask) {
			_ = ts.run(ctx, t, r.Reporter)
		}(req, task)
	}
	return nil
}

// Download fetches one object to req.LocalPath and blocks until done.
func (ts *TransferService) Download(ctx context.Context, req TransferRequest) error {
	req.Type = transfer.TaskTypeDownload
	return ts.run(ctx, ts.track(req), req.Reporter)
}

// Upload sends req.LocalPath to req.Key and blocks until done.
func (ts *TransferService) Upload(ctx context.Context, req TransferRequest) error {
	req.Type = transfer.TaskTypeUpload
	if req.Size == 0 {
		if info, err := os.Stat(req.LocalPath); err == nil {
			req.Size = info.Size()
		}
	}
	return ts.run(ctx, ts.track(req), req.Reporter)
}

func (ts *TransferService) track(req TransferRequest) *transfer.TransferTask {
	return ts.queue.Track(req.Type, req.Bucket, req.Key, req.LocalPath, req.Size, req.BatchID)
}

// run executes a tracked task: waits for a slot, transfers with retry and
// records the outcome in the queue.
func (ts *TransferService) run(ctx context.Context, task *transfer.TransferTask, reporter progress.Reporter) (err error) {
	if reporter == nil {
		reporter = progress.NoOpProgress{}
	}
	snap := task.Clone()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ts.queue.SetCancel(snap.ID, cancel)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			ts.logger.Error().Msgf("PANIC in %s of %s: %v", snap.Type, snap.Key, r)
		}
		ts.finish(&snap, reporter, err)
	}()

	store, err := ts.getStore()
	if err != nil {
		return err
	}

	select {
	case ts.semaphore <- struct{}{}:
	case <-runCtx.Done():
		return runCtx.Err()
	}
	slots := atomic.AddInt32(&ts.activeSlots, 1)
	ts.logger.Debug().Str("key", snap.Key).Int32("active", slots).Int("max", cap(ts.semaphore)).Msg("Transfer slot acquired")
	defer func() {
		<-ts.semaphore
		atomic.AddInt32(&ts.activeSlots, -1)
	}()

	if snap.Type == transfer.TaskTypeUpload {
		return ts.upload(runCtx, store, &snap, reporter)
	}
	return ts.download(runCtx, store, &snap, reporter)
}

func (ts *TransferService) finish(task *transfer.TransferTask, reporter progress.Reporter, err error) {
	switch {
	case err == nil:
		reporter.Finish()
		ts.queue.Complete(task.ID)
		ts.logger.Info().Str("type", string(task.Type)).Str("bucket", task.Bucket).Str("key", task.Key).
			Str("local_path", task.LocalPath).Msg("Transfer complete")
	case errors.Is(err, context.Canceled):
		reporter.Error(err)
		_ = ts.queue.Cancel(task.ID)
	default:
		reporter.Error(err)
		ts.queue.Fail(task.ID, err)
		ts.logger.Error().Err(err).Str("type", string(task.Type)).Str("key", task.Key).Msg("Transfer failed")
	}
}

// queueReporter forwards byte counts to the queue.
type queueReporter struct {
	queue  *transfer.Queue
	taskID string
}

func (r queueReporter) Start(total int64, description string) { r.queue.Start(r.taskID) }
func (r queueReporter) Update(current int64)                  { r.queue.Progress(r.taskID, current) }
func (r queueReporter) Finish()                               {}
func (r queueReporter) Error(err error)                       {}

func (ts *TransferService) download(ctx context.Context, store storage.ObjectStore, task *transfer.TransferTask, reporter progress.Reporter) error {
	size := task.Size
	if size == 0 {
		info, err := store.Head(ctx, task.Bucket, task.Key)
		if err != nil {
			return err
		}
		size = info.Size
	}

	if err := diskspace.CheckAvailableSpace(task.LocalPath, size, 1+constants.DiskSpaceBufferPercent); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(task.LocalPath), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	rep := progress.Multi{reporter, queueReporter{ts.queue, task.ID}}
	rep.Start(size, task.Name)

	timer := transfer.StartTimer(ts.logger, "download "+task.Key)
	err := inthttp.ExecuteWithRetry(ctx, ts.retry, func() error {
		return ts.downloadOnce(ctx, store, task, rep)
	})
	if err != nil {
		timer.Stop()
		return err
	}
	timer.StopWithThroughput(size)
	return nil
}

// downloadOnce streams the object into a partial file and renames it into
// place, so an interrupted download never leaves a truncated target.
func (ts *TransferService) downloadOnce(ctx context.Context, store storage.ObjectStore, task *transfer.TransferTask, rep progress.Reporter) error {
	body, _, err := store.Get(ctx, task.Bucket, task.Key)
	if err != nil {
		return err
	}
	defer body.Close()

	partial := task.LocalPath + constants.PartialDownloadSuffix
	f, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", partial, err)
	}

	_, copyErr := buffers.Copy(f, progress.NewProgressReader(body, rep))
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partial)
		if storage.IsDiskFullError(copyErr) {
			return fmt.Errorf("%w: %v", storage.ErrInsufficientSpace, copyErr)
		}
		return fmt.Errorf("failed to download %s: %w", task.Key, copyErr)
	}

	if err := os.Rename(partial, task.LocalPath); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

func (ts *TransferService) upload(ctx context.Context, store storage.ObjectStore, task *transfer.TransferTask, reporter progress.Reporter) error {
	f, err := os.Open(task.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", task.LocalPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", task.LocalPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", task.LocalPath, ErrIsFolder)
	}
	size := info.Size()

	rep := progress.Multi{reporter, queueReporter{ts.queue, task.ID}}
	rep.Start(size, task.Name)
	contentType := contentTypeFor(task.Key, "application/octet-stream")

	timer := transfer.StartTimer(ts.logger, "upload "+task.Key)
	err = inthttp.ExecuteWithRetry(ctx, ts.retry, func() error {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return store.Put(ctx, task.Bucket, task.Key, progress.NewProgressReader(f, rep), size, contentType)
	})
	if err != nil {
		timer.Stop()
		return err
	}
	timer.StopWithThroughput(size)
	return nil
}

// ExecuteRetry implements transfer.RetryExecutor.
func (ts *TransferService) ExecuteRetry(task *transfer.TransferTask) {
	_ = ts.run(context.Background(), task, nil)
}

// CancelTransfer cancels a queued or active transfer.
func (ts *TransferService) CancelTransfer(taskID string) error {
	return ts.queue.Cancel(taskID)
}

// CancelAll cancels every queued or active transfer.
func (ts *TransferService) CancelAll() {
	ts.queue.CancelAll()
}

// RetryTransfer re-runs a failed or cancelled transfer under the same ID.
func (ts *TransferService) RetryTransfer(taskID string) error {
	return ts.queue.Retry(taskID)
}

// GetStats returns current transfer statistics.
func (ts *TransferService) GetStats() TransferStats {
	return ts.queue.Stats()
}

// GetTasks returns all tracked transfers.
func (ts *TransferService) GetTasks() []transfer.TransferTask {
	return ts.queue.Tasks()
}

// ClearCompleted drops finished transfers from tracking.
func (ts *TransferService) ClearCompleted() {
	ts.queue.ClearCompleted()
}

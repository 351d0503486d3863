// Package transfer tracks object uploads and downloads for the transfers view.
package transfer

import (
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskType indicates whether a task is an upload or download.
type TaskType string

const (
	TaskTypeUpload   TaskType = "upload"
	TaskTypeDownload TaskType = "download"
)

// TaskState represents the current state of a transfer task.
type TaskState string

const (
	TaskQueued    TaskState = "queued"    // Registered, not yet moving bytes
	TaskActive    TaskState = "active"    // Transferring
	TaskCompleted TaskState = "completed" // Successfully completed
	TaskFailed    TaskState = "failed"    // Failed with error
	TaskCancelled TaskState = "cancelled" // Cancelled by user
)

// speedSmoothingAlpha weights the newest sample in the speed EMA.
const speedSmoothingAlpha = 0.25

// TransferTask is one object moving between the local disk and a bucket.
// Use the accessor methods; fields are guarded by mu.
type TransferTask struct {
	ID   string
	Type TaskType

	Name      string // Display name (last key segment or local base name)
	Bucket    string
	Key       string
	LocalPath string
	Size      int64
	BatchID   string // Groups transfers started by one user action

	State    TaskState
	Progress float64 // 0.0 to 1.0
	Speed    float64 // bytes/sec, EMA smoothed
	Error    error

	lastBytes      int64
	lastUpdateTime time.Time

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	mu sync.RWMutex
}

// NewTransferTask creates a queued task with a fresh ID.
func NewTransferTask(taskType TaskType, bucket, key, localPath string, size int64) *TransferTask {
	name := path.Base(key)
	if taskType == TaskTypeUpload && localPath != "" {
		name = filepath.Base(localPath)
	}
	return &TransferTask{
		ID:        uuid.NewString(),
		Type:      taskType,
		Name:      name,
		Bucket:    bucket,
		Key:       key,
		LocalPath: localPath,
		Size:      size,
		State:     TaskQueued,
		CreatedAt: time.Now(),
	}
}

// GetState returns the current state.
func (t *TransferTask) GetState() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// SetState updates the task state and its timestamps.
func (t *TransferTask) SetState(state TaskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStateLocked(state)
}

func (t *TransferTask) setStateLocked(state TaskState) {
	t.State = state
	if state == TaskActive && t.StartedAt.IsZero() {
		t.StartedAt = time.Now()
	}
	if isTerminal(state) {
		t.CompletedAt = time.Now()
	}
}

// GetProgress returns current progress.
func (t *TransferTask) GetProgress() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Progress
}

// GetSpeed returns the smoothed transfer speed in bytes/sec.
func (t *TransferTask) GetSpeed() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Speed
}

// GetError returns the failure cause, if any.
func (t *TransferTask) GetError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// UpdateBytes records the byte count transferred so far and refreshes the
// progress fraction and smoothed speed.
func (t *TransferTask) UpdateBytes(transferred int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateBytesLocked(transferred, time.Now())
}

func (t *TransferTask) updateBytesLocked(transferred int64, now time.Time) {
	if t.Size > 0 {
		t.Progress = float64(transferred) / float64(t.Size)
		if t.Progress > 1 {
			t.Progress = 1
		}
	}

	if t.lastUpdateTime.IsZero() {
		t.lastBytes = transferred
		t.lastUpdateTime = now
		return
	}

	// Need at least 100ms between samples for a meaningful rate
	elapsed := now.Sub(t.lastUpdateTime).Seconds()
	if elapsed < 0.1 || transferred <= t.lastBytes {
		return
	}
	instant := float64(transferred-t.lastBytes) / elapsed
	if t.Speed > 0 {
		t.Speed = speedSmoothingAlpha*instant + (1-speedSmoothingAlpha)*t.Speed
	} else {
		t.Speed = instant
	}
	t.lastBytes = transferred
	t.lastUpdateTime = now
}

func (t *TransferTask) resetLocked() {
	t.State = TaskQueued
	t.Progress = 0
	t.Speed = 0
	t.Error = nil
	t.StartedAt = time.Time{}
	t.CompletedAt = time.Time{}
	t.lastBytes = 0
	t.lastUpdateTime = time.Time{}
}

// Clone returns a copy safe to hand to display code.
func (t *TransferTask) Clone() TransferTask {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TransferTask{
		ID:          t.ID,
		Type:        t.Type,
		Name:        t.Name,
		Bucket:      t.Bucket,
		Key:         t.Key,
		LocalPath:   t.LocalPath,
		Size:        t.Size,
		BatchID:     t.BatchID,
		State:       t.State,
		Progress:    t.Progress,
		Speed:       t.Speed,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

// IsTerminal reports whether the task completed, failed or was cancelled.
func (t *TransferTask) IsTerminal() bool {
	return isTerminal(t.GetState())
}

// CanRetry reports whether the task failed or was cancelled.
func (t *TransferTask) CanRetry() bool {
	state := t.GetState()
	return state == TaskFailed || state == TaskCancelled
}

func isTerminal(state TaskState) bool {
	return state == TaskCompleted || state == TaskFailed || state == TaskCancelled
}

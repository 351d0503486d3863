package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/objectdesk/objectdesk/internal/events"
)

// Queue errors.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotRunning = errors.New("task is not queued or active")
	ErrCannotRetry    = errors.New("task cannot be retried")
	ErrNoRetryHandler = errors.New("no retry executor configured")
)

// RetryExecutor re-runs a failed or cancelled task. The task is already reset
// to TaskQueued; the executor reports back through the queue.
type RetryExecutor interface {
	ExecuteRetry(task *TransferTask)
}

// QueueStats holds per-state task counts.
type QueueStats struct {
	Queued    int
	Active    int
	Completed int
	Failed    int
	Cancelled int
}

// Total returns the number of tracked tasks.
func (s QueueStats) Total() int {
	return s.Queued + s.Active + s.Completed + s.Failed + s.Cancelled
}

// Queue observes transfers run by the file service and publishes their
// lifecycle on the event bus. It never moves bytes itself.
//
// Callers register a task with Track, store its cancel function with
// SetCancel, report bytes with Progress and finish with Complete or Fail.
type Queue struct {
	tasks     []*TransferTask
	tasksByID map[string]*TransferTask
	mu        sync.RWMutex

	cancelFuncs   map[string]context.CancelFunc
	retryExecutor RetryExecutor

	eventBus *events.EventBus
}

// NewQueue creates an empty queue publishing on eventBus (which may be nil).
func NewQueue(eventBus *events.EventBus) *Queue {
	return &Queue{
		tasksByID:   make(map[string]*TransferTask),
		cancelFuncs: make(map[string]context.CancelFunc),
		eventBus:    eventBus,
	}
}

// SetRetryExecutor installs the handler used by Retry.
func (q *Queue) SetRetryExecutor(executor RetryExecutor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retryExecutor = executor
}

// Track registers a new queued task.
func (q *Queue) Track(taskType TaskType, bucket, key, localPath string, size int64, batchID string) *TransferTask {
	task := NewTransferTask(taskType, bucket, key, localPath, size)
	task.BatchID = batchID

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.tasksByID[task.ID] = task
	q.mu.Unlock()

	q.publish(events.EventTransferQueued, task)
	return task
}

// SetCancel stores the cancel function of the task's running context.
func (q *Queue) SetCancel(taskID string, cancelFn context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelFuncs[taskID] = cancelFn
}

// Start marks a queued task active.
func (q *Queue) Start(taskID string) {
	task := q.lookup(taskID)
	if task == nil {
		return
	}
	task.mu.Lock()
	started := task.State == TaskQueued
	if started {
		task.setStateLocked(TaskActive)
	}
	task.mu.Unlock()

	if started {
		q.publish(events.EventTransferStarted, task)
	}
}

// Progress records transferred bytes for an active task.
func (q *Queue) Progress(taskID string, transferred int64) {
	task := q.lookup(taskID)
	if task == nil {
		return
	}
	task.mu.Lock()
	if task.State != TaskActive {
		task.mu.Unlock()
		return
	}
	task.updateBytesLocked(transferred, time.Now())
	task.mu.Unlock()

	q.publish(events.EventTransferProgress, task)
}

// Complete marks a task as successfully completed.
func (q *Queue) Complete(taskID string) {
	q.finish(taskID, TaskCompleted, nil, events.EventTransferCompleted)
}

// Fail marks a task as failed. A task already cancelled stays cancelled.
func (q *Queue) Fail(taskID string, err error) {
	q.finish(taskID, TaskFailed, err, events.EventTransferFailed)
}

func (q *Queue) finish(taskID string, state TaskState, err error, eventType events.EventType) {
	q.mu.Lock()
	task := q.tasksByID[taskID]
	delete(q.cancelFuncs, taskID)
	q.mu.Unlock()
	if task == nil {
		return
	}

	task.mu.Lock()
	if task.State == TaskCancelled {
		task.mu.Unlock()
		return
	}
	task.Error = err
	if state == TaskCompleted {
		task.Progress = 1
	}
	task.setStateLocked(state)
	task.mu.Unlock()

	q.publish(eventType, task)
}

// Cancel stops a queued or active task.
func (q *Queue) Cancel(taskID string) error {
	q.mu.Lock()
	task := q.tasksByID[taskID]
	cancelFn := q.cancelFuncs[taskID]
	delete(q.cancelFuncs, taskID)
	q.mu.Unlock()

	if task == nil {
		return ErrTaskNotFound
	}

	task.mu.Lock()
	if task.State != TaskQueued && task.State != TaskActive {
		task.mu.Unlock()
		return ErrTaskNotRunning
	}
	task.setStateLocked(TaskCancelled)
	task.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}
	q.publish(events.EventTransferCancelled, task)
	return nil
}

// CancelAll cancels every queued or active task.
func (q *Queue) CancelAll() {
	q.mu.RLock()
	ids := make([]string, 0, len(q.tasks))
	for _, task := range q.tasks {
		ids = append(ids, task.ID)
	}
	q.mu.RUnlock()

	for _, id := range ids {
		_ = q.Cancel(id)
	}
}

// Retry resets a failed or cancelled task in place and hands it to the
// retry executor. The task keeps its ID.
func (q *Queue) Retry(taskID string) error {
	q.mu.RLock()
	task := q.tasksByID[taskID]
	executor := q.retryExecutor
	q.mu.RUnlock()

	if task == nil {
		return ErrTaskNotFound
	}
	if !task.CanRetry() {
		return ErrCannotRetry
	}
	if executor == nil {
		return ErrNoRetryHandler
	}

	task.mu.Lock()
	task.resetLocked()
	task.mu.Unlock()

	q.publish(events.EventTransferQueued, task)
	go executor.ExecuteRetry(task)
	return nil
}

// ClearCompleted drops every terminal task.
func (q *Queue) ClearCompleted() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.tasks[:0]
	for _, task := range q.tasks {
		if task.IsTerminal() {
			delete(q.tasksByID, task.ID)
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
}

// Stats returns per-state counts.
func (q *Queue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var stats QueueStats
	for _, task := range q.tasks {
		switch task.GetState() {
		case TaskQueued:
			stats.Queued++
		case TaskActive:
			stats.Active++
		case TaskCompleted:
			stats.Completed++
		case TaskFailed:
			stats.Failed++
		case TaskCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Tasks returns copies of all tasks in creation order.
func (q *Queue) Tasks() []TransferTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]TransferTask, len(q.tasks))
	for i, task := range q.tasks {
		out[i] = task.Clone()
	}
	return out
}

// Task returns a copy of one task.
func (q *Queue) Task(taskID string) (TransferTask, bool) {
	task := q.lookup(taskID)
	if task == nil {
		return TransferTask{}, false
	}
	return task.Clone(), true
}

func (q *Queue) lookup(taskID string) *TransferTask {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tasksByID[taskID]
}

func (q *Queue) publish(eventType events.EventType, task *TransferTask) {
	if q.eventBus == nil {
		return
	}
	snap := task.Clone()
	ev := events.NewTransferEvent(eventType, snap.ID, string(snap.Type), snap.Name, snap.Size, snap.Progress, snap.Error)
	ev.Speed = snap.Speed
	ev.LocalPath = snap.LocalPath
	q.eventBus.Publish(ev)
}

package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// QueueManager manages task queuing
type QueueManager struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	timeout   time.Duration
	now       func() time.Time
}

// NewQueueManager creates a new queue manager. timeout bounds how long a
// worker may spend on one force-merge.
func NewQueueManager(redisOpt asynq.RedisConnOpt, queue string, timeout time.Duration) *QueueManager {
	if queue == "" {
		queue = DefaultQueue
	}

	return &QueueManager{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		queue:     queue,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Dispatch enqueues a force-merge of index. It returns false without error
// when the index is already pending or running.
func (q *QueueManager) Dispatch(ctx context.Context, index, granularity, runID string) (bool, error) {
	return q.EnqueueOptimize(ctx, OptimizePayload{
		Index:       index,
		Granularity: granularity,
		RunID:       runID,
		EnqueuedAt:  q.now(),
	})
}

// EnqueueOptimize enqueues a force-merge task. Failed tasks are not retried.
func (q *QueueManager) EnqueueOptimize(ctx context.Context, payload OptimizePayload, opts ...asynq.Option) (bool, error) {
	task, err := NewOptimizeTask(payload)
	if err != nil {
		return false, err
	}

	allOpts := []asynq.Option{
		asynq.TaskID(payload.UniqueID()),
		asynq.Queue(q.queue),
		asynq.MaxRetry(0),
	}

	if q.timeout > 0 {
		allOpts = append(allOpts, asynq.Timeout(q.timeout))
	}

	allOpts = append(allOpts, opts...)

	_, err = q.client.EnqueueContext(ctx, task, allOpts...)
	if err == nil {
		return true, nil
	}

	if !isConflict(err) {
		return false, err
	}

	// A failed merge stays archived under the same task ID and would block
	// the index forever; only a pending or running task counts as queued.
	busy, err := q.IsTaskPendingOrRunning(payload.Index)
	if err != nil || busy {
		return false, err
	}

	if err := q.inspector.DeleteTask(q.queue, payload.UniqueID()); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, err
	}

	if _, err := q.client.EnqueueContext(ctx, task, allOpts...); err != nil {
		if isConflict(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func isConflict(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

// IsTaskPendingOrRunning checks if a force-merge of index is pending or running
func (q *QueueManager) IsTaskPendingOrRunning(index string) (bool, error) {
	info, err := q.inspector.GetTaskInfo(q.queue, OptimizePayload{Index: index}.UniqueID())
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) || errors.Is(err, asynq.ErrTaskNotFound) {
			return false, nil
		}

		return false, err
	}

	return info.State == asynq.TaskStatePending ||
		info.State == asynq.TaskStateActive ||
		info.State == asynq.TaskStateRetry, nil
}

// Queue returns the queue tasks are enqueued on
func (q *QueueManager) Queue() string {
	return q.queue
}

// Close closes the queue manager
func (q *QueueManager) Close() error {
	if err := q.inspector.Close(); err != nil {
		return err
	}

	return q.client.Close()
}

// Package tasks provides force-merge task queueing using Asynq
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeIndexOptimize is the task type for force-merging a single index
	TypeIndexOptimize = "index:optimize"
	// DefaultQueue is the queue force-merge tasks are enqueued on
	DefaultQueue = "indexopt"
)

// ErrEmptyIndex is returned when a payload names no index
var ErrEmptyIndex = errors.New("payload has no index")

// OptimizePayload represents the payload for a force-merge task
type OptimizePayload struct {
	Index       string    `json:"index"`
	Granularity string    `json:"granularity"`
	RunID       string    `json:"run_id"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// UniqueID returns a unique identifier for this task. An index is queued at
// most once until its task completes.
func (p OptimizePayload) UniqueID() string {
	return fmt.Sprintf("optimize:%s", p.Index)
}

// NewOptimizeTask builds the asynq task for a payload
func NewOptimizeTask(p OptimizePayload) (*asynq.Task, error) {
	if p.Index == "" {
		return nil, ErrEmptyIndex
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeIndexOptimize, data), nil
}

// ParseOptimizePayload decodes a task payload
func ParseOptimizePayload(data []byte) (OptimizePayload, error) {
	var p OptimizePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if p.Index == "" {
		return p, ErrEmptyIndex
	}

	return p, nil
}

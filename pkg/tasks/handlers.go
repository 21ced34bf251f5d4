package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/observability"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// TaskHandler executes force-merge tasks against the cluster
type TaskHandler struct {
	log    logrus.FieldLogger
	client elasticsearch.ClientInterface
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(log logrus.FieldLogger, client elasticsearch.ClientInterface) *TaskHandler {
	return &TaskHandler{
		log:    log.WithField("component", "task-handler"),
		client: client,
	}
}

// Routes returns the handler for every task type
func (h *TaskHandler) Routes() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeIndexOptimize: h.HandleOptimize,
	}
}

// HandleOptimize force-merges the index named by the task
func (h *TaskHandler) HandleOptimize(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseOptimizePayload(t.Payload())
	if err != nil {
		observability.RecordError("task-handler", "unmarshal_error")

		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := h.log.WithFields(logrus.Fields{
		"index":  payload.Index,
		"run_id": payload.RunID,
	})

	log.Infof("Optimizing index %s", payload.Index)

	start := time.Now()
	result, err := h.client.Optimize(ctx, payload.Index)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		observability.RecordOptimize(payload.Granularity, "failed", elapsed.Seconds())
		log.WithError(err).Errorf("Error optimizing index: %s", payload.Index)

		return err
	case !result.Success:
		observability.RecordOptimize(payload.Granularity, "failed", elapsed.Seconds())
		log.WithField("detail", result.Detail).Errorf("Error optimizing index: %s", payload.Index)

		return fmt.Errorf("%w: %s", elasticsearch.ErrOptimize, payload.Index)
	}

	observability.RecordOptimize(payload.Granularity, "success", elapsed.Seconds())
	log.WithField("duration", elapsed).Infof("Successfully optimized index: %s", payload.Index)

	return nil
}

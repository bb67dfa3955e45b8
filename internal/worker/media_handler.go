package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/metrics"
	"snsu-notification/internal/tasks"
)

// MediaDeleter removes media rows.
type MediaDeleter interface {
	Purge(ctx context.Context, ids []uint) error
}

// MediaPurgeHandler processes media:purge tasks.
type MediaPurgeHandler struct {
	media MediaDeleter
}

func NewMediaPurgeHandler(media MediaDeleter) *MediaPurgeHandler {
	if media == nil {
		panic("MediaDeleter cannot be nil for MediaPurgeHandler")
	}
	return &MediaPurgeHandler{media: media}
}

// ProcessTask implements asynq.Handler.
func (h *MediaPurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	payload, err := tasks.ParseMediaPurgePayload(t.Payload())
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		metrics.TasksProcessed.WithLabelValues(t.Type(), "skipped").Inc()
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.MediaIDs) == 0 {
		metrics.TasksProcessed.WithLabelValues(t.Type(), "ok").Inc()
		return nil
	}

	if err := h.media.Purge(ctx, payload.MediaIDs); err != nil {
		logCtx.WithError(err).Error("Failed to purge media")
		metrics.TasksProcessed.WithLabelValues(t.Type(), "error").Inc()
		return fmt.Errorf("failed to purge media %v: %w", payload.MediaIDs, err)
	}

	logCtx.WithField("media_ids", payload.MediaIDs).Info("Media purge task processed successfully")
	metrics.TasksProcessed.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

// taskLogger builds the common log context for a task run.
func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID, _ := asynq.GetTaskID(ctx)
	retry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	queue, _ := asynq.GetQueueName(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"queue":     queue,
		"retry":     retry,
		"max_retry": maxRetry,
	})
}

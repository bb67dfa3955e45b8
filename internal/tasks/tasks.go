// Package tasks defines the background task types and their payloads.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Task types.
const (
	// TypePresenceReconcile clears online flags left behind by crashed
	// processes. Scheduled periodically.
	TypePresenceReconcile = "presence:reconcile"
	// TypeMediaPurge deletes media rows that are no longer referenced.
	TypeMediaPurge = "media:purge"
)

// MediaPurgePayload lists the media rows to delete.
type MediaPurgePayload struct {
	MediaIDs []uint `json:"media_ids"`
}

// NewPresenceReconcileTask builds the scheduled reconcile task.
func NewPresenceReconcileTask() *asynq.Task {
	return asynq.NewTask(TypePresenceReconcile, nil, asynq.MaxRetry(0), asynq.Timeout(time.Minute))
}

// NewMediaPurgeTask builds a purge task for ids.
func NewMediaPurgeTask(ids []uint) (*asynq.Task, error) {
	payload, err := json.Marshal(MediaPurgePayload{MediaIDs: ids})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMediaPurge, payload, asynq.MaxRetry(5)), nil
}

// ParseMediaPurgePayload decodes a purge task payload.
func ParseMediaPurgePayload(data []byte) (MediaPurgePayload, error) {
	var p MediaPurgePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Enqueuer is the subset of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqMediaPurger defers media deletion to the worker.
type AsynqMediaPurger struct {
	client Enqueuer
}

func NewAsynqMediaPurger(client Enqueuer) *AsynqMediaPurger {
	if client == nil {
		panic("Enqueuer cannot be nil for AsynqMediaPurger")
	}
	return &AsynqMediaPurger{client: client}
}

// PurgeMedia enqueues a purge for ids. Empty input is a no-op.
func (p *AsynqMediaPurger) PurgeMedia(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	task, err := NewMediaPurgeTask(ids)
	if err != nil {
		return fmt.Errorf("tasks: build media purge: %w", err)
	}
	info, err := p.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("tasks: enqueue media purge: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"task_id":   info.ID,
		"queue":     info.Queue,
		"media_ids": ids,
	}).Debug("Media purge enqueued")
	return nil
}

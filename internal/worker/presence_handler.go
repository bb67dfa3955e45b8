package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"snsu-notification/internal/metrics"
)

// Reconciler clears stale presence and announces the affected users.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]uint, error)
}

// PresenceReconcileHandler processes the periodic presence:reconcile task.
type PresenceReconcileHandler struct {
	reconciler Reconciler
	timeout    time.Duration
}

func NewPresenceReconcileHandler(reconciler Reconciler) *PresenceReconcileHandler {
	if reconciler == nil {
		panic("Reconciler cannot be nil for PresenceReconcileHandler")
	}
	return &PresenceReconcileHandler{reconciler: reconciler, timeout: 30 * time.Second}
}

// ProcessTask implements asynq.Handler.
func (h *PresenceReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)
	logCtx.Debug("Processing presence reconcile task...")

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	ids, err := h.reconciler.Reconcile(runCtx)
	if err != nil {
		logCtx.WithError(err).Error("Presence reconcile failed")
		metrics.TasksProcessed.WithLabelValues(t.Type(), "error").Inc()
		return fmt.Errorf("presence reconcile: %w", err)
	}

	if len(ids) > 0 {
		logCtx.WithField("offlined", ids).Info("Stale users marked offline")
	}
	metrics.TasksProcessed.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

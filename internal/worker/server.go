package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/tasks"
)

// WorkerServer wraps the asynq server that runs background tasks.
type WorkerServer struct {
	server     *asynq.Server
	log        *logrus.Entry
	reconciler Reconciler
	media      MediaDeleter
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, reconciler Reconciler, media MediaDeleter, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskLogger(ctx, task).Errorf("Task failed: %v", err)
			}),
			Logger:   newAsynqLogger(logEntry),
			LogLevel: asynq.WarnLevel,
		},
	)

	return &WorkerServer{
		server:     server,
		log:        logEntry,
		reconciler: reconciler,
		media:      media,
	}
}

// Mux registers every task handler.
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypePresenceReconcile, NewPresenceReconcileHandler(ws.reconciler))
	mux.Handle(tasks.TypeMediaPurge, NewMediaPurgeHandler(ws.media))
	return mux
}

// Start runs the worker server. It blocks and should run in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.Mux()); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown stops the worker server gracefully.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}

// asynqLogger routes asynq's internal logging through logrus.
type asynqLogger struct {
	entry *logrus.Entry
}

func newAsynqLogger(entry *logrus.Entry) *asynqLogger {
	return &asynqLogger{entry: entry.WithField("source", "asynq")}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{}) { l.entry.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

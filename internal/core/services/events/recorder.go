package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/infrastructure/queue"
	"github.com/hibiken/asynq"
)

// Enqueuer is the queue client the recorder publishes through
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EventStore persists pipeline events consumed off the queue
type EventStore interface {
	Insert(ctx context.Context, event *domain.PipelineEvent) error
}

// Recorder publishes pipeline events onto the task queue. Recording is
// fire-and-forget: a failed enqueue is logged and absorbed so it can never
// fail the request that produced the event.
type Recorder struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewRecorder creates a new event recorder
func NewRecorder(enqueuer Enqueuer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// NewProcessID generates a unique process id from the current timestamp and
// a short random suffix
func NewProcessID() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("prompt_%d", time.Now().Unix())
	}
	return fmt.Sprintf("prompt_%d_%s", time.Now().Unix(), hex.EncodeToString(suffix))
}

// Record enqueues a pipeline event for asynchronous persistence
func (r *Recorder) Record(ctx context.Context, event domain.PipelineEvent) {
	if r.enqueuer == nil {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode pipeline event",
			slog.String("process_id", event.ProcessID),
			slog.Any("error", err))
		return
	}

	task := asynq.NewTask(queue.TaskTypeEventRecord, payload)
	if _, err := r.enqueuer.EnqueueContext(ctx, task); err != nil {
		r.logger.Warn("failed to enqueue pipeline event",
			slog.String("process_id", event.ProcessID),
			slog.String("stage", event.Stage),
			slog.Any("error", err))
	}
}

// Worker consumes pipeline event tasks and persists them
type Worker struct {
	store  EventStore
	logger *slog.Logger
}

// NewWorker creates a new event worker
func NewWorker(store EventStore, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		store:  store,
		logger: logger,
	}
}

// HandleRecordTask processes one event:record task
func (w *Worker) HandleRecordTask(ctx context.Context, task *asynq.Task) error {
	var event domain.PipelineEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// Malformed payloads never become valid; do not retry
		return fmt.Errorf("malformed event payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.store.Insert(ctx, &event); err != nil {
		return fmt.Errorf("failed to persist pipeline event: %w", err)
	}

	w.logger.Debug("pipeline event recorded",
		slog.String("process_id", event.ProcessID),
		slog.String("stage", event.Stage),
		slog.String("status", event.Status))

	return nil
}

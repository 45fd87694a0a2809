package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/infrastructure/queue"
	"github.com/astrocub/prompt-service/internal/infrastructure/storage"
	"github.com/hibiken/asynq"
)

// Lister reads back the latest version of every stored prompt
type Lister interface {
	ListAll(ctx context.Context) ([]domain.Prompt, error)
}

// Archive writes prompt documents to durable snapshot storage
type Archive interface {
	WriteSnapshot(ctx context.Context, snapshotID string, docs []map[string]interface{}) (*storage.SnapshotMetadata, error)
}

// TaskPayload is the body of a prompt:snapshot task
type TaskPayload struct {
	SnapshotID string `json:"snapshot_id"`
}

// NewTask builds a snapshot task for the queue
func NewTask(snapshotID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{SnapshotID: snapshotID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot payload: %w", err)
	}
	return asynq.NewTask(queue.TaskTypePromptSnapshot, payload), nil
}

// NewSnapshotID derives a snapshot id from the current time
func NewSnapshotID() string {
	return "prompts-" + time.Now().UTC().Format("20060102-150405")
}

// Service exports the prompt directory to snapshot storage
type Service struct {
	lister  Lister
	archive Archive
	logger  *slog.Logger
}

// NewService creates a new snapshot service
func NewService(lister Lister, archive Archive, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		lister:  lister,
		archive: archive,
		logger:  logger,
	}
}

// HandleSnapshotTask processes one prompt:snapshot task
func (s *Service) HandleSnapshotTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed snapshot payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.SnapshotID == "" {
		payload.SnapshotID = NewSnapshotID()
	}

	prompts, err := s.lister.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list prompts for snapshot: %w", err)
	}

	docs := make([]map[string]interface{}, 0, len(prompts))
	for i := range prompts {
		docs = append(docs, prompts[i].Document())
	}

	metadata, err := s.archive.WriteSnapshot(ctx, payload.SnapshotID, docs)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info("prompt snapshot completed",
		slog.String("snapshot_id", metadata.ID),
		slog.Int("records", metadata.Records),
		slog.String("hash", metadata.Hash))

	return nil
}

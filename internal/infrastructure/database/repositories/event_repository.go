package repositories

import (
	"context"
	"log/slog"

	"github.com/astrocub/prompt-service/internal/core/domain"
	apperrors "github.com/astrocub/prompt-service/internal/pkg/errors"
	"gorm.io/gorm"
)

// EventRepository persists pipeline events
type EventRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewEventRepository creates a new repository instance
func NewEventRepository(db *gorm.DB, logger *slog.Logger) *EventRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a single pipeline event
func (r *EventRepository) Insert(ctx context.Context, event *domain.PipelineEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.logger.Error("failed to insert pipeline event",
			slog.String("process_id", event.ProcessID),
			slog.String("stage", event.Stage),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}
	return nil
}

// ListByProcess returns all events recorded under a process id, oldest first
func (r *EventRepository) ListByProcess(ctx context.Context, processID string) ([]domain.PipelineEvent, error) {
	var events []domain.PipelineEvent

	err := r.db.WithContext(ctx).
		Where("process_id = ?", processID).
		Order("occurred_at ASC").
		Find(&events).
		Error

	if err != nil {
		r.logger.Error("failed to list pipeline events",
			slog.String("process_id", processID),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	return events, nil
}

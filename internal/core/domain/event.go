package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pipeline event stages
const (
	EventStageSave     = "save"
	EventStageFetch    = "fetch"
	EventStageList     = "list"
	EventStageSnapshot = "snapshot"
)

// Pipeline event statuses
const (
	EventStatusStarted   = "started"
	EventStatusCompleted = "completed"
	EventStatusFailed    = "failed"
)

// PipelineEvent records one step of a prompt operation for later inspection
type PipelineEvent struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProcessID        string    `gorm:"type:varchar(100);not null;index:idx_pipeline_events_process" json:"process_id"`
	Stage            string    `gorm:"type:varchar(50);not null" json:"stage"`
	Status           string    `gorm:"type:varchar(50);not null" json:"status"`
	PromptName       string    `gorm:"type:varchar(255);index:idx_pipeline_events_prompt" json:"prompt_name,omitempty"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Metadata         JSONB     `gorm:"type:jsonb" json:"metadata,omitempty"`
	OccurredAt       time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PipelineEvent) TableName() string {
	return "pipeline_events"
}

// BeforeCreate GORM hook
func (e *PipelineEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return nil
}

// ValidEventStatuses returns list of valid pipeline event statuses
func ValidEventStatuses() []string {
	return []string{EventStatusStarted, EventStatusCompleted, EventStatusFailed}
}

// IsValidEventStatus checks if a status is valid
func IsValidEventStatus(status string) bool {
	for _, s := range ValidEventStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

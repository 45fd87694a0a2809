package directory

import (
	"context"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/google/uuid"
)

// Store is the persistence collaborator the directory service writes through
type Store interface {
	// Save persists the prompt as a new version of its name, carrying
	// created_at/created_by forward from any existing version.
	Save(ctx context.Context, prompt *domain.Prompt) (*domain.Prompt, error)

	// GetByName returns the stored record for a name; version 0 means latest.
	GetByName(ctx context.Context, name string, version int) (*domain.Prompt, error)

	// List returns the latest version of every name matching the filter.
	List(ctx context.Context, filter Filter) ([]domain.Prompt, error)
}

// Cache is the optional read-through cache for latest prompt documents
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Filter narrows List results. All non-zero fields must match (conjunctive).
type Filter struct {
	Category domain.PromptCategory
	Status   domain.PromptStatus
	Search   string
}

// SaveResult describes the outcome of a save
type SaveResult struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	UpdatedAt string    `json:"updated_at"`
}

// Config holds directory service settings
type Config struct {
	// CacheTTL bounds how long a fetched document may be served from cache
	CacheTTL time.Duration
}

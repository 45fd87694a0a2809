package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"golang.org/x/text/unicode/norm"
)

// Service mediates between the prompt entity model and the persistence
// collaborator, keyed on prompt name.
type Service struct {
	config Config
	store  Store
	cache  Cache
	logger *slog.Logger
}

// NewService creates a new directory service. The cache is optional; pass
// nil to read every Get from the store.
func NewService(config Config, store Store, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config: config,
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Save stamps editing metadata onto the prompt and persists it as a new
// version. created_at/created_by are filled only when the incoming record
// has none; the store carries forward any values already persisted for the
// name, so they are never overwritten once set.
func (s *Service) Save(ctx context.Context, prompt *domain.Prompt, editor string) (*SaveResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	prompt.Metadata.UpdatedAt = now
	prompt.Metadata.LastEditedBy = editor
	if prompt.Metadata.CreatedAt == "" {
		prompt.Metadata.CreatedAt = now
		prompt.Metadata.CreatedBy = editor
	}

	saved, err := s.store.Save(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, saved.Name)

	return &SaveResult{
		ID:        saved.ID,
		Name:      saved.Name,
		Version:   saved.Version,
		UpdatedAt: saved.Metadata.UpdatedAt,
	}, nil
}

// Get returns the structured document for a stored prompt. Version 0 selects
// the latest version, which may be served from cache. A missing record
// surfaces as a typed not-found error, never a partial document.
func (s *Service) Get(ctx context.Context, name string, version int) (map[string]interface{}, error) {
	if version == 0 {
		if doc, ok := s.fromCache(ctx, name); ok {
			return doc, nil
		}
	}

	prompt, err := s.store.GetByName(ctx, name, version)
	if err != nil {
		return nil, err
	}

	doc := prompt.Document()
	if version == 0 {
		s.toCache(ctx, name, doc)
	}
	return doc, nil
}

// List returns the documents of all latest-version prompts matching the
// filter. No match yields an empty slice, never an error.
func (s *Service) List(ctx context.Context, filter Filter) ([]map[string]interface{}, error) {
	filter.Search = strings.TrimSpace(norm.NFC.String(filter.Search))

	prompts, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, len(prompts))
	for i := range prompts {
		docs = append(docs, prompts[i].Document())
	}
	return docs, nil
}

// ParseFilter builds a Filter from raw query values, rejecting unrecognized
// enumeration values.
func ParseFilter(category, status, search string) (Filter, error) {
	var filter Filter

	if category != "" {
		parsed, err := domain.ParseCategory(category)
		if err != nil {
			return Filter{}, err
		}
		filter.Category = parsed
	}
	if status != "" {
		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return Filter{}, err
		}
		filter.Status = parsed
	}
	filter.Search = search

	return filter, nil
}

// Cache failures are logged and absorbed; the store stays authoritative.

func (s *Service) fromCache(ctx context.Context, name string) (map[string]interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, cacheKey(name))
	if err != nil || raw == "" {
		return nil, false
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("dropping corrupt cached prompt",
			slog.String("name", name),
			slog.Any("error", err))
		s.invalidate(ctx, name)
		return nil, false
	}
	return doc, true
}

func (s *Service) toCache(ctx context.Context, name string, doc map[string]interface{}) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(name), data, s.config.CacheTTL); err != nil {
		s.logger.Warn("failed to cache prompt",
			slog.String("name", name),
			slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, name string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(name)); err != nil {
		s.logger.Warn("failed to invalidate cached prompt",
			slog.String("name", name),
			slog.Any("error", err))
	}
}

func cacheKey(name string) string {
	return "prompt:latest:" + name
}

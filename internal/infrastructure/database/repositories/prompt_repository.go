package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/core/services/directory"
	apperrors "github.com/astrocub/prompt-service/internal/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// PromptRepository persists prompt records, one row per (name, version).
//
// Concurrency: two concurrent saves of the same name both read the same
// latest version and race to insert version+1. The unique (name, version)
// index makes the outcome deterministic: the first insert wins, the second
// surfaces a version-conflict error. Rows are inserted whole, so a lost race
// can never produce a partial merge of two payloads.
type PromptRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPromptRepository creates a new repository instance
func NewPromptRepository(db *gorm.DB, logger *slog.Logger) *PromptRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PromptRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts the prompt as a new version of its name. When a prior version
// exists, its created_at/created_by are carried onto the new row (they are
// never overwritten once set) and the version counter advances past the
// latest stored version.
func (r *PromptRepository) Save(ctx context.Context, prompt *domain.Prompt) (*domain.Prompt, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest domain.Prompt
		err := tx.Where("name = ?", prompt.Name).
			Order("version DESC").
			First(&latest).
			Error

		switch {
		case err == nil:
			if latest.Metadata.CreatedAt != "" {
				prompt.Metadata.CreatedAt = latest.Metadata.CreatedAt
			}
			if latest.Metadata.CreatedBy != "" {
				prompt.Metadata.CreatedBy = latest.Metadata.CreatedBy
			}
			prompt.Metadata.Version = latest.Version + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			if prompt.Metadata.Version == 0 {
				prompt.Metadata.Version = 1
			}
		default:
			return fmt.Errorf("failed to read latest version: %w", err)
		}

		prompt.Version = prompt.Metadata.Version
		return tx.Create(prompt).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.logger.Warn("concurrent save lost version race",
				slog.String("name", prompt.Name),
				slog.Int("version", prompt.Version))
			return nil, apperrors.VersionConflict(prompt.Name, prompt.Version)
		}
		r.logger.Error("failed to save prompt",
			slog.String("name", prompt.Name),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	r.logger.Info("saved prompt",
		slog.String("name", prompt.Name),
		slog.Int("version", prompt.Version))

	return prompt, nil
}

// GetByName returns the stored record for a name. Version 0 selects the
// latest version.
func (r *PromptRepository) GetByName(ctx context.Context, name string, version int) (*domain.Prompt, error) {
	var prompt domain.Prompt

	query := r.db.WithContext(ctx).Where("name = ?", name)
	if version > 0 {
		query = query.Where("version = ?", version)
	} else {
		query = query.Order("version DESC")
	}

	if err := query.First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.PromptNotFound(name)
		}
		r.logger.Error("failed to get prompt",
			slog.String("name", name),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	return &prompt, nil
}

// List returns the latest version of every name matching the filter.
// All supplied filters must match. The search term matches as a
// case-insensitive substring of name, display_name or main_prompt; matching
// against any other field is out of contract for callers.
func (r *PromptRepository) List(ctx context.Context, filter directory.Filter) ([]domain.Prompt, error) {
	var prompts []domain.Prompt

	latest := r.db.Model(&domain.Prompt{}).
		Select("name, MAX(version) AS version").
		Group("name")

	query := r.db.WithContext(ctx).
		Joins("JOIN (?) AS latest ON prompts.name = latest.name AND prompts.version = latest.version", latest)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(norm.NFC.String(filter.Search))) + "%"
		query = query.Where(
			"(LOWER(prompts.name) LIKE ? OR LOWER(display_name) LIKE ? OR LOWER(main_prompt) LIKE ?)",
			pattern, pattern, pattern,
		)
	}

	if err := query.Order("prompts.name ASC").Find(&prompts).Error; err != nil {
		r.logger.Error("failed to list prompts", slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	return prompts, nil
}

// ListAll returns the latest version of every stored prompt
func (r *PromptRepository) ListAll(ctx context.Context) ([]domain.Prompt, error) {
	return r.List(ctx, directory.Filter{})
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

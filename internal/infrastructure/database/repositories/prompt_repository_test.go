package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/core/services/directory"
	apperrors "github.com/astrocub/prompt-service/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(pgdriver.Open(connStr), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&domain.Prompt{}, &domain.PipelineEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func buildPrompt(t *testing.T, name, category, status, mainPrompt string) *domain.Prompt {
	t.Helper()
	prompt, err := domain.FromDocument(map[string]interface{}{
		"name":         name,
		"display_name": name,
		"category":     category,
		"status":       status,
		"main_prompt":  mainPrompt,
	})
	require.NoError(t, err)
	return prompt
}

func TestPromptRepository_Save_FirstVersion(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	prompt := buildPrompt(t, "summarizer", "summarization", "draft", "Summarize.")
	prompt.Metadata.CreatedAt = "2025-01-01T00:00:00Z"
	prompt.Metadata.CreatedBy = "alice"

	saved, err := repo.Save(ctx, prompt)
	require.NoError(t, err)

	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, 1, saved.Metadata.Version)
	assert.NotEmpty(t, saved.ID)
}

func TestPromptRepository_Save_IncrementsVersionAndRetainsAuthorship(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	first := buildPrompt(t, "summarizer", "summarization", "draft", "Summarize.")
	first.Metadata.CreatedAt = "2025-01-01T00:00:00Z"
	first.Metadata.CreatedBy = "alice"
	_, err := repo.Save(ctx, first)
	require.NoError(t, err)

	// A resave carries a fresh metadata record, as a client submission would
	second := buildPrompt(t, "summarizer", "summarization", "active", "Summarize concisely.")
	second.Metadata.CreatedAt = "2025-06-01T00:00:00Z"
	second.Metadata.CreatedBy = "mallory"
	saved, err := repo.Save(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, "2025-01-01T00:00:00Z", saved.Metadata.CreatedAt,
		"created_at must survive from the first version")
	assert.Equal(t, "alice", saved.Metadata.CreatedBy)

	// Older versions stay retrievable
	v1, err := repo.GetByName(ctx, "summarizer", 1)
	require.NoError(t, err)
	assert.Equal(t, "Summarize.", v1.MainPrompt)
	assert.Equal(t, domain.StatusDraft, v1.Status)
}

func TestPromptRepository_Save_ConcurrentSavesNeverMerge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromptRepository(db, nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "draft", "base"))
	require.NoError(t, err)

	// Two writers race to become the next version. Either both serialize and
	// land on distinct versions, or one loses the insert race and gets a
	// version conflict. A lost race must never leave a merged row behind.
	results := make(chan error, 2)
	for _, body := range []string{"writer-a", "writer-b"} {
		body := body
		go func() {
			_, err := repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "draft", body))
			results <- err
		}()
	}

	var conflicts int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			require.True(t, apperrors.IsCode(err, apperrors.ErrCodeVersionConflict),
				"only a version conflict is acceptable: %v", err)
			conflicts++
		}
	}
	assert.LessOrEqual(t, conflicts, 1)

	// Every stored row is a whole submission, never a blend of two
	var rows []domain.Prompt
	require.NoError(t, db.Where("name = ?", "summarizer").Order("version ASC").Find(&rows).Error)
	seen := map[int]bool{}
	for _, row := range rows {
		assert.False(t, seen[row.Version], "duplicate version %d stored", row.Version)
		seen[row.Version] = true
		assert.Contains(t, []string{"base", "writer-a", "writer-b"}, row.MainPrompt)
	}
}

func TestPromptRepository_GetByName(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "draft", "v1"))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "draft", "v2"))
	require.NoError(t, err)

	latest, err := repo.GetByName(ctx, "summarizer", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "v2", latest.MainPrompt)

	pinned, err := repo.GetByName(ctx, "summarizer", 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", pinned.MainPrompt)
}

func TestPromptRepository_GetByName_NotFound(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)

	_, err := repo.GetByName(context.Background(), "missing", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePromptNotFound))

	_, err = repo.GetByName(context.Background(), "missing", 7)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePromptNotFound))
}

func TestPromptRepository_List_LatestVersionsOnly(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "draft", "v1"))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "active", "v2"))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "extractor", "extraction", "active", "Extract."))
	require.NoError(t, err)

	prompts, err := repo.List(ctx, directory.Filter{})
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	byName := map[string]domain.Prompt{}
	for _, p := range prompts {
		byName[p.Name] = p
	}
	assert.Equal(t, 2, byName["summarizer"].Version)
	assert.Equal(t, "v2", byName["summarizer"].MainPrompt)
}

func TestPromptRepository_List_FiltersAreConjunctive(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, buildPrompt(t, "active_extractor", "extraction", "active", "Extract."))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "draft_extractor", "extraction", "draft", "Extract."))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "active_summarizer", "summarization", "active", "Summarize."))
	require.NoError(t, err)

	prompts, err := repo.List(ctx, directory.Filter{
		Category: domain.CategoryExtraction,
		Status:   domain.StatusActive,
	})
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "active_extractor", prompts[0].Name)
}

func TestPromptRepository_List_SearchSubstring(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, buildPrompt(t, "ticker_extraction", "extraction", "active", "Find tickers."))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "summarizer", "summarization", "active", "Summarize the TICKER list."))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "classifier", "classification", "active", "Classify."))
	require.NoError(t, err)

	// Case-insensitive, matches name and main_prompt
	prompts, err := repo.List(ctx, directory.Filter{Search: "Ticker"})
	require.NoError(t, err)
	assert.Len(t, prompts, 2)

	// Search combines conjunctively with the other filters
	prompts, err = repo.List(ctx, directory.Filter{
		Search:   "ticker",
		Category: domain.CategoryExtraction,
	})
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "ticker_extraction", prompts[0].Name)
}

func TestPromptRepository_List_EscapesLikeWildcards(t *testing.T) {
	repo := NewPromptRepository(setupTestDB(t), nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, buildPrompt(t, "pct_report", "analysis", "active", "Compute 100% totals."))
	require.NoError(t, err)
	_, err = repo.Save(ctx, buildPrompt(t, "plain", "analysis", "active", "No percent here."))
	require.NoError(t, err)

	prompts, err := repo.List(ctx, directory.Filter{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "pct_report", prompts[0].Name)
}

func TestEventRepository_InsertAndList(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t), nil)
	ctx := context.Background()

	first := &domain.PipelineEvent{
		ProcessID:  "prompt_1736500000_ab12cd34",
		Stage:      domain.EventStageSave,
		Status:     domain.EventStatusStarted,
		PromptName: "summarizer",
		OccurredAt: time.Now().UTC().Add(-time.Second),
	}
	require.NoError(t, repo.Insert(ctx, first))

	second := &domain.PipelineEvent{
		ProcessID:        "prompt_1736500000_ab12cd34",
		Stage:            domain.EventStageSave,
		Status:           domain.EventStatusCompleted,
		PromptName:       "summarizer",
		ProcessingTimeMs: 42,
		OccurredAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, second))

	events, err := repo.ListByProcess(ctx, "prompt_1736500000_ab12cd34")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventStatusStarted, events[0].Status)
	assert.Equal(t, domain.EventStatusCompleted, events[1].Status)
}

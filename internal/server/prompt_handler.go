package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/core/services/directory"
	"github.com/astrocub/prompt-service/internal/core/services/events"
	"github.com/astrocub/prompt-service/internal/core/services/snapshot"
	apperrors "github.com/astrocub/prompt-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// PromptDirectory is the directory service surface the handler depends on
type PromptDirectory interface {
	Save(ctx context.Context, prompt *domain.Prompt, editor string) (*directory.SaveResult, error)
	Get(ctx context.Context, name string, version int) (map[string]interface{}, error)
	List(ctx context.Context, filter directory.Filter) ([]map[string]interface{}, error)
}

// PromptHandler serves the prompt CRUD endpoints
type PromptHandler struct {
	directory PromptDirectory
	recorder  *events.Recorder
	enqueuer  events.Enqueuer
	editor    string
	logger    *slog.Logger
}

// NewPromptHandler creates a new prompt handler. The editor is the acting
// identity stamped on saves until authentication is wired in.
func NewPromptHandler(dir PromptDirectory, recorder *events.Recorder, enqueuer events.Enqueuer, editor string, logger *slog.Logger) *PromptHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &PromptHandler{
		directory: dir,
		recorder:  recorder,
		enqueuer:  enqueuer,
		editor:    editor,
		logger:    logger,
	}
}

// SavePrompt handles POST /genetl/api/prompt
func (h *PromptHandler) SavePrompt(c *gin.Context) {
	processID := events.NewProcessID()
	start := time.Now()

	var doc map[string]interface{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		badRequestResponse(c, "invalid request body: "+err.Error())
		return
	}

	prompt, err := domain.FromDocument(doc)
	if err != nil {
		h.recordEvent(c, processID, domain.EventStageSave, domain.EventStatusFailed, stringMapValue(doc, "name"), err.Error(), start)
		internalErrorResponse(c, err)
		return
	}

	if !prompt.Validate() {
		h.recordEvent(c, processID, domain.EventStageSave, domain.EventStatusFailed, prompt.Name, "invalid prompt data", start)
		badRequestResponse(c, "invalid prompt data")
		return
	}

	result, err := h.directory.Save(c.Request.Context(), prompt, h.editor)
	if err != nil {
		h.recordEvent(c, processID, domain.EventStageSave, domain.EventStatusFailed, prompt.Name, err.Error(), start)
		errorResponse(c, err)
		return
	}

	h.recordEvent(c, processID, domain.EventStageSave, domain.EventStatusCompleted, prompt.Name, "", start)
	c.JSON(http.StatusOK, result)
}

// GetPrompt handles GET /genetl/api/prompt/:name
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	name := c.Param("name")

	version := 0
	if raw := c.Query("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequestResponse(c, "version must be a positive integer")
			return
		}
		version = parsed
	}

	doc, err := h.directory.Get(c.Request.Context(), name, version)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodePromptNotFound) {
			notFoundResponse(c, "Prompt not found")
			return
		}
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// ListPrompts handles GET /genetl/api/prompts
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	filter, err := directory.ParseFilter(c.Query("category"), c.Query("status"), c.Query("search"))
	if err != nil {
		badRequestResponse(c, err.Error())
		return
	}

	docs, err := h.directory.List(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prompts": docs})
}

// SnapshotPrompts handles POST /genetl/api/prompts/snapshot. The export
// itself runs asynchronously on the task queue.
func (h *PromptHandler) SnapshotPrompts(c *gin.Context) {
	if h.enqueuer == nil {
		internalErrorResponse(c, apperrors.Internal("task queue not configured"))
		return
	}

	snapshotID := snapshot.NewSnapshotID()
	task, err := snapshot.NewTask(snapshotID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	if _, err := h.enqueuer.EnqueueContext(c.Request.Context(), task); err != nil {
		errorResponse(c, apperrors.QueueError(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"snapshot_id": snapshotID})
}

func (h *PromptHandler) recordEvent(c *gin.Context, processID, stage, status, promptName, errorMessage string, start time.Time) {
	if h.recorder == nil {
		return
	}

	h.recorder.Record(c.Request.Context(), domain.PipelineEvent{
		ProcessID:        processID,
		Stage:            stage,
		Status:           status,
		PromptName:       promptName,
		ErrorMessage:     errorMessage,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		OccurredAt:       time.Now().UTC(),
	})
}

func stringMapValue(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

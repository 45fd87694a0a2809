package snapshot

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/astrocub/prompt-service/internal/core/domain"
	"github.com/astrocub/prompt-service/internal/infrastructure/queue"
	"github.com/astrocub/prompt-service/internal/infrastructure/storage"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	prompts []domain.Prompt
	err     error
}

func (f *fakeLister) ListAll(ctx context.Context) ([]domain.Prompt, error) {
	return f.prompts, f.err
}

type fakeArchive struct {
	snapshotID string
	docs       []map[string]interface{}
	err        error
}

func (f *fakeArchive) WriteSnapshot(ctx context.Context, snapshotID string, docs []map[string]interface{}) (*storage.SnapshotMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.snapshotID = snapshotID
	f.docs = docs
	return &storage.SnapshotMetadata{ID: snapshotID, Records: len(docs), CreatedAt: time.Now()}, nil
}

func listerWith(t *testing.T, names ...string) *fakeLister {
	t.Helper()
	var prompts []domain.Prompt
	for _, name := range names {
		prompt, err := domain.FromDocument(map[string]interface{}{
			"name":         name,
			"display_name": name,
			"category":     "other",
			"main_prompt":  "Do the thing.",
		})
		require.NoError(t, err)
		prompts = append(prompts, *prompt)
	}
	return &fakeLister{prompts: prompts}
}

func TestNewTask(t *testing.T) {
	task, err := NewTask("prompts-20250110-090000")
	require.NoError(t, err)
	assert.Equal(t, queue.TaskTypePromptSnapshot, task.Type())
	assert.JSONEq(t, `{"snapshot_id": "prompts-20250110-090000"}`, string(task.Payload()))
}

func TestNewSnapshotID_Format(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^prompts-\d{8}-\d{6}$`), NewSnapshotID())
}

func TestService_HandleSnapshotTask(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewService(listerWith(t, "summarizer", "extractor"), archive, nil)

	task, err := NewTask("prompts-test")
	require.NoError(t, err)
	require.NoError(t, svc.HandleSnapshotTask(context.Background(), task))

	assert.Equal(t, "prompts-test", archive.snapshotID)
	require.Len(t, archive.docs, 2)
	assert.Equal(t, "summarizer", archive.docs[0]["name"])
}

func TestService_HandleSnapshotTask_EmptyPayloadGeneratesID(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewService(listerWith(t), archive, nil)

	task := asynq.NewTask(queue.TaskTypePromptSnapshot, []byte("{}"))
	require.NoError(t, svc.HandleSnapshotTask(context.Background(), task))
	assert.Regexp(t, `^prompts-`, archive.snapshotID)
}

func TestService_HandleSnapshotTask_MalformedPayloadSkipsRetry(t *testing.T) {
	svc := NewService(listerWith(t), &fakeArchive{}, nil)

	task := asynq.NewTask(queue.TaskTypePromptSnapshot, []byte("{broken"))
	err := svc.HandleSnapshotTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestService_HandleSnapshotTask_ListerErrorRetries(t *testing.T) {
	svc := NewService(&fakeLister{err: errors.New("db down")}, &fakeArchive{}, nil)

	task, err := NewTask("prompts-test")
	require.NoError(t, err)
	err = svc.HandleSnapshotTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

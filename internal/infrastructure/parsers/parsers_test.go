package parsers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestJSONParser_Array(t *testing.T) {
	parser := NewJSONParser(nil)

	result, err := parser.ParseStream(context.Background(), strings.NewReader(
		`[{"name": "summarizer", "category": "summarization"}, {"name": "extractor"}]`))
	require.NoError(t, err)

	assert.Equal(t, "JSON", result.Format)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "summarizer", result.Documents[0]["name"])
	assert.Equal(t, 2, result.TotalRecords)
}

func TestJSONParser_SingleObject(t *testing.T) {
	parser := NewJSONParser(nil)

	result, err := parser.ParseStream(context.Background(), strings.NewReader(
		`{"name": "summarizer", "tags": ["earnings"]}`))
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, "summarizer", result.Documents[0]["name"])
}

func TestJSONParser_SkipsEmptyDocuments(t *testing.T) {
	parser := NewJSONParser(nil)

	result, err := parser.ParseStream(context.Background(), strings.NewReader(
		`[{"name": "summarizer"}, {}, {"name": "extractor"}]`))
	require.NoError(t, err)

	assert.Len(t, result.Documents, 2)
	assert.Equal(t, 1, result.SkippedRecords)
	assert.Equal(t, 3, result.TotalRecords)
}

func TestJSONParser_MalformedInput(t *testing.T) {
	parser := NewJSONParser(nil)

	_, err := parser.ParseStream(context.Background(), strings.NewReader(`{broken`))
	assert.Error(t, err)
}

func TestJSONParser_FileSizeLimit(t *testing.T) {
	parser := NewJSONParser(&ParserConfig{MaxFileSize: 8})
	path := writeTempFile(t, "big.json", `[{"name": "summarizer"}]`)

	_, err := parser.Parse(context.Background(), path)
	assert.Error(t, err)
}

func TestJSONLParser_SkipsMalformedLines(t *testing.T) {
	parser := NewJSONLParser(nil)

	input := strings.Join([]string{
		`{"name": "summarizer"}`,
		`{broken`,
		``,
		`{"name": "extractor"}`,
	}, "\n")

	result, err := parser.ParseStream(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "JSONL", result.Format)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "summarizer", result.Documents[0]["name"])
	assert.Equal(t, "extractor", result.Documents[1]["name"])
	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, 2, result.SkippedRecords)
}

func TestJSONLParser_ContextCancellation(t *testing.T) {
	parser := NewJSONLParser(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parser.ParseStream(ctx, strings.NewReader(`{"name": "summarizer"}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParserFactory_SelectsByExtension(t *testing.T) {
	factory := NewParserFactory(nil)

	tests := []struct {
		path      string
		supported bool
	}{
		{"prompts.json", true},
		{"prompts.JSONL", true},
		{"prompts.ndjson", true},
		{"prompts.csv", false},
		{"prompts.xlsx", false},
		{"prompts.txt", false},
	}

	for _, tt := range tests {
		_, err := factory.GetParserForFile(tt.path)
		if tt.supported {
			assert.NoError(t, err, tt.path)
		} else {
			assert.Error(t, err, tt.path)
		}
	}
}

func TestParserFactory_ParseFile(t *testing.T) {
	factory := NewParserFactory(nil)
	path := writeTempFile(t, "prompts.jsonl",
		`{"name": "summarizer", "display_name": "Summarizer", "category": "summarization", "main_prompt": "Summarize."}`)

	result, err := factory.ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "summarizer", result.Documents[0]["name"])
}

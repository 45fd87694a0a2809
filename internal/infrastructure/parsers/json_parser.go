package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONParser parses prompt documents from JSON files: either a top-level
// array of documents or a single document object
type JSONParser struct {
	config *ParserConfig
}

// NewJSONParser creates a new JSON parser
func NewJSONParser(config *ParserConfig) *JSONParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONParser{
		config: config,
	}
}

// Parse reads and parses a JSON file from disk
func (p *JSONParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	// Check file size if limit is set
	if p.config.MaxFileSize > 0 {
		stat, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > p.config.MaxFileSize {
			return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), p.config.MaxFileSize)
		}
	}

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses JSON data from an io.Reader
func (p *JSONParser) ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	// Buffer the stream so a single-object body can be re-decoded after
	// the array probe consumes its first token
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON stream: %w", err)
	}

	var documents []Document
	skipped := 0

	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	if delim, ok := token.(json.Delim); ok && delim == '[' {
		// Array of documents
		for decoder.More() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			var doc Document
			if err := decoder.Decode(&doc); err != nil {
				return nil, fmt.Errorf("failed to decode JSON document: %w", err)
			}
			if p.config.SkipEmptyDocuments && len(doc) == 0 {
				skipped++
				continue
			}
			documents = append(documents, doc)
		}

		if _, err := decoder.Token(); err != nil {
			return nil, fmt.Errorf("failed to read closing bracket: %w", err)
		}
	} else {
		// Single document
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON document: %w", err)
		}
		documents = []Document{doc}
	}

	return &ParseResult{
		Documents:      documents,
		TotalRecords:   len(documents) + skipped,
		SkippedRecords: skipped,
		Format:         "JSON",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONParser) SupportedFormats() []string {
	return []string{".json"}
}

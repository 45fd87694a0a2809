package parsers

import (
	"context"
	"io"
)

// Document represents a single prompt document as a nested map
type Document map[string]interface{}

// ParseResult contains parsing statistics
type ParseResult struct {
	Documents      []Document
	TotalRecords   int
	SkippedRecords int
	Format         string
}

// FileParser is the interface all prompt-document parsers must implement
type FileParser interface {
	// Parse reads and parses the file from the given path
	Parse(ctx context.Context, filePath string) (*ParseResult, error)

	// ParseStream reads and parses from an io.Reader
	ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// SkipEmptyDocuments determines if empty documents should be skipped
	SkipEmptyDocuments bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyDocuments: true,
		MaxFileSize:        50 * 1024 * 1024, // 50 MB
	}
}

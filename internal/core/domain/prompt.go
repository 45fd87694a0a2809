package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// PromptCategory classifies what a prompt template is used for
type PromptCategory string

const (
	CategoryExtraction     PromptCategory = "extraction"
	CategorySummarization  PromptCategory = "summarization"
	CategoryAnalysis       PromptCategory = "analysis"
	CategoryTransformation PromptCategory = "transformation"
	CategoryClassification PromptCategory = "classification"
	CategoryOther          PromptCategory = "other"
)

// ValidCategories returns list of valid prompt categories
func ValidCategories() []PromptCategory {
	return []PromptCategory{
		CategoryExtraction,
		CategorySummarization,
		CategoryAnalysis,
		CategoryTransformation,
		CategoryClassification,
		CategoryOther,
	}
}

// ParseCategory maps a string to a PromptCategory, case-insensitively
func ParseCategory(value string) (PromptCategory, error) {
	candidate := PromptCategory(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range ValidCategories() {
		if c == candidate {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid prompt category: %q", value)
}

// PromptStatus tracks where a prompt is in its lifecycle
type PromptStatus string

const (
	StatusDraft    PromptStatus = "draft"
	StatusActive   PromptStatus = "active"
	StatusArchived PromptStatus = "archived"
	StatusTesting  PromptStatus = "testing"
)

// ValidStatuses returns list of valid prompt statuses
func ValidStatuses() []PromptStatus {
	return []PromptStatus{StatusDraft, StatusActive, StatusArchived, StatusTesting}
}

// ParseStatus maps a string to a PromptStatus, case-insensitively
func ParseStatus(value string) (PromptStatus, error) {
	candidate := PromptStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range ValidStatuses() {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid prompt status: %q", value)
}

// PromptMetadata tracks authorship and versioning of a prompt record
type PromptMetadata struct {
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	CreatedBy    string `json:"created_by"`
	LastEditedBy string `json:"last_edited_by"`
	Version      int    `json:"version"`
	IsFavorite   bool   `json:"is_favorite"`
}

// DefaultMetadata returns a fresh metadata record. Every prompt gets its own
// instance; metadata is never shared between records.
func DefaultMetadata() PromptMetadata {
	return PromptMetadata{Version: 1}
}

// Prompt is a named, categorized template of instructional text plus
// structured expectations about its input and output. One row is stored per
// (name, version); the latest version is the live record for a name.
//
// OutputFormat and InputSchema hold whatever the caller supplied: either a
// structured document or its serialized string form. A string form that does
// not parse as JSON makes the record invalid (Validate), not unconstructable.
type Prompt struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_prompts_name_version,priority:1" json:"name"`
	Version        int            `gorm:"not null;default:1;uniqueIndex:idx_prompts_name_version,priority:2" json:"version"`
	DisplayName    string         `gorm:"type:varchar(255);not null" json:"display_name"`
	Category       PromptCategory `gorm:"type:varchar(50);not null;index:idx_prompts_category" json:"category"`
	Status         PromptStatus   `gorm:"type:varchar(50);not null;default:'draft';index:idx_prompts_status" json:"status"`
	MainPrompt     string         `gorm:"type:text;not null" json:"main_prompt"`
	Description    string         `gorm:"type:text" json:"description,omitempty"`
	SystemPrompt   string         `gorm:"type:text" json:"system_prompt,omitempty"`
	Notes          string         `gorm:"type:text" json:"notes,omitempty"`
	ExampleInput   string         `gorm:"type:text" json:"example_input,omitempty"`
	ExampleOutput  string         `gorm:"type:text" json:"example_output,omitempty"`
	OutputFormat   interface{}    `gorm:"type:jsonb;serializer:json" json:"output_format,omitempty"`
	InputSchema    interface{}    `gorm:"type:jsonb;serializer:json" json:"input_schema,omitempty"`
	UISectionOrder JSONB          `gorm:"type:jsonb" json:"ui_section_order,omitempty"`
	Guidelines     []string       `gorm:"type:jsonb;serializer:json" json:"guidelines,omitempty"`
	Tags           []string       `gorm:"type:jsonb;serializer:json" json:"tags"`
	Metadata       PromptMetadata `gorm:"type:jsonb;serializer:json" json:"metadata"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for GORM
func (Prompt) TableName() string {
	return "prompts"
}

// BeforeCreate GORM hook
func (p *Prompt) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Metadata.Version == 0 {
		p.Metadata.Version = 1
	}
	if p.Version == 0 {
		p.Version = p.Metadata.Version
	}
	return nil
}

// FromDocument builds a Prompt from a structured key-value document.
// The name, display_name, category and main_prompt keys must be present;
// category and status values must map to a known enumeration member.
func FromDocument(doc map[string]interface{}) (*Prompt, error) {
	for _, key := range []string{"name", "display_name", "category", "main_prompt"} {
		if _, ok := doc[key]; !ok {
			return nil, fmt.Errorf("missing required field %q", key)
		}
	}

	category, err := ParseCategory(stringValue(doc["category"]))
	if err != nil {
		return nil, err
	}

	status := StatusDraft
	if raw, ok := doc["status"]; ok && raw != nil {
		status, err = ParseStatus(stringValue(raw))
		if err != nil {
			return nil, err
		}
	}

	return &Prompt{
		Name:           stringValue(doc["name"]),
		DisplayName:    stringValue(doc["display_name"]),
		Category:       category,
		Status:         status,
		MainPrompt:     stringValue(doc["main_prompt"]),
		Description:    stringValue(doc["description"]),
		SystemPrompt:   stringValue(doc["system_prompt"]),
		Notes:          stringValue(doc["notes"]),
		ExampleInput:   stringValue(doc["example_input"]),
		ExampleOutput:  stringValue(doc["example_output"]),
		OutputFormat:   doc["output_format"],
		InputSchema:    doc["input_schema"],
		UISectionOrder: mapValue(doc["ui_section_order"]),
		Guidelines:     stringSlice(doc["guidelines"]),
		Tags:           NormalizeTags(stringSlice(doc["tags"])),
		Metadata:       metadataFromDocument(doc["metadata"]),
		Version:        versionFromDocument(doc["metadata"]),
	}, nil
}

// Document converts the prompt to its structured key-value representation.
// It is the exact inverse of FromDocument for any record FromDocument produced.
func (p *Prompt) Document() map[string]interface{} {
	var uiOrder map[string]interface{}
	if p.UISectionOrder != nil {
		uiOrder = map[string]interface{}(p.UISectionOrder)
	}

	return map[string]interface{}{
		"name":             p.Name,
		"display_name":     p.DisplayName,
		"category":         string(p.Category),
		"main_prompt":      p.MainPrompt,
		"description":      p.Description,
		"system_prompt":    p.SystemPrompt,
		"output_format":    p.OutputFormat,
		"input_schema":     p.InputSchema,
		"guidelines":       p.Guidelines,
		"example_input":    p.ExampleInput,
		"example_output":   p.ExampleOutput,
		"notes":            p.Notes,
		"tags":             p.Tags,
		"status":           string(p.Status),
		"ui_section_order": uiOrder,
		"metadata": map[string]interface{}{
			"created_at":     p.Metadata.CreatedAt,
			"updated_at":     p.Metadata.UpdatedAt,
			"created_by":     p.Metadata.CreatedBy,
			"last_edited_by": p.Metadata.LastEditedBy,
			"version":        p.Metadata.Version,
			"is_favorite":    p.Metadata.IsFavorite,
		},
	}
}

// Validate reports whether the record is well-formed. It never returns an
// error: a malformed output_format or input_schema string is absorbed into
// false. It does not mutate the prompt.
func (p *Prompt) Validate() bool {
	if p.Name == "" || p.DisplayName == "" || p.MainPrompt == "" {
		return false
	}
	if !validStructured(p.OutputFormat) {
		return false
	}
	if !validStructured(p.InputSchema) {
		return false
	}
	return true
}

// validStructured accepts nil, structured documents, and strings that parse
// as JSON. Only a non-empty string that fails to parse is rejected.
func validStructured(v interface{}) bool {
	s, ok := v.(string)
	if !ok || s == "" {
		return true
	}
	return json.Valid([]byte(s))
}

// NormalizeTags canonicalizes tags to NFC lower-case form, dropping blanks
// and duplicates. The result is sorted; tag order carries no meaning.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		folded := strings.ToLower(strings.TrimSpace(norm.NFC.String(tag)))
		if folded == "" {
			continue
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	sort.Strings(out)
	return out
}

func metadataFromDocument(v interface{}) PromptMetadata {
	meta := DefaultMetadata()
	m, ok := v.(map[string]interface{})
	if !ok {
		return meta
	}

	meta.CreatedAt = stringValue(m["created_at"])
	meta.UpdatedAt = stringValue(m["updated_at"])
	meta.CreatedBy = stringValue(m["created_by"])
	meta.LastEditedBy = stringValue(m["last_edited_by"])
	if ver := intValue(m["version"]); ver > 0 {
		meta.Version = ver
	}
	if fav, ok := m["is_favorite"].(bool); ok {
		meta.IsFavorite = fav
	}
	return meta
}

func versionFromDocument(v interface{}) int {
	if m, ok := v.(map[string]interface{}); ok {
		if ver := intValue(m["version"]); ver > 0 {
			return ver
		}
	}
	return 1
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func mapValue(v interface{}) JSONB {
	m, _ := v.(map[string]interface{})
	return JSONB(m)
}

// intValue accepts Go ints and the float64 produced by encoding/json
func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	default:
		return 0
	}
}

func stringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Package schemas embeds the CareerRoadmap and FluencyResult JSON Schemas and
// validates documents against them.
package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed career_roadmap.schema.json
var roadmapSchemaJSON []byte

//go:embed fluency_result.schema.json
var fluencyResultSchemaJSON []byte

// RoadmapSchemaName is the schema name sent to providers that require one
const RoadmapSchemaName = "roadmap"

// each embedded schema is compiled once, on first use
var (
	roadmapSchema       = compileOnce("career_roadmap.schema.json", roadmapSchemaJSON)
	fluencyResultSchema = compileOnce("fluency_result.schema.json", fluencyResultSchemaJSON)
)

func compileOnce(name string, doc []byte) func() (*gojsonschema.Schema, error) {
	return sync.OnceValues(func() (*gojsonschema.Schema, error) {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
		if err != nil {
			return nil, &SchemaLoadError{Path: name, Message: "schema compilation failed", Cause: err}
		}
		return schema, nil
	})
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// DocumentError is returned when the document is not parseable JSON
type DocumentError struct {
	Cause error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document is not valid JSON: %v", e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// RoadmapSchema returns the embedded schema decoded into generic maps.
// Each call returns a fresh value that callers may mutate.
func RoadmapSchema() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(roadmapSchemaJSON, &m); err != nil {
		return nil, &SchemaLoadError{Path: "career_roadmap.schema.json", Message: "invalid embedded schema", Cause: err}
	}
	return m, nil
}

// ValidateRoadmapJSON validates a CareerRoadmap document against the embedded schema
func ValidateRoadmapJSON(document []byte) error {
	return validateDocument(roadmapSchema, document)
}

// ValidateFluencyResultJSON validates a scoring backend response. The score
// object and transcript are required and every score must lie in [0, 100].
func ValidateFluencyResultJSON(document []byte) error {
	return validateDocument(fluencyResultSchema, document)
}

func validateDocument(compiled func() (*gojsonschema.Schema, error), document []byte) error {
	if !json.Valid(document) {
		var v any
		return &DocumentError{Cause: json.Unmarshal(document, &v)}
	}
	schema, err := compiled()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &DocumentError{Cause: err}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

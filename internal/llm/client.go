package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// StructuredRequest describes one schema-constrained generation
type StructuredRequest struct {
	SystemPrompt string
	UserPrompt   string
	// SchemaName is required by OpenAI strict mode and ignored by Gemini
	SchemaName string
	// Schema is a JSON Schema document decoded into generic maps
	Schema map[string]any
	Tier   ModelTier
}

// StructuredClient generates a JSON document constrained to a schema.
// The returned document is syntactically valid JSON; shape checks are the caller's job.
type StructuredClient interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
	Provider() Provider
	Close() error
}

// NoResultError means the provider answered but produced nothing usable:
// no candidates, a refusal, a blocked prompt, truncation or non-JSON text.
type NoResultError struct {
	Provider Provider
	Reason   string
}

func (e *NoResultError) Error() string {
	return fmt.Sprintf("%s returned no structured result: %s", e.Provider, e.Reason)
}

// ProviderError means the call to the provider failed: transport, auth, rate limit or timeout.
// Message is the upstream description and must not be shown to end users.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s request failed: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewClient creates a structured client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (StructuredClient, error) {
	if config == nil {
		config = DefaultConfig(ProviderOpenAI)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", config.Provider)
	}
}

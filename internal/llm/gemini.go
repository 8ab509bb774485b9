package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient implements StructuredClient for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultGeminiConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Provider returns ProviderGemini
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// GenerateStructured asks Gemini for a JSON response constrained by req.Schema
func (c *GeminiClient) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	schema, err := ToGenaiSchema(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to convert response schema: %w", err)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}
	return DecodeJSONObject(ProviderGemini, text)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// classifyGeminiError separates blocked generations from call failures
func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &NoResultError{Provider: ProviderGemini, Reason: blocked.Error()}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   ProviderGemini,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Cause:      err,
		}
	}
	return &ProviderError{Provider: ProviderGemini, Message: "generate content", Cause: err}
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &NoResultError{Provider: ProviderGemini, Reason: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "", &NoResultError{Provider: ProviderGemini, Reason: "candidate blocked: " + candidate.FinishReason.String()}
	case genai.FinishReasonMaxTokens:
		return "", &NoResultError{Provider: ProviderGemini, Reason: "response truncated at max tokens"}
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &NoResultError{Provider: ProviderGemini, Reason: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", &NoResultError{Provider: ProviderGemini, Reason: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}

// ToGenaiSchema converts a JSON Schema map into the subset Gemini understands.
// Union types of the form [T, "null"] become T with Nullable set.
func ToGenaiSchema(node map[string]any) (*genai.Schema, error) {
	if node == nil {
		return nil, fmt.Errorf("schema is nil")
	}

	typeName, nullable, err := schemaType(node["type"])
	if err != nil {
		return nil, err
	}

	s := &genai.Schema{Nullable: nullable}
	if desc, ok := node["description"].(string); ok {
		s.Description = desc
	}

	switch typeName {
	case "string":
		s.Type = genai.TypeString
		if enum, ok := node["enum"].([]any); ok {
			s.Format = "enum"
			for _, v := range enum {
				str, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("enum value %v is not a string", v)
				}
				s.Enum = append(s.Enum, str)
			}
		}
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
		items, ok := node["items"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("array schema has no items")
		}
		if s.Items, err = ToGenaiSchema(items); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
	case "object":
		s.Type = genai.TypeObject
		props, _ := node["properties"].(map[string]any)
		s.Properties = make(map[string]*genai.Schema, len(props))
		for _, name := range sortedKeys(props) {
			child, ok := props[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %s is not a schema", name)
			}
			if s.Properties[name], err = ToGenaiSchema(child); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		s.Required = stringList(node["required"])
	default:
		return nil, fmt.Errorf("unsupported schema type %q", typeName)
	}
	return s, nil
}

// schemaType reads a "type" keyword, allowing a single non-null type plus "null"
func schemaType(v any) (string, bool, error) {
	switch t := v.(type) {
	case string:
		return t, false, nil
	case []any:
		var name string
		nullable := false
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", false, fmt.Errorf("type entry %v is not a string", item)
			}
			if s == "null" {
				nullable = true
				continue
			}
			if name != "" {
				return "", false, fmt.Errorf("union of %s and %s is not supported", name, s)
			}
			name = s
		}
		if name == "" {
			return "", false, fmt.Errorf("type list has no non-null type")
		}
		return name, nullable, nil
	default:
		return "", false, fmt.Errorf("missing or invalid type keyword")
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

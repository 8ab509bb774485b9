package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an upstream error body is read
const maxErrorBody = 64 << 10

// OpenAIClient implements StructuredClient over the Chat Completions API
// using strict json_schema response formats.
type OpenAIClient struct {
	httpClient *http.Client
	config     *Config
	apiKey     string
	baseURL    string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultOpenAIConfig()
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: timeout},
		config:     config,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}, nil
}

// Provider returns ProviderOpenAI
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// Close releases idle connections held by the HTTP client
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content *string `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// GenerateStructured sends one Chat Completions request with a strict json_schema format
func (c *OpenAIClient) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", req.Tier)
	}
	name := req.SchemaName
	if name == "" {
		name = "response"
	}

	body := chatRequest{
		Model:       modelName,
		Temperature: c.config.Temperature,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   name,
				Strict: true,
				Schema: ToStrictSchema(req.Schema),
			},
		},
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.UserPrompt})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := http.StatusText(resp.StatusCode)
		var apiErr apiErrorBody
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "failed to decode response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &NoResultError{Provider: ProviderOpenAI, Reason: "no choices in response"}
	}

	choice := parsed.Choices[0]
	if choice.Message.Refusal != nil && *choice.Message.Refusal != "" {
		return nil, &NoResultError{Provider: ProviderOpenAI, Reason: "refusal: " + *choice.Message.Refusal}
	}
	switch choice.FinishReason {
	case "length":
		return nil, &NoResultError{Provider: ProviderOpenAI, Reason: "response truncated at max tokens"}
	case "content_filter":
		return nil, &NoResultError{Provider: ProviderOpenAI, Reason: "content filtered"}
	}
	if choice.Message.Content == nil {
		return nil, &NoResultError{Provider: ProviderOpenAI, Reason: "empty content"}
	}
	return DecodeJSONObject(ProviderOpenAI, *choice.Message.Content)
}

// ToStrictSchema returns a copy of a JSON Schema in the form strict mode accepts:
// every object lists all properties as required and forbids extra properties,
// and properties that were optional become nullable.
func ToStrictSchema(node map[string]any) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		switch k {
		case "$schema", "$id", "title":
			continue
		}
		out[k] = v
	}

	if items, ok := node["items"].(map[string]any); ok {
		out["items"] = ToStrictSchema(items)
	}

	props, ok := node["properties"].(map[string]any)
	if !ok {
		return out
	}

	required := make(map[string]bool)
	for _, name := range stringList(node["required"]) {
		required[name] = true
	}

	strictProps := make(map[string]any, len(props))
	names := sortedKeys(props)
	for _, name := range names {
		child, ok := props[name].(map[string]any)
		if !ok {
			strictProps[name] = props[name]
			continue
		}
		child = ToStrictSchema(child)
		if !required[name] {
			child["type"] = withNull(child["type"])
		}
		strictProps[name] = child
	}

	requiredList := make([]any, 0, len(names))
	for _, name := range names {
		requiredList = append(requiredList, name)
	}
	out["properties"] = strictProps
	out["required"] = requiredList
	out["additionalProperties"] = false
	return out
}

func withNull(t any) any {
	switch v := t.(type) {
	case string:
		if v == "null" {
			return v
		}
		return []any{v, "null"}
	case []any:
		for _, item := range v {
			if item == "null" {
				return v
			}
		}
		return append(append([]any{}, v...), "null")
	}
	return t
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]any{
			"role": map[string]any{"type": "string"},
			"tags": map[string]any{"type": "array", "items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":  map[string]any{"type": "string"},
					"hours": map[string]any{"type": "number"},
				},
				"required": []any{"name"},
			}},
		},
		"required": []any{"role", "tags"},
	}
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = server.URL
	client, err := NewOpenAIClient(cfg, "test-key")
	require.NoError(t, err)
	return client
}

func contentResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAIClient_GenerateStructured_Success(t *testing.T) {
	var captured chatRequest
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(contentResponse(`{"role":"Frontend Developer","tags":[]}`))
	})

	raw, err := client.GenerateStructured(context.Background(), StructuredRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		SchemaName:   "roadmap",
		Schema:       testSchema(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"Frontend Developer","tags":[]}`, string(raw))

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Content)
	assert.Equal(t, "json_schema", captured.ResponseFormat.Type)
	assert.Equal(t, "roadmap", captured.ResponseFormat.JSONSchema.Name)
	assert.True(t, captured.ResponseFormat.JSONSchema.Strict)
	assert.Equal(t, false, captured.ResponseFormat.JSONSchema.Schema["additionalProperties"])
}

func TestOpenAIClient_GenerateStructured_NoResult(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"no choices", map[string]any{"choices": []any{}}},
		{"refusal", map[string]any{"choices": []any{map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"content": nil, "refusal": "I can't help with that"},
		}}}},
		{"null content", map[string]any{"choices": []any{map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"content": nil},
		}}}},
		{"truncated", map[string]any{"choices": []any{map[string]any{
			"finish_reason": "length",
			"message":       map[string]any{"content": `{"role":`},
		}}}},
		{"not json", contentResponse("Here is your roadmap!")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.body)
			})
			_, err := client.GenerateStructured(context.Background(), StructuredRequest{UserPrompt: "u", Schema: testSchema()})

			var noResult *NoResultError
			require.ErrorAs(t, err, &noResult)
			assert.Equal(t, ProviderOpenAI, noResult.Provider)
		})
	}
}

func TestOpenAIClient_GenerateStructured_ProviderError(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided: sk-abc","type":"invalid_request_error"}}`))
	})

	_, err := client.GenerateStructured(context.Background(), StructuredRequest{UserPrompt: "u", Schema: testSchema()})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
	assert.Contains(t, provErr.Message, "Incorrect API key")
}

func TestOpenAIClient_GenerateStructured_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = url
	client, err := NewOpenAIClient(cfg, "k")
	require.NoError(t, err)

	_, err = client.GenerateStructured(context.Background(), StructuredRequest{UserPrompt: "u", Schema: testSchema()})
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Zero(t, provErr.StatusCode)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(nil, "")
	assert.Error(t, err)
}

func TestToStrictSchema(t *testing.T) {
	strict := ToStrictSchema(testSchema())

	assert.NotContains(t, strict, "$schema")
	assert.Equal(t, false, strict["additionalProperties"])
	assert.Equal(t, []any{"role", "tags"}, strict["required"])

	tags := strict["properties"].(map[string]any)["tags"].(map[string]any)
	item := tags["items"].(map[string]any)
	assert.Equal(t, []any{"hours", "name"}, item["required"])
	assert.Equal(t, false, item["additionalProperties"])

	hours := item["properties"].(map[string]any)["hours"].(map[string]any)
	assert.Equal(t, []any{"number", "null"}, hours["type"])
	name := item["properties"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, "string", name["type"])

	// input is not mutated
	orig := testSchema()["properties"].(map[string]any)["tags"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []any{"name"}, orig["required"])
}

func TestToStrictSchema_KeepsExistingNullable(t *testing.T) {
	strict := ToStrictSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contributors": map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
		},
	})
	c := strict["properties"].(map[string]any)["contributors"].(map[string]any)
	assert.Equal(t, []any{"array", "null"}, c["type"])
	assert.Equal(t, []any{"contributors"}, strict["required"])
}

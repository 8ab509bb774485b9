package llm

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestToGenaiSchema(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{"type": "string", "enum": []any{"beginner", "advanced"}},
			"hours": map[string]any{"type": []any{"number", "null"}},
			"paid":  map[string]any{"type": "boolean"},
			"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"level", "paid", "tags"},
	}

	s, err := ToGenaiSchema(schema)
	require.NoError(t, err)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"level", "paid", "tags"}, s.Required)

	level := s.Properties["level"]
	assert.Equal(t, genai.TypeString, level.Type)
	assert.Equal(t, "enum", level.Format)
	assert.Equal(t, []string{"beginner", "advanced"}, level.Enum)

	hours := s.Properties["hours"]
	assert.Equal(t, genai.TypeNumber, hours.Type)
	assert.True(t, hours.Nullable)

	assert.Equal(t, genai.TypeBoolean, s.Properties["paid"].Type)
	assert.Equal(t, genai.TypeArray, s.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)
}

func TestToGenaiSchema_Errors(t *testing.T) {
	_, err := ToGenaiSchema(nil)
	assert.Error(t, err)

	_, err = ToGenaiSchema(map[string]any{"type": "array"})
	assert.Error(t, err)

	_, err = ToGenaiSchema(map[string]any{"type": []any{"string", "number"}})
	assert.Error(t, err)
}

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonStop,
		Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"role":`), genai.Text(`"x"}`)}},
	}}}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"role":"x"}`, text)
}

func TestExtractTextFromResponse_NoResult(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"safety", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}},
		{"max tokens", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonMaxTokens}}}},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractTextFromResponse(tt.resp)
			var noResult *NoResultError
			assert.ErrorAs(t, err, &noResult)
		})
	}
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota exceeded"})
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)

	err = classifyGeminiError(errors.New("connection reset"))
	require.ErrorAs(t, err, &provErr)
	assert.Zero(t, provErr.StatusCode)

	err = classifyGeminiError(&genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}})
	var noResult *NoResultError
	assert.ErrorAs(t, err, &noResult)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), nil, "")
	assert.Error(t, err)
}

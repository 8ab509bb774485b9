package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "valid_roadmap.json"))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestValidateRoadmapJSON_Valid(t *testing.T) {
	assert.NoError(t, ValidateRoadmapJSON(mustMarshal(t, loadFixture(t))))
}

func TestValidateRoadmapJSON_OptionalFieldsMayBeNull(t *testing.T) {
	m := loadFixture(t)
	m["metadata"].(map[string]any)["contributors"] = nil
	phase := m["phases"].([]any)[0].(map[string]any)
	phase["resources"].([]any)[0].(map[string]any)["estimatedHours"] = nil

	assert.NoError(t, ValidateRoadmapJSON(mustMarshal(t, m)))
}

func TestValidateRoadmapJSON_EmptyArraysAllowed(t *testing.T) {
	m := loadFixture(t)
	m["softSkills"] = []any{}
	m["phases"] = []any{}

	assert.NoError(t, ValidateRoadmapJSON(mustMarshal(t, m)))
}

func TestValidateRoadmapJSON_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		field  string
	}{
		{
			name:   "missing required array",
			mutate: func(m map[string]any) { delete(m, "commonPitfalls") },
			field:  "(root)",
		},
		{
			name: "unknown phase level",
			mutate: func(m map[string]any) {
				m["phases"].([]any)[0].(map[string]any)["level"] = "expert"
			},
			field: "phases.0.level",
		},
		{
			name: "unknown resource type",
			mutate: func(m map[string]any) {
				phase := m["phases"].([]any)[0].(map[string]any)
				phase["resources"].([]any)[0].(map[string]any)["type"] = "podcast"
			},
			field: "phases.0.resources.0.type",
		},
		{
			name:   "wrong type",
			mutate: func(m map[string]any) { m["stack"] = "React" },
			field:  "stack",
		},
		{
			name:   "unexpected property",
			mutate: func(m map[string]any) { m["salary"] = 100 },
			field:  "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadFixture(t)
			tt.mutate(m)

			err := ValidateRoadmapJSON(mustMarshal(t, m))
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateRoadmapJSON_NotJSON(t *testing.T) {
	err := ValidateRoadmapJSON([]byte("Sorry, I can't help with that."))
	require.Error(t, err)

	var docErr *DocumentError
	assert.ErrorAs(t, err, &docErr)
}

func TestRoadmapSchema_FreshCopy(t *testing.T) {
	a, err := RoadmapSchema()
	require.NoError(t, err)
	a["type"] = "mutated"

	b, err := RoadmapSchema()
	require.NoError(t, err)
	assert.Equal(t, "object", b["type"])
	assert.Contains(t, b["required"], "phases")
}

func TestValidateFluencyResultJSON(t *testing.T) {
	valid := `{
  "score": {"accuracyScore": 82, "fluencyScore": 74.5, "completenessScore": 100, "pronunciationScore": 0},
  "wordWiseScore": [{"word": "hello", "score": 91}],
  "transcript": "hello",
  "sessionId": "extra fields are tolerated"
}`
	assert.NoError(t, ValidateFluencyResultJSON([]byte(valid)))
	assert.NoError(t, ValidateFluencyResultJSON([]byte(`{"score": {"accuracyScore": 1, "fluencyScore": 2, "completenessScore": 3, "pronunciationScore": 4}, "transcript": ""}`)),
		"word scores are optional")

	tests := []struct {
		name string
		body string
	}{
		{"null", `null`},
		{"empty object", `{}`},
		{"unrelated object", `{"unexpected": true}`},
		{"missing transcript", `{"score": {"accuracyScore": 1, "fluencyScore": 2, "completenessScore": 3, "pronunciationScore": 4}}`},
		{"partial score", `{"score": {"accuracyScore": 1}, "transcript": "hi"}`},
		{"score out of range", `{"score": {"accuracyScore": 101, "fluencyScore": 2, "completenessScore": 3, "pronunciationScore": 4}, "transcript": "hi"}`},
		{"word without score", `{"score": {"accuracyScore": 1, "fluencyScore": 2, "completenessScore": 3, "pronunciationScore": 4}, "wordWiseScore": [{"word": "a"}], "transcript": "a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFluencyResultJSON([]byte(tt.body))
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	var docErr *DocumentError
	assert.ErrorAs(t, ValidateFluencyResultJSON([]byte("<html>")), &docErr)
}

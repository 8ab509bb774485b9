package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/career-roadmap/internal/audio"
	"github.com/jonathan/career-roadmap/internal/fluency"
	"github.com/jonathan/career-roadmap/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WavAudio string `json:"wavAudio"`
			Language string `json:"language"`
		}
		if r.URL.Path != fluency.DefaultPath || json.NewDecoder(r.Body).Decode(&body) != nil || body.WavAudio == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"bad audio"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(types.FluencyResult{
			Score:         types.Scores{PronunciationScore: 80, AccuracyScore: 90, FluencyScore: 70, CompletenessScore: 100},
			WordWiseScore: []types.WordScore{{Word: "hello", Score: 30}, {Word: body.Language, Score: 95}},
			Transcript:    "hello",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.wav")
	wav := audio.EncodePCM16(make([]int16, 8000), 8000, 2)
	require.NoError(t, os.WriteFile(path, wav, 0o644))
	return path
}

func TestFluencyCommand_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROADMAP_SCORING__BASE_URL", scoringBackend(t).URL)

	stdout, _, err := runCLI(t, "fluency", "--in", writeCapture(t), "--language", "en")
	require.NoError(t, err)
	assert.Contains(t, stdout, "FLUENCY SCORE")
	assert.Contains(t, stdout, "hello 30")
	assert.Contains(t, stdout, "en 95")
}

func TestFluencyCommand_JSON(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROADMAP_SCORING__BASE_URL", scoringBackend(t).URL)
	t.Setenv("ROADMAP_SCORING__LANGUAGE", "de")

	stdout, _, err := runCLI(t, "fluency", "--in", writeCapture(t), "--json")
	require.NoError(t, err)

	var got types.FluencyResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "de", got.WordWiseScore[1].Word)
}

func TestFluencyCommand_BackendMessage(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model offline"}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("ROADMAP_SCORING__BASE_URL", srv.URL)

	_, _, err := runCLI(t, "fluency", "--in", writeCapture(t))
	require.Error(t, err)
	assert.Equal(t, "model offline (network_error)", err.Error())
}

func TestFluencyCommand_FlagErrors(t *testing.T) {
	clearEnv(t)

	_, _, err := runCLI(t, "fluency")
	assert.Error(t, err)

	_, _, err = runCLI(t, "fluency", "--in", "a.wav", "--record")
	assert.Error(t, err)

	_, _, err = runCLI(t, "fluency", "--record", "--duration", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--duration must be positive")
}

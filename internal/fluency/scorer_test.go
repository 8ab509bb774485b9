package fluency

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{
  "score": {"accuracyScore": 82, "fluencyScore": 74.5, "completenessScore": 100, "pronunciationScore": 80},
  "wordWiseScore": [{"word": "hello", "score": 91}, {"word": "world", "score": 39}],
  "transcript": "hello world"
}`

func newTestScorer(t *testing.T, handler http.HandlerFunc) *HTTPScorer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewHTTPScorer(&ScorerOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	return s
}

func TestHTTPScorer_Success(t *testing.T) {
	wav := []byte("RIFF....WAVE")
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.WavAudio)
		require.NoError(t, err)
		assert.Equal(t, wav, decoded)
		assert.Equal(t, "en", req.Language)

		_, _ = w.Write([]byte(okBody))
	})

	result, err := s.Score(context.Background(), wav, "")
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.Score.PronunciationScore)
	require.Len(t, result.WordWiseScore, 2)
	assert.Equal(t, "world", result.WordWiseScore[1].Word)
	assert.Equal(t, "hello world", result.Transcript)
}

func TestHTTPScorer_ErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field verbatim", http.StatusInternalServerError, `{"error":"bad audio"}`, "bad audio"},
		{"message wins over error", http.StatusBadRequest, `{"message":"too short","error":"bad audio"}`, "too short"},
		{"blank message falls through", http.StatusBadRequest, `{"message":"  ","error":"bad audio"}`, "bad audio"},
		{"no body", http.StatusBadGateway, ``, "Failed to analyze pronunciation"},
		{"non-JSON body", http.StatusInternalServerError, `<html>oops</html>`, "Failed to analyze pronunciation"},
		{"control characters stripped", http.StatusInternalServerError, "{\"error\":\"bad\\u0000 audio\\n\"}", "bad audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := s.Score(context.Background(), []byte("wav"), "en")
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.NetworkError))
			assert.Equal(t, tt.want, apperr.UserMessage(err))
		})
	}
}

func TestHTTPScorer_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not JSON", `hello`},
		{"null", `null`},
		{"empty object", `{}`},
		{"unrelated object", `{"unexpected": true}`},
		{"missing transcript", `{"score": {"accuracyScore": 1, "fluencyScore": 2, "completenessScore": 3, "pronunciationScore": 4}}`},
		{"wrong types", `{"score": "high"}`},
		{"score above range", `{"score": {"accuracyScore": 101}, "wordWiseScore": [], "transcript": ""}`},
		{"negative word score", `{"score": {}, "wordWiseScore": [{"word": "a", "score": -1}], "transcript": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			result, err := s.Score(context.Background(), []byte("wav"), "en")
			assert.True(t, apperr.IsKind(err, apperr.ParseError), "got %v", err)
			assert.Nil(t, result)
		})
	}
}

func TestHTTPScorer_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := NewHTTPScorer(&ScorerOptions{BaseURL: url, Path: "score"})
	require.NoError(t, err)
	assert.Equal(t, url+"/score", s.Endpoint())

	_, err = s.Score(context.Background(), []byte("wav"), "en")
	assert.True(t, apperr.IsKind(err, apperr.NetworkError))
	assert.Equal(t, "Failed to analyze pronunciation", apperr.UserMessage(err))
}

func TestNewHTTPScorer_InvalidEndpoint(t *testing.T) {
	_, err := NewHTTPScorer(&ScorerOptions{BaseURL: "localhost"})
	assert.Error(t, err)

	s, err := NewHTTPScorer(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/dev/fluencyChecker", s.Endpoint())
}

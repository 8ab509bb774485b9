// Package fluency captures a bounded audio segment, normalizes it and obtains
// a pronunciation score from the scoring backend.
package fluency

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/rendering"
	"github.com/jonathan/career-roadmap/internal/schemas"
	"github.com/jonathan/career-roadmap/internal/types"
)

// Scoring backend defaults
const (
	DefaultBaseURL  = "http://localhost:3001"
	DefaultPath     = "/dev/fluencyChecker"
	DefaultLanguage = "en"
	DefaultTimeout  = 60 * time.Second
)

const maxScoreBody = 1 << 20

// Scorer obtains a pronunciation score for a normalized WAV capture
type Scorer interface {
	Score(ctx context.Context, wav []byte, language string) (*types.FluencyResult, error)
}

// ScorerOptions configures the HTTP scorer
type ScorerOptions struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultScorerOptions returns options pointing at a local scoring backend
func DefaultScorerOptions() *ScorerOptions {
	return &ScorerOptions{
		BaseURL: DefaultBaseURL,
		Path:    DefaultPath,
		Timeout: DefaultTimeout,
	}
}

// HTTPScorer posts {wavAudio, language} to the scoring backend
type HTTPScorer struct {
	endpoint   string
	httpClient *http.Client
}

type scoreRequest struct {
	WavAudio string `json:"wavAudio"`
	Language string `json:"language"`
}

type scoreErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewHTTPScorer validates the endpoint and builds the client
func NewHTTPScorer(opts *ScorerOptions) (*HTTPScorer, error) {
	if opts == nil {
		opts = DefaultScorerOptions()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	endpoint := base + path
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid scoring endpoint %q", endpoint)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPScorer{endpoint: endpoint, httpClient: client}, nil
}

// Endpoint returns the full scoring URL
func (s *HTTPScorer) Endpoint() string {
	return s.endpoint
}

// Score submits the capture. A non-2xx response becomes a NetworkError whose
// message is the backend's message, else its error, else the generic fallback.
// A 2xx body that is not a complete FluencyResult is a ParseError.
func (s *HTTPScorer) Score(ctx context.Context, wav []byte, language string) (*types.FluencyResult, error) {
	if language == "" {
		language = DefaultLanguage
	}
	payload, err := json.Marshal(scoreRequest{
		WavAudio: base64.StdEncoding.EncodeToString(wav),
		Language: language,
	})
	if err != nil {
		return nil, apperr.New(apperr.NetworkError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.New(apperr.NetworkError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.NetworkError, fmt.Errorf("scoring request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScoreBody))
	if err != nil {
		return nil, apperr.New(apperr.NetworkError, fmt.Errorf("failed to read scoring response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperr.Error{
			Kind:    apperr.NetworkError,
			Message: backendMessage(body),
			Cause:   fmt.Errorf("scoring backend returned HTTP status %d", resp.StatusCode),
		}
	}

	if err := schemas.ValidateFluencyResultJSON(body); err != nil {
		return nil, apperr.New(apperr.ParseError, fmt.Errorf("malformed scoring response: %w", err))
	}
	var result types.FluencyResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperr.New(apperr.ParseError, fmt.Errorf("malformed scoring response: %w", err))
	}
	if err := result.Validate(); err != nil {
		return nil, apperr.New(apperr.ParseError, err)
	}
	return &result, nil
}

// backendMessage picks the display text for a failed scoring call
func backendMessage(body []byte) string {
	var e scoreErrorBody
	if err := json.Unmarshal(body, &e); err == nil {
		if msg := rendering.SanitizeDisplayText(e.Message); msg != "" {
			return msg
		}
		if msg := rendering.SanitizeDisplayText(e.Error); msg != "" {
			return msg
		}
	}
	return apperr.DefaultMessage(apperr.NetworkError)
}

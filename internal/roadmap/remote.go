package roadmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/types"
)

// GeneratePath is the generation endpoint served by the HTTP server
const GeneratePath = "/api/generate-roadmap"

// DefaultRemoteTimeout bounds one remote generation call
const DefaultRemoteTimeout = 150 * time.Second

const maxRemoteBody = 4 << 20

// GenerateResponse is the body of a successful generation call
type GenerateResponse struct {
	Message *types.CareerRoadmap `json:"message"`
}

// ErrorResponse is the body of a failed generation call
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// RemoteClient calls a running service's generation endpoint
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient returns a client for baseURL (e.g. "http://localhost:8080")
func NewRemoteClient(baseURL string, timeout time.Duration) (*RemoteClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteClient{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}, nil
}

// Generate posts {role, stack} and maps error bodies back to apperr kinds
func (c *RemoteClient) Generate(ctx context.Context, req types.RoadmapRequest) (*types.CareerRoadmap, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.New(apperr.BadRequest, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.New(apperr.NetworkError, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Newf(apperr.NetworkError, err, "Could not reach the roadmap service")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, apperr.Newf(apperr.NetworkError, err, "Could not reach the roadmap service")
	}

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		_ = json.Unmarshal(body, &e)
		kind := apperr.ParseKind(e.Error)
		if kind == apperr.Unknown {
			kind = apperr.GenerationFailed
		}
		msg := e.Message
		if msg == "" {
			msg = apperr.DefaultMessage(kind)
		}
		return nil, &apperr.Error{Kind: kind, Message: msg, Cause: fmt.Errorf("remote status %d", resp.StatusCode)}
	}

	var ok struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &ok); err != nil {
		return nil, apperr.New(apperr.ParseError, err)
	}
	if len(ok.Message) == 0 || string(ok.Message) == "null" {
		return nil, apperr.New(apperr.GenerationFailed, nil)
	}
	return DecodeRoadmap(ok.Message)
}

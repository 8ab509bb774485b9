package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/jonathan/career-roadmap/internal/fluency"
	"github.com/jonathan/career-roadmap/internal/rendering"
)

// FluencyUpload is the JSON form of POST /api/fluency
type FluencyUpload struct {
	// Audio is the base64-encoded capture in any supported container
	Audio    string `json:"audio"`
	Language string `json:"language"`
}

// handleFluencyPage renders the recorder
func (s *Server) handleFluencyPage(w http.ResponseWriter, r *http.Request) {
	page := rendering.FluencyPage{
		Language: s.language(r.URL.Query().Get("language")),
		Endpoint: "/api/fluency",
		Ready:    s.deps.Fluency.Ready(),
	}
	s.renderHTML(w, r, http.StatusOK, func(out io.Writer) error {
		return s.deps.Renderer.RenderFluency(out, page)
	})
}

// handleFluency scores one uploaded capture
func (s *Server) handleFluency(w http.ResponseWriter, r *http.Request) {
	capture, language, err := s.readCapture(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	result, err := s.deps.Fluency.Score(ctx, fluency.BytesOpener(capture), language)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleFluencyStream scores one capture and streams the session states as
// SSE: one "state" event per transition, then "complete" or "error".
func (s *Server) handleFluencyStream(w http.ResponseWriter, r *http.Request) {
	capture, language, err := s.readCapture(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Message: err.Error(), Error: "streaming_unsupported"})
		return
	}

	ctx := context.WithoutCancel(r.Context())
	result, err := s.deps.Fluency.Score(ctx, fluency.BytesOpener(capture), language,
		fluency.WithStateHandler(func(st fluency.State) { sse.WriteState(string(st)) }),
	)
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteComplete(result)
}

// readCapture accepts a raw body of any content type, or JSON {audio, language}
func (s *Server) readCapture(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	// base64 inflates by 4/3
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*4/3+maxJSONBody)
	language := r.URL.Query().Get("language")

	if isJSON(r.Header.Get("Content-Type")) {
		var upload FluencyUpload
		if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
			return nil, "", wrapBodyError(err, "Invalid request body")
		}
		data, err := base64.StdEncoding.DecodeString(upload.Audio)
		if err != nil {
			return nil, "", badRequest(err, "Audio must be base64 encoded")
		}
		if upload.Language != "" {
			language = upload.Language
		}
		return s.checkCapture(data, language)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", wrapBodyError(err, "Failed to read audio upload")
	}
	return s.checkCapture(data, language)
}

func (s *Server) checkCapture(data []byte, language string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", badRequest(errors.New("empty upload"), "No audio was uploaded")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, "", wrapBodyError(&http.MaxBytesError{Limit: s.cfg.MaxUploadBytes}, "")
	}
	return data, s.language(language), nil
}

func (s *Server) language(l string) string {
	l = strings.TrimSpace(l)
	if l == "" {
		return s.cfg.Language
	}
	return l
}

// wrapBodyError keeps MaxBytesError visible to HTTPStatus
func wrapBodyError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return badRequest(err, "The audio upload is too large")
	}
	return badRequest(err, message)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/rendering"
	"github.com/jonathan/career-roadmap/internal/roadmap"
	"github.com/jonathan/career-roadmap/internal/server/middleware"
	"github.com/jonathan/career-roadmap/internal/types"
)

// GenerateRequest is the body of POST /api/generate-roadmap
type GenerateRequest struct {
	Role  string `json:"role"`
	Stack string `json:"stack"`
}

// handleIndex renders the empty form
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderHTML(w, r, http.StatusOK, func(out io.Writer) error {
		return s.deps.Renderer.RenderIndex(out, indexData(types.RoadmapRequest{}, nil, nil))
	})
}

// handleRoadmapForm generates from the submitted form. A failure re-renders
// the form with the prior input and the error, never with an earlier roadmap.
func (s *Server) handleRoadmapForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		s.renderFormError(w, r, types.RoadmapRequest{}, badRequest(err, "Invalid form submission"))
		return
	}
	req := types.RoadmapRequest{
		Role:  strings.TrimSpace(r.PostForm.Get("role")),
		Stack: strings.TrimSpace(r.PostForm.Get("stack")),
	}

	result, err := s.generate(r, req)
	if err != nil {
		s.renderFormError(w, r, req, err)
		return
	}
	s.renderHTML(w, r, http.StatusOK, func(out io.Writer) error {
		return s.deps.Renderer.RenderIndex(out, indexData(req, result, nil))
	})
}

func (s *Server) renderFormError(w http.ResponseWriter, r *http.Request, req types.RoadmapRequest, err error) {
	s.logger.Warn("roadmap form failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
	s.renderHTML(w, r, HTTPStatus(err), func(out io.Writer) error {
		return s.deps.Renderer.RenderIndex(out, indexData(req, nil, err))
	})
}

// handleGenerateRoadmap responds 200 {message: roadmap} or {message, error: kind}
func (s *Server) handleGenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, r, badRequest(err, "Invalid request body"))
		return
	}

	result, err := s.generate(r, types.RoadmapRequest{Role: body.Role, Stack: body.Stack})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, roadmap.GenerateResponse{Message: result})
}

// generate runs the provider call detached from client cancellation; the
// generator bounds it with the provider timeout.
func (s *Server) generate(r *http.Request, req types.RoadmapRequest) (*types.CareerRoadmap, error) {
	ctx := context.WithoutCancel(r.Context())
	return s.deps.Roadmaps.Generate(ctx, req)
}

// renderHTML renders into a buffer first so a template failure can still become a 500
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("failed to render page",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func indexData(req types.RoadmapRequest, result *types.CareerRoadmap, err error) rendering.IndexData {
	data := rendering.IndexData{Role: req.Role, Stack: req.Stack, Roadmap: result}
	if err != nil {
		data.Error = apperr.UserMessage(err)
	}
	return data
}

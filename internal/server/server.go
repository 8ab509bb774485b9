// Package server provides the HTTP surface for roadmap generation and fluency scoring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/audio"
	"github.com/jonathan/career-roadmap/internal/fluency"
	"github.com/jonathan/career-roadmap/internal/logging"
	"github.com/jonathan/career-roadmap/internal/metrics"
	"github.com/jonathan/career-roadmap/internal/rendering"
	"github.com/jonathan/career-roadmap/internal/roadmap"
	"github.com/jonathan/career-roadmap/internal/server/middleware"
	"github.com/jonathan/career-roadmap/internal/server/ratelimit"
)

// Defaults for Config fields left zero
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxUploadBytes  = 20 << 20
	maxJSONBody            = 64 << 10
	notReadyRetrySeconds   = 2
)

// Config holds server configuration
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       *ratelimit.Config
	MaxUploadBytes  int64
	// Language is used when a fluency upload does not name one
	Language string
}

// Deps are the collaborators the handlers call
type Deps struct {
	Roadmaps roadmap.Service
	Fluency  *fluency.Service
	// Transcoder is initialized in the background by Run
	Transcoder audio.Transcoder
	Renderer   *rendering.Renderer
	Logger     *logging.Logger
	Metrics    *metrics.Manager
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	deps        Deps
	logger      *logging.Logger
	httpServer  *http.Server
	rateLimiter *ratelimit.Limiter
	handler     http.Handler
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Roadmaps == nil {
		return nil, errors.New("roadmap service is required")
	}
	if deps.Fluency == nil {
		return nil, errors.New("fluency service is required")
	}
	if deps.Renderer == nil {
		r, err := rendering.New()
		if err != nil {
			return nil, err
		}
		deps.Renderer = r
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Language == "" {
		cfg.Language = fluency.DefaultLanguage
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		logger:      logging.OrNop(deps.Logger).Named("server"),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /roadmap", s.handleRoadmapForm)
	mux.HandleFunc("POST "+roadmap.GeneratePath, s.handleGenerateRoadmap)

	mux.HandleFunc("GET /fluency", s.handleFluencyPage)
	mux.HandleFunc("POST /api/fluency", s.handleFluency)
	mux.HandleFunc("POST /api/fluency/stream", s.handleFluencyStream)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	s.handler = middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog(deps.Logger, deps.Metrics),
		middleware.CORS(cfg.CORSOrigins),
		s.withRateLimit,
	)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      300 * time.Second, // model calls take minutes
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run initializes the transcoder, serves until ctx is done, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.deps.Transcoder != nil {
		g.Go(func() error {
			if err := s.deps.Transcoder.Init(gctx); err != nil && gctx.Err() == nil {
				s.logger.Error("audio transcoder failed to initialize", "error", err)
			}
			s.logger.Info("audio transcoder initialized", "ready", s.deps.Transcoder.Ready())
			return nil
		})
	}

	g.Go(func() error {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		defer s.rateLimiter.Stop()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.deps.Metrics.IncRateLimited(r.URL.Path)
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"fluency_ready": s.deps.Fluency.Ready(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", "error", err)
	}
}

// errorResponse logs the cause and writes {message, error}
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if apperr.IsKind(err, apperr.NotReady) {
		// the transcoder finishes initializing shortly after start-up
		w.Header().Set("Retry-After", strconv.Itoa(notReadyRetrySeconds))
	}
	s.logger.Warn("request failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	s.jsonResponse(w, status, errorBody(err))
}

// extractClientID uses the IP address from RemoteAddr
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Info("rate limit exceeded",
		"request_id", middleware.GetRequestID(r.Context()),
		"client", extractClientID(r),
		"path", r.URL.Path,
		"limit", info.Limit,
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

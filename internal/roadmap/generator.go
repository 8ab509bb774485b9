// Package roadmap turns a role and technology stack into a validated CareerRoadmap.
package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/llm"
	"github.com/jonathan/career-roadmap/internal/logging"
	"github.com/jonathan/career-roadmap/internal/metrics"
	"github.com/jonathan/career-roadmap/internal/prompts"
	"github.com/jonathan/career-roadmap/internal/schemas"
	"github.com/jonathan/career-roadmap/internal/types"
)

// Service produces roadmaps. Generator and RemoteClient both implement it.
type Service interface {
	Generate(ctx context.Context, req types.RoadmapRequest) (*types.CareerRoadmap, error)
}

// Generator calls a structured-output model once per request and validates the result
type Generator struct {
	client  llm.StructuredClient
	logger  *logging.Logger
	metrics *metrics.Manager
	tier    llm.ModelTier
	timeout time.Duration
	schema  map[string]any
	prompts prompts.RoadmapPrompts
}

// Option customizes a Generator
type Option func(*Generator)

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithMetrics sets the metrics manager
func WithMetrics(m *metrics.Manager) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithTier selects the model tier
func WithTier(t llm.ModelTier) Option {
	return func(g *Generator) { g.tier = t }
}

// WithTimeout bounds each provider call. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// NewGenerator loads the roadmap prompts and schema and returns a Generator
func NewGenerator(client llm.StructuredClient, opts ...Option) (*Generator, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	instructions, err := prompts.Roadmap()
	if err != nil {
		return nil, err
	}
	schema, err := schemas.RoadmapSchema()
	if err != nil {
		return nil, err
	}

	g := &Generator{
		client:  client,
		tier:    llm.TierStandard,
		schema:  schema,
		prompts: instructions,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrNop(g.logger).Named("roadmap")
	return g, nil
}

// BuildPrompts returns the system and user instructions for a request
func (g *Generator) BuildPrompts(req types.RoadmapRequest) (system, user string) {
	return g.prompts.System, g.prompts.UserFor(req.Role, req.Stack)
}

// Generate makes one provider call. There is no retry; callers re-submit.
func (g *Generator) Generate(ctx context.Context, req types.RoadmapRequest) (*types.CareerRoadmap, error) {
	if err := req.Validate(); err != nil {
		return nil, &apperr.Error{Kind: apperr.BadRequest, Message: "Role and stack must be at most 2000 characters", Cause: err}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	provider := string(g.client.Provider())
	log := g.logger.With("provider", provider, "role", req.Role)
	start := time.Now()
	log.Info("roadmap generation started")

	roadmap, err := g.generate(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		kind := apperr.KindOf(err)
		g.metrics.ObserveGeneration(provider, string(kind), elapsed)
		log.Warn("roadmap generation failed", "kind", kind, "duration", elapsed, "error", err)
		return nil, err
	}

	g.metrics.ObserveGeneration(provider, metrics.OutcomeSuccess, elapsed)
	log.Info("roadmap generation succeeded", "phases", len(roadmap.Phases), "duration", elapsed)
	return roadmap, nil
}

func (g *Generator) generate(ctx context.Context, req types.RoadmapRequest) (*types.CareerRoadmap, error) {
	system, user := g.BuildPrompts(req)
	raw, err := g.client.GenerateStructured(ctx, llm.StructuredRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		SchemaName:   schemas.RoadmapSchemaName,
		Schema:       g.schema,
		Tier:         g.tier,
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return DecodeRoadmap(raw)
}

// DecodeRoadmap validates raw JSON against the schema and the typed enums.
// Any deviation is a ValidationError; nothing is coerced.
func DecodeRoadmap(raw []byte) (*types.CareerRoadmap, error) {
	if err := schemas.ValidateRoadmapJSON(raw); err != nil {
		var docErr *schemas.DocumentError
		if errors.As(err, &docErr) {
			return nil, apperr.New(apperr.GenerationFailed, err)
		}
		return nil, apperr.New(apperr.ValidationError, err)
	}

	var roadmap types.CareerRoadmap
	if err := json.Unmarshal(raw, &roadmap); err != nil {
		return nil, apperr.New(apperr.ValidationError, err)
	}
	if err := roadmap.Validate(); err != nil {
		return nil, apperr.New(apperr.ValidationError, err)
	}
	return &roadmap, nil
}

func classifyProviderError(err error) error {
	var noResult *llm.NoResultError
	if errors.As(err, &noResult) {
		return apperr.New(apperr.GenerationFailed, err)
	}
	return apperr.New(apperr.ProviderError, err)
}

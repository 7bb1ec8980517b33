// Package service sequences the plan generation pipeline: prompt building,
// greedy generation, JSON recovery, and domain validation.
package service

import (
	"context"
	"log/slog"

	"github.com/runassist/planner/internal/engine"
	"github.com/runassist/planner/internal/jsonutil"
	"github.com/runassist/planner/internal/plan"
	"github.com/runassist/planner/internal/prompt"
)

// rawPreviewLen bounds the diagnostic preview of raw model output. The
// preview is observability only; it never feeds back into the pipeline.
const rawPreviewLen = 2000

// PlannerService turns a free-text user profile into a training-plan
// document. Generation-quality problems come back as data ("{}" or the
// invalid-plan payload); only backend faults come back as errors.
type PlannerService struct {
	engine *engine.Engine
	logger *slog.Logger
}

// PlannerOption is a functional option for configuring PlannerService.
type PlannerOption func(*PlannerService)

// WithLogger sets the logger used for generation diagnostics.
func WithLogger(logger *slog.Logger) PlannerOption {
	return func(s *PlannerService) {
		s.logger = logger
	}
}

// NewPlannerService creates a PlannerService over an engine the caller has
// already initialized (or will initialize before the first call).
func NewPlannerService(eng *engine.Engine, opts ...PlannerOption) *PlannerService {
	s := &PlannerService{
		engine: eng,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ready reports whether the underlying engine can generate.
func (s *PlannerService) Ready() bool {
	return s.engine.Ready()
}

// GeneratePlan builds the prompt for profile, runs one bounded generation,
// and returns a repaired plan candidate or a terminal payload. When the
// engine is not ready it returns "{}" immediately.
func (s *PlannerService) GeneratePlan(ctx context.Context, profile string, maxTokens int) (string, error) {
	if !s.engine.Ready() {
		return "{}", nil
	}

	p := prompt.Build(profile)

	raw, err := s.engine.Generate(ctx, p, maxTokens)
	if err != nil {
		return "", err
	}

	s.logger.Debug("raw generation output",
		"size", len(raw),
		"head", previewOf(raw),
	)

	cand := jsonutil.ExtractFirstJSON(raw)
	if !jsonutil.LooksLikeJSON(cand) {
		cand = "{}"
	}

	return plan.CheckAndFix(cand), nil
}

func previewOf(raw string) string {
	if len(raw) > rawPreviewLen {
		return raw[:rawPreviewLen]
	}
	return raw
}

// Package analysis is the application-facing surface for win-win evaluation:
// it translates transport-level documents into domain calls, wires the
// memoization layer, and records operational telemetry.
package analysis

import (
	"context"
	"time"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/winwin"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// EntityInput pairs a profile with its value components.
type EntityInput struct {
	Profile    entity.Profile          `json:"profile"`
	Components []entity.ValueComponent `json:"components"`
}

// AnalyzeRequest is the document accepted by Analyze and Rebalance.
type AnalyzeRequest struct {
	Entities []EntityInput `json:"entities"`
}

// AnalyzeResponse wraps the population verdict.
type AnalyzeResponse struct {
	Verdict   *winwin.Verdict `json:"verdict"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// RebalanceResponse wraps the corrective plan for a non-win-win population.
type RebalanceResponse struct {
	Plan      *winwin.RebalancePlan `json:"plan"`
	ElapsedMS int64                 `json:"elapsed_ms"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service exposes win-win evaluation to the interface layer.
type Service interface {
	// Analyze evaluates the population and returns the verdict.
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)

	// Rebalance proposes a corrective plan lifting every loser to a win.
	Rebalance(ctx context.Context, req AnalyzeRequest) (*RebalanceResponse, error)
}

type service struct {
	analyzer   winwin.Analyzer
	rebalancer winwin.Rebalancer
	logger     logging.Logger
	metrics    *prometheus.EngineMetrics
}

// ServiceConfig carries Service dependencies.
type ServiceConfig struct {
	Analyzer   winwin.Analyzer
	Rebalancer winwin.Rebalancer
	Logger     logging.Logger

	// Metrics may be nil; recording is then skipped.
	Metrics *prometheus.EngineMetrics
}

// NewService constructs the standard Service.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Analyzer == nil {
		return nil, errors.InvalidParam("analysis service requires an analyzer")
	}
	if cfg.Rebalancer == nil {
		return nil, errors.InvalidParam("analysis service requires a rebalancer")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &service{
		analyzer:   cfg.Analyzer,
		rebalancer: cfg.Rebalancer,
		logger:     cfg.Logger.Named("analysis"),
		metrics:    cfg.Metrics,
	}, nil
}

func (s *service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	profiles, components, err := splitInputs(req.Entities)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	verdict, err := s.analyzer.AnalyzeDeal(ctx, profiles, components)
	if err != nil {
		s.metrics.RecordError(errors.ModuleForCode(errors.GetCode(err)), string(errors.GetCode(err)))
		return nil, err
	}
	elapsed := time.Since(start)

	for _, res := range verdict.EntityValues {
		s.metrics.RecordValuation(res.IsWin)
	}
	s.metrics.RecordVerdict(verdict.IsWinWin, verdict.ValueInequalityGini)

	s.logger.Info("population analyzed",
		logging.Int("entities", len(req.Entities)),
		logging.Bool("win_win", verdict.IsWinWin),
		logging.Float64("gini", verdict.ValueInequalityGini),
		logging.Duration("elapsed", elapsed))

	return &AnalyzeResponse{Verdict: verdict, ElapsedMS: elapsed.Milliseconds()}, nil
}

func (s *service) Rebalance(ctx context.Context, req AnalyzeRequest) (*RebalanceResponse, error) {
	profiles, components, err := splitInputs(req.Entities)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	plan, err := s.rebalancer.Rebalance(ctx, profiles, components)
	if err != nil {
		s.metrics.RecordError(errors.ModuleForCode(errors.GetCode(err)), string(errors.GetCode(err)))
		return nil, err
	}
	elapsed := time.Since(start)

	s.logger.Info("rebalance proposed",
		logging.Int("transfers", len(plan.Transfers)),
		logging.Int("top_ups", len(plan.ExternalTopUps)),
		logging.Duration("elapsed", elapsed))

	return &RebalanceResponse{Plan: plan, ElapsedMS: elapsed.Milliseconds()}, nil
}

// splitInputs converts the request list into the keyed maps the domain layer
// consumes, rejecting duplicate entities.
func splitInputs(inputs []EntityInput) (map[common.ID]entity.Profile, map[common.ID][]entity.ValueComponent, error) {
	profiles := make(map[common.ID]entity.Profile, len(inputs))
	components := make(map[common.ID][]entity.ValueComponent, len(inputs))
	for _, in := range inputs {
		id := in.Profile.EntityID
		if _, dup := profiles[id]; dup {
			return nil, nil, errors.Newf(errors.CodeInvalidParam, "entity %s appears twice in request", id)
		}
		profiles[id] = in.Profile
		components[id] = in.Components
	}
	return profiles, components, nil
}

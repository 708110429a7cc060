package prometheus

import (
	"time"
)

// EngineMetrics holds every instrument the engine records.  Constructed once
// at startup and injected into services; a nil *EngineMetrics is valid and
// records nothing, so library users who skip monitoring pay no cost.
type EngineMetrics struct {
	// Valuation / evaluation
	ValuationsTotal    CounterVec // entity valuations performed, by outcome
	EvaluationDuration HistogramVec
	WinWinVerdicts     CounterVec // win_win vs not_win_win
	GiniObserved       HistogramVec

	// Cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Optimizer
	OptimizeDuration HistogramVec // by strategy (greedy, exhaustive)
	BranchesExplored CounterVec
	RoadmapSize      HistogramVec
	OptIncomplete    CounterVec // budget-bounded runs returning partial roadmaps

	// Monte Carlo
	SimulationDuration HistogramVec

	// Errors
	ErrorsTotal CounterVec // by module prefix and code
}

// Bucket layouts tuned to the engine's scale: evaluations are sub-millisecond
// to tens of milliseconds, optimizations sub-second to minutes.
var (
	DefaultEvalBuckets     = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5}
	DefaultOptimizeBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120}
	DefaultRoadmapBuckets  = []float64{0, 1, 2, 4, 8, 16, 32, 64, 128}
	DefaultGiniBuckets     = []float64{0, .1, .2, .3, .4, .5, .6, .8, 1}
)

// NewEngineMetrics registers every instrument against collector.
func NewEngineMetrics(collector MetricsCollector) *EngineMetrics {
	return &EngineMetrics{
		ValuationsTotal:    collector.RegisterCounter("valuations_total", "Entity valuations performed", "outcome"),
		EvaluationDuration: collector.RegisterHistogram("evaluation_duration_seconds", "Win-win evaluation duration", DefaultEvalBuckets, "population_bucket"),
		WinWinVerdicts:     collector.RegisterCounter("winwin_verdicts_total", "Win-win verdicts", "verdict"),
		GiniObserved:       collector.RegisterHistogram("gini_observed", "Value inequality Gini per evaluation", DefaultGiniBuckets, "verdict"),
		CacheHitsTotal:     collector.RegisterCounter("cache_hits_total", "Valuation cache hits", "backend"),
		CacheMissesTotal:   collector.RegisterCounter("cache_misses_total", "Valuation cache misses", "backend"),
		OptimizeDuration:   collector.RegisterHistogram("optimize_duration_seconds", "Roadmap optimization duration", DefaultOptimizeBuckets, "strategy"),
		BranchesExplored:   collector.RegisterCounter("branches_explored_total", "Optimizer branches evaluated", "strategy"),
		RoadmapSize:        collector.RegisterHistogram("roadmap_size", "Deals per produced roadmap", DefaultRoadmapBuckets, "complete"),
		OptIncomplete:      collector.RegisterCounter("optimize_incomplete_total", "Optimizations ended by budget with a partial roadmap", "reason"),
		SimulationDuration: collector.RegisterHistogram("simulation_duration_seconds", "Monte Carlo simulation duration", DefaultOptimizeBuckets, "iterations_bucket"),
		ErrorsTotal:        collector.RegisterCounter("errors_total", "Errors by code family", "module", "code"),
	}
}

// ── nil-safe recording helpers ───────────────────────────────────────────────

// RecordValuation counts one entity valuation.
func (m *EngineMetrics) RecordValuation(win bool) {
	if m == nil {
		return
	}
	outcome := "lose"
	if win {
		outcome = "win"
	}
	m.ValuationsTotal.WithLabelValues(outcome).Inc()
}

// RecordVerdict counts one population-level verdict and its Gini.
func (m *EngineMetrics) RecordVerdict(isWinWin bool, gini float64) {
	if m == nil {
		return
	}
	verdict := "not_win_win"
	if isWinWin {
		verdict = "win_win"
	}
	m.WinWinVerdicts.WithLabelValues(verdict).Inc()
	m.GiniObserved.WithLabelValues(verdict).Observe(gini)
}

// RecordCacheAccess counts one cache lookup against the named backend
// ("memory" or "redis").
func (m *EngineMetrics) RecordCacheAccess(backend string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(backend).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(backend).Inc()
	}
}

// RecordOptimization records one optimizer run.
func (m *EngineMetrics) RecordOptimization(strategy string, duration time.Duration, branches int64, roadmapLen int, complete bool) {
	if m == nil {
		return
	}
	m.OptimizeDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.BranchesExplored.WithLabelValues(strategy).Add(float64(branches))
	completeLabel := "false"
	if complete {
		completeLabel = "true"
	}
	m.RoadmapSize.WithLabelValues(completeLabel).Observe(float64(roadmapLen))
	if !complete {
		m.OptIncomplete.WithLabelValues("budget").Inc()
	}
}

// RecordSimulation records one Monte Carlo run, bucketing the label by
// iteration count order of magnitude.
func (m *EngineMetrics) RecordSimulation(duration time.Duration, iterations int) {
	if m == nil {
		return
	}
	bucket := "small"
	switch {
	case iterations >= 100_000:
		bucket = "huge"
	case iterations >= 10_000:
		bucket = "large"
	case iterations >= 1_000:
		bucket = "medium"
	}
	m.SimulationDuration.WithLabelValues(bucket).Observe(duration.Seconds())
}

// RecordError counts one error by its family and code.
func (m *EngineMetrics) RecordError(module, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(module, code).Inc()
}

package processor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"optionflow/config"
	"optionflow/logger"
	"optionflow/models"
)

// Result is one full pipeline pass: the delta-enriched table and the
// strength summary derived from it. Everything is rebuilt from the input
// batches on every run; nothing is carried across runs.
type Result struct {
	RunID    string
	Table    models.Table
	Strength models.StrengthSummary
}

// Runner executes the batch pipeline: merge, deltas, strength. Correlation
// reports are computed on demand via Correlate since they take per-request
// parameters (strike, side, window).
type Runner struct {
	cfg         *config.Config
	correlation *CorrelationEngine
	scorer      *StrengthScorer
	log         *logger.Log
}

// NewRunner wires the engines from configuration.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:         cfg,
		correlation: NewCorrelationEngine(cfg.Analytics),
		scorer:      NewStrengthScorer(cfg.Analytics),
		log:         logger.GetLogger(),
	}
}

// Run executes one synchronous pass over the given batches. The context is
// only a cancellation hook between stages; each stage is a pure function of
// its input, so re-running with the same batches yields identical results.
func (r *Runner) Run(ctx context.Context, batches []models.SnapshotBatch) (*Result, error) {
	runID := uuid.New().String()
	log := r.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": runID})
	log.WithFields(logger.Fields{"batches": len(batches)}).Info("pipeline run started")

	start := time.Now()
	table := Merge(batches)
	logger.LogPerformanceEntry(log, "pipeline", "merge", time.Since(start), logger.Fields{"rows": len(table.Rows)})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	table = ComputeDeltas(table, r.cfg.Analytics.Epsilon)
	logger.LogPerformanceEntry(log, "pipeline", "deltas", time.Since(start), logger.Fields{"rows": len(table.Rows)})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	strength := r.scorer.Score(table)
	logger.LogPerformanceEntry(log, "pipeline", "strength", time.Since(start), logger.Fields{"strikes": len(strength.Strikes)})

	logger.LogDataFlowEntry(log, "reader", "writer", len(table.Rows), "enriched_rows")

	return &Result{RunID: runID, Table: table, Strength: strength}, nil
}

// Correlate runs the correlation engine over an already-enriched table.
func (r *Runner) Correlate(t models.Table, strike float64, sel models.SideSelector, win *models.Window) models.CorrelationReport {
	return r.correlation.Analyze(t, strike, sel, win)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine drives the progressive synthesis loop: reliability
// annotation, phase-controlled batch selection, deviation filtering, oracle
// calls, and convergence-based termination.
// Implements: prd005-orchestration (R1-R7);
//
//	docs/ARCHITECTURE § Orchestration.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/synthesis-engine/internal/convergence"
	"github.com/pdiddy/synthesis-engine/internal/deviation"
	"github.com/pdiddy/synthesis-engine/internal/phase"
	"github.com/pdiddy/synthesis-engine/internal/reliability"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// ProgressFunc receives a progress update at each round boundary.
type ProgressFunc func(types.ProgressUpdate)

// Engine owns one synthesis run at a time. The run's mutable state lives in
// local variables of Run; the Engine itself holds only configuration and
// collaborators, so a single Engine may serve consecutive runs.
// Per prd005-orchestration R1.1: exactly one goroutine drives the loop and
// writes the state.
type Engine struct {
	cfg      types.EngineConfig
	synth    SynthesisOracle
	dev      DeviationOracle
	policy   *deviation.Policy
	scorer   *reliability.Scorer
	log      *zap.Logger
	progress ProgressFunc
}

// Option adjusts an Engine at construction.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithProgress sets the callback invoked at each round boundary.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithScorer replaces the reliability scorer. Tests pin the scorer's
// reference year through this.
func WithScorer(s *reliability.Scorer) Option {
	return func(e *Engine) {
		e.scorer = s
	}
}

// New builds an Engine from a complete configuration and its oracles. The
// deviation oracle may be nil, in which case no batch filtering happens. An
// invalid configuration is rejected here, before any round can run
// (prd005-orchestration R5.2).
func New(cfg types.EngineConfig, synth SynthesisOracle, dev DeviationOracle, opts ...Option) (*Engine, error) {
	if synth == nil {
		return nil, fmt.Errorf("%w: synthesis oracle is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg:    cfg,
		synth:  synth,
		dev:    dev,
		policy: deviation.NewPolicy(cfg.Deviation),
		scorer: reliability.NewScorer(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes one synthesis run to termination: load and annotate the
// corpus, then loop rounds until the convergence monitor stops the run
// (prd005-orchestration R2). The caller may cancel between rounds via ctx;
// cancellation returns the partial result alongside ctx.Err(). All other
// per-round failures are recorded as failed outcomes and never abort the
// run.
func (e *Engine) Run(ctx context.Context, source CorpusSource, rc types.RunContext) (*types.RunResult, error) {
	items, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrCorpusExhausted
	}

	// Reliability is computed once per run, before the loop begins; the
	// scoring fan-out joins here so no round reads partial annotations.
	pool := e.scorer.Annotate(items)
	total := len(pool)

	controller := phase.NewController(e.cfg.Phases)
	monitor := convergence.NewMonitor(e.cfg.Stop)
	result := &types.RunResult{}
	state := types.SynthesisState{CurrentPhase: controller.Current()}

	e.log.Info("synthesis run starting",
		zap.String("question", rc.Question),
		zap.String("domain", rc.Domain),
		zap.Int("corpus_size", total))

	for round := 1; ; round++ {
		select {
		case <-ctx.Done():
			e.finish(result, state)
			return result, ctx.Err()
		default:
		}

		if stop, reason := monitor.ShouldStop(round, len(pool)); stop {
			result.TerminationReason = reason
			e.log.Info("synthesis run stopping",
				zap.String("reason", string(reason)),
				zap.Int("rounds", round-1))
			break
		}

		if tr := controller.Evaluate(&result.History, monitor.LowGainStreak(), round); tr != nil {
			result.History.RecordTransition(*tr)
			e.log.Info("phase transition",
				zap.String("from", string(tr.From)),
				zap.String("to", string(tr.To)),
				zap.Int("round", round),
				zap.String("reason", tr.Reason))
		}
		state.CurrentPhase = controller.Current()

		req := controller.BuildRequest(pool, &result.History)

		// The first round has no accumulated knowledge to deviate from, so
		// the policy is bypassed entirely (prd002-deviation R3.1).
		accepted := req.Items
		if round > 1 && state.Knowledge != "" && e.dev != nil {
			accepted = e.filterBatch(ctx, req.Items, state, round, result)
		}

		outcome := types.BatchOutcome{
			BatchID:       fmt.Sprintf("batch-%03d", round),
			Round:         round,
			Phase:         req.Phase,
			SelectedCount: len(req.Items),
			ItemCount:     len(accepted),
		}

		if len(accepted) == 0 {
			e.log.Warn("recording failed round", zap.Int("round", round), zap.Error(ErrEmptyBatch))
		} else {
			rc.Round = round
			start := time.Now()
			resp, err := callWithRetry(ctx, e.synth, accepted, state, rc, e.cfg.Oracle)
			outcome.ProcessingTime = time.Since(start)

			switch {
			case err != nil && ctx.Err() != nil:
				// Caller cancelled mid-call. The round never completed, so
				// nothing is recorded for it.
				e.finish(result, state)
				return result, ctx.Err()
			case err != nil:
				e.log.Warn("recording failed round", zap.Int("round", round), zap.Error(err))
			default:
				outcome.InformationGain = resp.InformationGain
				outcome.QualityScore = resp.QualityScore
				outcome.Success = resp.Success
				if resp.Success {
					state.Knowledge = resp.Knowledge
				} else {
					e.log.Warn("oracle declined synthesis",
						zap.Int("round", round),
						zap.Float64("gain", resp.InformationGain),
						zap.Float64("quality", resp.QualityScore))
				}
			}
		}

		// Every originally selected item leaves the pool, skipped or not;
		// nothing is retried later in the run (prd003-batching R2.3).
		pool = removeSelected(pool, req.Items)
		outcome.PoolRemaining = len(pool)

		result.History.Append(outcome)
		monitor.Observe(outcome, controller.CurrentConfig().InfoGainThreshold)

		state.IterationRound = round
		state.ConsecutiveLowGainCount = monitor.LowGainStreak()
		result.Rounds = round

		e.log.Info("round complete",
			zap.String("batch", outcome.BatchID),
			zap.String("phase", string(outcome.Phase)),
			zap.Int("selected", outcome.SelectedCount),
			zap.Int("accepted", outcome.ItemCount),
			zap.Float64("gain", outcome.InformationGain),
			zap.Float64("quality", outcome.QualityScore),
			zap.Bool("success", outcome.Success),
			zap.Int("pool_remaining", outcome.PoolRemaining))

		e.reportProgress(round, total, len(pool), outcome, &result.History)
	}

	e.finish(result, state)
	return result, nil
}

// filterBatch runs each selected item through the deviation oracle plus the
// skip policy, collecting skips into the run result. A failed deviation
// measurement accepts the item rather than rejecting it; losing one
// measurement should not cost the round its content.
func (e *Engine) filterBatch(ctx context.Context, selected []types.LiteratureItem, state types.SynthesisState, round int, result *types.RunResult) []types.LiteratureItem {
	accepted := make([]types.LiteratureItem, 0, len(selected))
	for _, item := range selected {
		report, err := e.dev.EvaluateDeviation(ctx, item, state)
		if err != nil {
			e.log.Warn("deviation check failed, accepting item",
				zap.String("item", item.ID),
				zap.Int("round", round),
				zap.Error(err))
			accepted = append(accepted, item)
			continue
		}

		if skip, reasons := e.policy.ShouldSkip(item, report); skip {
			result.Skipped = append(result.Skipped, types.SkippedItem{
				ItemID:  item.ID,
				Title:   item.Title,
				Round:   round,
				Reasons: reasons,
			})
			e.log.Info("skipping item",
				zap.String("item", item.ID),
				zap.Int("round", round),
				zap.Float64("deviation", report.Overall),
				zap.Strings("reasons", reasons))
			continue
		}

		accepted = append(accepted, item)
	}
	return accepted
}

// finish stamps the final state onto the result. SynthesisAchieved is
// reported explicitly so a run with zero successful rounds reads as "no
// synthesis" rather than an unset value (prd005-orchestration R4.3).
func (e *Engine) finish(result *types.RunResult, state types.SynthesisState) {
	result.State = state
	result.SynthesisAchieved = result.History.SuccessCount() > 0
}

// reportProgress invokes the progress sink, estimating completion from
// corpus consumption.
func (e *Engine) reportProgress(round, total, remaining int, outcome types.BatchOutcome, hist *types.RunHistory) {
	if e.progress == nil {
		return
	}
	consumed := total - remaining
	e.progress(types.ProgressUpdate{
		Step:            fmt.Sprintf("round %d/%d %s", round, e.cfg.Stop.MaxIterations, outcome.Phase),
		PercentComplete: float64(consumed) / float64(total) * 100,
		Metrics: map[string]float64{
			"information_gain":     outcome.InformationGain,
			"quality_score":        outcome.QualityScore,
			"avg_information_gain": hist.AvgInformationGain,
			"avg_quality_score":    hist.AvgQualityScore,
			"pool_remaining":       float64(remaining),
		},
	})
}

// removeSelected returns the pool minus the selected items, matching by ID.
func removeSelected(pool, selected []types.LiteratureItem) []types.LiteratureItem {
	drop := make(map[string]bool, len(selected))
	for _, item := range selected {
		drop[item.ID] = true
	}

	remaining := make([]types.LiteratureItem, 0, len(pool))
	for _, item := range pool {
		if !drop[item.ID] {
			remaining = append(remaining, item)
		}
	}
	return remaining
}

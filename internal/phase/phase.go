// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package phase drives the batch phase state machine and builds each
// round's batch request: transition evaluation, adaptive sizing, and
// per-phase item selection.
// Implements: prd003-batching (R1-R4);
//
//	docs/ARCHITECTURE § Batch Control.
package phase

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Transition evaluation windows and triggers (R3.1-R3.3).
const (
	// evalWindow is how many recent outcomes feed the advancement averages.
	evalWindow = 3

	// successWindow and minSuccesses gate advancement on a minimum success
	// rate: at least minSuccesses of the last successWindow outcomes.
	successWindow = 5
	minSuccesses  = 2

	// regressLowGainRounds is the consecutive-low-gain count that forces a
	// regression.
	regressLowGainRounds = 3

	// qualityDropDelta is the round-over-round quality drop that forces a
	// regression.
	qualityDropDelta = 1.0
)

// Adaptive sizing knobs (R2.3-R2.4).
const (
	// fastRoundCutoff is the rolling average processing time under which the
	// batch grows toward the phase maximum.
	fastRoundCutoff = 30 * time.Second

	// fastRoundBonus is the largest size bump granted for fast rounds.
	fastRoundBonus = 3

	// gainBonusFactor scales the phase gain threshold; a rolling average
	// above it earns one extra slot.
	gainBonusFactor = 1.2
)

// phaseOrder lists the phases in their total order (R1.1).
var phaseOrder = []types.BatchPhase{
	types.PhaseExploration,
	types.PhaseConsolidation,
	types.PhaseRefinement,
	types.PhaseOptimization,
}

// ValidTransitions defines the legal controller moves: one step forward or
// one step back, nothing else (R1.2). This table is the canonical guard for
// every transition.
var ValidTransitions = map[types.BatchPhase][]types.BatchPhase{
	types.PhaseExploration:   {types.PhaseConsolidation},
	types.PhaseConsolidation: {types.PhaseRefinement, types.PhaseExploration},
	types.PhaseRefinement:    {types.PhaseOptimization, types.PhaseConsolidation},
	types.PhaseOptimization:  {types.PhaseRefinement},
}

// CanTransition reports whether moving from one phase to another is legal
// according to ValidTransitions.
func CanTransition(from, to types.BatchPhase) bool {
	targets, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(targets, to)
}

// Ordered returns the phases in their total order.
func Ordered() []types.BatchPhase {
	return slices.Clone(phaseOrder)
}

// ErrUnknownPhase indicates a phase value outside the defined order.
var ErrUnknownPhase = errors.New("unknown batch phase")

// indexOf returns a phase's position in the total order, or -1.
func indexOf(p types.BatchPhase) int {
	return slices.Index(phaseOrder, p)
}

// next returns the following phase, or false at the final phase.
func next(p types.BatchPhase) (types.BatchPhase, bool) {
	i := indexOf(p)
	if i < 0 || i+1 >= len(phaseOrder) {
		return p, false
	}
	return phaseOrder[i+1], true
}

// prev returns the preceding phase, or false at the first phase.
func prev(p types.BatchPhase) (types.BatchPhase, bool) {
	i := indexOf(p)
	if i <= 0 {
		return p, false
	}
	return phaseOrder[i-1], true
}

// Controller owns the current phase and builds one BatchRequest per round.
// It is driven by a single orchestrator goroutine and holds no locks.
type Controller struct {
	phases  types.PhasesConfig
	current types.BatchPhase
}

// NewController returns a Controller starting in the exploration phase.
// The caller validates the phase configs before construction.
func NewController(phases types.PhasesConfig) *Controller {
	return &Controller{
		phases:  phases,
		current: types.PhaseExploration,
	}
}

// Current returns the controller's phase.
func (c *Controller) Current() types.BatchPhase {
	return c.current
}

// CurrentConfig returns the active phase's configuration.
func (c *Controller) CurrentConfig() types.PhaseConfig {
	return c.phases.For(c.current)
}

// Evaluate applies the transition rules once, before batch selection, and
// returns the transition record when the phase changed (R3.1-R3.4). The
// regression triggers are checked first: a degrading run must not advance
// on the same evaluation that flags it.
func (c *Controller) Evaluate(hist *types.RunHistory, lowGainCount, round int) *types.PhaseTransition {
	if t := c.tryRegress(hist, lowGainCount, round); t != nil {
		return t
	}
	return c.tryAdvance(hist, round)
}

// tryAdvance moves one phase forward when the recent window clears the
// current phase's gain and quality bars and enough rounds succeeded (R3.2).
func (c *Controller) tryAdvance(hist *types.RunHistory, round int) *types.PhaseTransition {
	recent := hist.Last(evalWindow)
	if len(recent) == 0 {
		return nil
	}

	var gainSum, qualitySum float64
	for _, o := range recent {
		gainSum += o.InformationGain
		qualitySum += o.QualityScore
	}
	avgGain := gainSum / float64(len(recent))
	avgQuality := qualitySum / float64(len(recent))

	successes := 0
	for _, o := range hist.Last(successWindow) {
		if o.Success {
			successes++
		}
	}

	cfg := c.CurrentConfig()
	if avgGain < cfg.InfoGainThreshold || avgQuality < cfg.QualityThreshold || successes < minSuccesses {
		return nil
	}

	target, ok := next(c.current)
	if !ok || !CanTransition(c.current, target) {
		return nil
	}

	t := &types.PhaseTransition{
		From:  c.current,
		To:    target,
		Round: round,
		Reason: fmt.Sprintf("avg gain %.3f >= %.3f, avg quality %.2f >= %.2f, %d/%d recent successes",
			avgGain, cfg.InfoGainThreshold, avgQuality, cfg.QualityThreshold, successes, successWindow),
	}
	c.current = target
	return t
}

// tryRegress moves one phase back on sustained low gain or a sharp
// round-over-round quality drop (R3.3).
func (c *Controller) tryRegress(hist *types.RunHistory, lowGainCount, round int) *types.PhaseTransition {
	var reason string

	switch {
	case lowGainCount >= regressLowGainRounds:
		reason = fmt.Sprintf("%d consecutive low-gain rounds", lowGainCount)
	default:
		recent := hist.Last(2)
		if len(recent) == 2 && recent[1].QualityScore < recent[0].QualityScore-qualityDropDelta {
			reason = fmt.Sprintf("quality dropped from %.2f to %.2f", recent[0].QualityScore, recent[1].QualityScore)
		}
	}
	if reason == "" {
		return nil
	}

	target, ok := prev(c.current)
	if !ok || !CanTransition(c.current, target) {
		return nil
	}

	t := &types.PhaseTransition{
		From:   c.current,
		To:     target,
		Round:  round,
		Reason: reason,
	}
	c.current = target
	return t
}

// BuildRequest computes the adaptive size and selects that many items from
// the remaining pool, ordered by reliability (R2.1-R2.5, R4.1-R4.4). The
// pool slice is not modified.
func (c *Controller) BuildRequest(pool []types.LiteratureItem, hist *types.RunHistory) types.BatchRequest {
	sorted := make([]types.LiteratureItem, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReliabilityScore > sorted[j].ReliabilityScore
	})

	size, reasoning := c.adaptiveSize(hist, len(pool))
	items := c.selectItems(sorted, size)

	return types.BatchRequest{
		Phase:        c.current,
		Items:        items,
		AdaptiveSize: size,
		Reasoning:    reasoning,
	}
}

// adaptiveSize grows the phase minimum by the fast-round and high-gain
// bonuses, clamps into [MinSize, MaxSize], and finally caps at the pool.
// A pool smaller than MinSize yields a short final batch rather than an
// unsatisfiable size (R2.3-R2.4).
func (c *Controller) adaptiveSize(hist *types.RunHistory, poolSize int) (int, string) {
	cfg := c.CurrentConfig()
	size := cfg.MinSize
	parts := []string{fmt.Sprintf("%s: base %d", c.current, cfg.MinSize)}

	if hist.Total() > 0 {
		if hist.AvgProcessingTime < fastRoundCutoff {
			bonus := fastRoundBonus
			if room := cfg.MaxSize - size; bonus > room {
				bonus = room
			}
			if bonus > 0 {
				size += bonus
				parts = append(parts, fmt.Sprintf("+%d fast rounds (avg %.1fs)", bonus, hist.AvgProcessingTime.Seconds()))
			}
		}
		if hist.AvgInformationGain > gainBonusFactor*cfg.InfoGainThreshold {
			size++
			parts = append(parts, fmt.Sprintf("+1 high gain (avg %.3f)", hist.AvgInformationGain))
		}
	}

	if size > cfg.MaxSize {
		size = cfg.MaxSize
	}
	if size < cfg.MinSize {
		size = cfg.MinSize
	}
	if size > poolSize {
		size = poolSize
		parts = append(parts, fmt.Sprintf("capped at pool %d", poolSize))
	}

	return size, strings.Join(parts, "; ")
}

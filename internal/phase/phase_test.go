package phase

import (
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

func defaultPhases() types.PhasesConfig {
	return types.DefaultEngineConfig().Phases
}

func controllerAt(p types.BatchPhase) *Controller {
	c := NewController(defaultPhases())
	c.current = p
	return c
}

func outcomeWith(gain, quality float64, success bool) types.BatchOutcome {
	return types.BatchOutcome{
		InformationGain: gain,
		QualityScore:    quality,
		Success:         success,
		ProcessingTime:  5 * time.Second,
	}
}

func histOf(outcomes ...types.BatchOutcome) *types.RunHistory {
	h := &types.RunHistory{}
	for _, o := range outcomes {
		h.Append(o)
	}
	return h
}

// --- transitions table ---

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to types.BatchPhase
		want     bool
	}{
		{types.PhaseExploration, types.PhaseConsolidation, true},
		{types.PhaseConsolidation, types.PhaseRefinement, true},
		{types.PhaseConsolidation, types.PhaseExploration, true},
		{types.PhaseRefinement, types.PhaseOptimization, true},
		{types.PhaseOptimization, types.PhaseRefinement, true},
		{types.PhaseExploration, types.PhaseRefinement, false},
		{types.PhaseExploration, types.PhaseExploration, false},
		{types.PhaseOptimization, types.PhaseConsolidation, false},
		{types.BatchPhase("bogus"), types.PhaseExploration, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestOrderedPhases(t *testing.T) {
	want := []types.BatchPhase{
		types.PhaseExploration, types.PhaseConsolidation,
		types.PhaseRefinement, types.PhaseOptimization,
	}
	got := Ordered()
	if len(got) != len(want) {
		t.Fatalf("len(Ordered()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ordered()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// --- advancement ---

func TestEvaluateAdvances(t *testing.T) {
	c := NewController(defaultPhases())
	hist := histOf(
		outcomeWith(0.2, 8.0, true),
		outcomeWith(0.2, 8.0, true),
		outcomeWith(0.2, 8.0, true),
	)

	tr := c.Evaluate(hist, 0, 4)
	if tr == nil {
		t.Fatal("Evaluate() = nil, want advancement")
	}
	if tr.From != types.PhaseExploration || tr.To != types.PhaseConsolidation {
		t.Errorf("transition %s -> %s, want exploration -> consolidation", tr.From, tr.To)
	}
	if tr.Round != 4 {
		t.Errorf("Round = %d, want 4", tr.Round)
	}
	if tr.Reason == "" {
		t.Error("transition has no reason")
	}
	if c.Current() != types.PhaseConsolidation {
		t.Errorf("Current() = %s, want consolidation", c.Current())
	}
}

func TestEvaluateAdvanceNeedsTwoSuccesses(t *testing.T) {
	c := NewController(defaultPhases())

	// Strong single round: averages clear the bars, success gate does not.
	hist := histOf(outcomeWith(0.3, 9.0, true))
	if tr := c.Evaluate(hist, 0, 2); tr != nil {
		t.Fatalf("advanced on one success: %+v", tr)
	}

	// A second success unlocks it.
	hist.Append(outcomeWith(0.3, 9.0, true))
	if tr := c.Evaluate(hist, 0, 3); tr == nil {
		t.Fatal("two successes should advance")
	}
}

func TestEvaluateNoAdvanceOnLowGain(t *testing.T) {
	c := NewController(defaultPhases())
	hist := histOf(
		outcomeWith(0.05, 9.0, true),
		outcomeWith(0.05, 9.0, true),
		outcomeWith(0.05, 9.0, true),
	)
	if tr := c.Evaluate(hist, 0, 4); tr != nil {
		t.Errorf("advanced despite low gain: %+v", tr)
	}
}

func TestEvaluateNoAdvanceOnLowQuality(t *testing.T) {
	c := NewController(defaultPhases())
	hist := histOf(
		outcomeWith(0.3, 4.0, true),
		outcomeWith(0.3, 4.0, true),
		outcomeWith(0.3, 4.0, true),
	)
	if tr := c.Evaluate(hist, 0, 4); tr != nil {
		t.Errorf("advanced despite low quality: %+v", tr)
	}
}

func TestEvaluateAdvanceUsesRecentWindow(t *testing.T) {
	c := NewController(defaultPhases())

	// Three old weak rounds followed by three strong ones: only the last
	// evalWindow rounds count toward the averages.
	hist := histOf(
		outcomeWith(0.01, 3.0, false),
		outcomeWith(0.01, 3.0, false),
		outcomeWith(0.01, 3.0, false),
		outcomeWith(0.25, 8.5, true),
		outcomeWith(0.25, 8.5, true),
		outcomeWith(0.25, 8.5, true),
	)
	if tr := c.Evaluate(hist, 0, 7); tr == nil {
		t.Fatal("recent strong window should advance")
	}
}

func TestEvaluateNoAdvanceAtFinalPhase(t *testing.T) {
	c := controllerAt(types.PhaseOptimization)
	hist := histOf(
		outcomeWith(0.5, 9.5, true),
		outcomeWith(0.5, 9.5, true),
		outcomeWith(0.5, 9.5, true),
	)
	if tr := c.Evaluate(hist, 0, 4); tr != nil {
		t.Errorf("advanced past the final phase: %+v", tr)
	}
	if c.Current() != types.PhaseOptimization {
		t.Errorf("Current() = %s, want optimization", c.Current())
	}
}

func TestEvaluateNoMoveOnEmptyHistory(t *testing.T) {
	c := NewController(defaultPhases())
	if tr := c.Evaluate(&types.RunHistory{}, 0, 1); tr != nil {
		t.Errorf("moved with no history: %+v", tr)
	}
}

// --- regression ---

func TestEvaluateRegressOnLowGainCount(t *testing.T) {
	c := controllerAt(types.PhaseRefinement)
	hist := histOf(
		outcomeWith(0.01, 7.0, true),
		outcomeWith(0.01, 7.0, true),
		outcomeWith(0.01, 7.0, true),
	)

	tr := c.Evaluate(hist, 3, 5)
	if tr == nil {
		t.Fatal("Evaluate() = nil, want regression")
	}
	if tr.From != types.PhaseRefinement || tr.To != types.PhaseConsolidation {
		t.Errorf("transition %s -> %s, want refinement -> consolidation", tr.From, tr.To)
	}
	if !strings.Contains(tr.Reason, "low-gain") {
		t.Errorf("Reason = %q, want low-gain trigger", tr.Reason)
	}
}

func TestEvaluateRegressOnQualityDrop(t *testing.T) {
	c := controllerAt(types.PhaseConsolidation)
	hist := histOf(
		outcomeWith(0.05, 8.5, true),
		outcomeWith(0.05, 7.0, true), // drop of 1.5
	)

	tr := c.Evaluate(hist, 0, 3)
	if tr == nil {
		t.Fatal("Evaluate() = nil, want regression")
	}
	if tr.To != types.PhaseExploration {
		t.Errorf("To = %s, want exploration", tr.To)
	}
	if !strings.Contains(tr.Reason, "quality dropped") {
		t.Errorf("Reason = %q, want quality-drop trigger", tr.Reason)
	}
}

func TestEvaluateNoRegressOnSmallQualityDip(t *testing.T) {
	c := controllerAt(types.PhaseConsolidation)
	hist := histOf(
		outcomeWith(0.05, 8.5, true),
		outcomeWith(0.05, 7.6, true), // drop of 0.9, inside tolerance
	)
	if tr := c.Evaluate(hist, 0, 3); tr != nil {
		t.Errorf("regressed on a small dip: %+v", tr)
	}
}

func TestEvaluateNoRegressAtFirstPhase(t *testing.T) {
	c := NewController(defaultPhases())
	hist := histOf(
		outcomeWith(0.01, 2.0, false),
		outcomeWith(0.01, 2.0, false),
		outcomeWith(0.01, 2.0, false),
	)
	if tr := c.Evaluate(hist, 5, 4); tr != nil {
		t.Errorf("regressed below exploration: %+v", tr)
	}
	if c.Current() != types.PhaseExploration {
		t.Errorf("Current() = %s, want exploration", c.Current())
	}
}

func TestEvaluateRegressionWinsOverAdvancement(t *testing.T) {
	c := controllerAt(types.PhaseConsolidation)

	// Averages clear the consolidation bars, but the latest round dropped
	// more than a full quality point: the protective trigger must win.
	hist := histOf(
		outcomeWith(0.3, 9.5, true),
		outcomeWith(0.3, 8.0, true),
	)

	tr := c.Evaluate(hist, 0, 3)
	if tr == nil {
		t.Fatal("Evaluate() = nil, want regression")
	}
	if tr.To != types.PhaseExploration {
		t.Errorf("To = %s, want exploration (regression)", tr.To)
	}
}

// --- adaptive sizing ---

func TestAdaptiveSizeFirstRound(t *testing.T) {
	c := NewController(defaultPhases())
	size, reasoning := c.adaptiveSize(&types.RunHistory{}, 20)
	if size != 1 {
		t.Errorf("size = %d, want exploration min 1", size)
	}
	if !strings.Contains(reasoning, "base 1") {
		t.Errorf("reasoning = %q, want base mention", reasoning)
	}
}

func TestAdaptiveSizeFastAndHighGainBonuses(t *testing.T) {
	c := controllerAt(types.PhaseConsolidation)
	hist := histOf(
		outcomeWith(0.2, 8.0, true), // avg 5s, avg gain 0.2 > 1.2*0.12
	)

	size, reasoning := c.adaptiveSize(hist, 50)
	// base 3 + 3 fast + 1 gain = 7
	if size != 7 {
		t.Errorf("size = %d, want 7 (%s)", size, reasoning)
	}
	if !strings.Contains(reasoning, "fast rounds") || !strings.Contains(reasoning, "high gain") {
		t.Errorf("reasoning = %q, want both bonuses", reasoning)
	}
}

func TestAdaptiveSizeNoBonusOnSlowRounds(t *testing.T) {
	c := controllerAt(types.PhaseConsolidation)
	hist := histOf(types.BatchOutcome{
		InformationGain: 0.05,
		QualityScore:    7.0,
		Success:         true,
		ProcessingTime:  90 * time.Second,
	})

	size, _ := c.adaptiveSize(hist, 50)
	if size != 3 {
		t.Errorf("size = %d, want base 3 with no bonuses", size)
	}
}

func TestAdaptiveSizeFastBonusRespectsMax(t *testing.T) {
	// Exploration max is 5: base 1 + 3 fast + 1 gain = 5, no overshoot.
	c := NewController(defaultPhases())
	hist := histOf(outcomeWith(0.3, 8.0, true))

	size, _ := c.adaptiveSize(hist, 50)
	if size != 5 {
		t.Errorf("size = %d, want 5 (clamped at exploration max)", size)
	}
}

func TestAdaptiveSizePoolCap(t *testing.T) {
	c := controllerAt(types.PhaseOptimization)

	size, reasoning := c.adaptiveSize(&types.RunHistory{}, 3)
	if size != 3 {
		t.Errorf("size = %d, want pool cap 3 (%s)", size, reasoning)
	}
	if !strings.Contains(reasoning, "capped at pool") {
		t.Errorf("reasoning = %q, want pool-cap mention", reasoning)
	}

	if size, _ := c.adaptiveSize(&types.RunHistory{}, 0); size != 0 {
		t.Errorf("size = %d, want 0 for an empty pool", size)
	}
}

func TestAdaptiveSizeInvariant(t *testing.T) {
	histories := []*types.RunHistory{
		{},
		histOf(outcomeWith(0.2, 8.0, true)),
		histOf(outcomeWith(0.01, 2.0, false), outcomeWith(0.5, 9.0, true)),
	}
	pools := []int{0, 1, 2, 5, 8, 13, 100}

	for _, p := range Ordered() {
		for _, hist := range histories {
			for _, pool := range pools {
				c := controllerAt(p)
				cfg := c.CurrentConfig()
				size, reasoning := c.adaptiveSize(hist, pool)

				upper := cfg.MaxSize
				if pool < upper {
					upper = pool
				}
				if size > upper {
					t.Errorf("%s pool=%d: size %d above min(max,pool)=%d (%s)",
						p, pool, size, upper, reasoning)
				}
				if pool >= cfg.MinSize && size < cfg.MinSize {
					t.Errorf("%s pool=%d: size %d under min %d (%s)",
						p, pool, size, cfg.MinSize, reasoning)
				}
				if pool < cfg.MinSize && size != pool {
					t.Errorf("%s pool=%d: size %d, want pool (%s)", p, pool, size, reasoning)
				}
			}
		}
	}
}

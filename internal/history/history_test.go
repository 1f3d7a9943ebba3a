package history

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/internal/convergence"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleMeta(id string, startedAt time.Time) RunMeta {
	return RunMeta{
		ID:        id,
		Question:  "What stabilizes perovskite solar cells?",
		Domain:    "materials science",
		StartedAt: startedAt,
	}
}

// sampleResult builds a three-round run that consumed its whole pool.
func sampleResult() *types.RunResult {
	result := &types.RunResult{
		State: types.SynthesisState{
			Knowledge:               "alumina barriers slow moisture ingress",
			IterationRound:          3,
			ConsecutiveLowGainCount: 1,
			CurrentPhase:            types.PhaseConsolidation,
		},
		Rounds:            3,
		TerminationReason: types.TerminationExhausted,
		SynthesisAchieved: true,
		Skipped: []types.SkippedItem{
			{
				ItemID:  "item-09",
				Title:   "Contested hysteresis model",
				Round:   2,
				Reasons: []string{"reliability 0.42 under 0.60 with deviation 0.81 over low-tier bound 0.40"},
			},
		},
	}

	outcomes := []types.BatchOutcome{
		{BatchID: "batch-001", Round: 1, Phase: types.PhaseExploration, ItemCount: 1, SelectedCount: 1, PoolRemaining: 8, InformationGain: 0.40, QualityScore: 7.5, ProcessingTime: 1200 * time.Millisecond, Success: true},
		{BatchID: "batch-002", Round: 2, Phase: types.PhaseExploration, ItemCount: 3, SelectedCount: 4, PoolRemaining: 4, InformationGain: 0.25, QualityScore: 8.0, ProcessingTime: 2500 * time.Millisecond, Success: true},
		{BatchID: "batch-003", Round: 3, Phase: types.PhaseConsolidation, ItemCount: 4, SelectedCount: 4, PoolRemaining: 0, InformationGain: 0.05, QualityScore: 5.0, ProcessingTime: 900 * time.Millisecond, Success: false},
	}
	for _, o := range outcomes {
		result.History.Append(o)
	}
	result.History.RecordTransition(types.PhaseTransition{
		From: types.PhaseExploration, To: types.PhaseConsolidation,
		Round: 3, Reason: "quality and gain above exploration thresholds",
	})
	return result
}

// --- SaveRun / GetRun ---

func TestSaveAndGetRun(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	want := sampleResult()
	if err := store.SaveRun(ctx, sampleMeta("run-001", started), want); err != nil {
		t.Fatal(err)
	}

	meta, got, err := store.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatal(err)
	}

	if meta.ID != "run-001" {
		t.Errorf("meta.ID = %q", meta.ID)
	}
	if meta.Question != "What stabilizes perovskite solar cells?" {
		t.Errorf("meta.Question = %q", meta.Question)
	}
	if meta.Domain != "materials science" {
		t.Errorf("meta.Domain = %q", meta.Domain)
	}
	if !meta.StartedAt.Equal(started) {
		t.Errorf("meta.StartedAt = %v, want %v", meta.StartedAt, started)
	}

	if got.Rounds != want.Rounds {
		t.Errorf("Rounds = %d, want %d", got.Rounds, want.Rounds)
	}
	if got.TerminationReason != types.TerminationExhausted {
		t.Errorf("TerminationReason = %q", got.TerminationReason)
	}
	if !got.SynthesisAchieved {
		t.Error("SynthesisAchieved = false")
	}
	if got.State.Knowledge != want.State.Knowledge {
		t.Errorf("Knowledge = %q", got.State.Knowledge)
	}
	if got.State.CurrentPhase != types.PhaseConsolidation {
		t.Errorf("CurrentPhase = %q", got.State.CurrentPhase)
	}
	if got.State.ConsecutiveLowGainCount != 1 {
		t.Errorf("ConsecutiveLowGainCount = %d", got.State.ConsecutiveLowGainCount)
	}
	if got.State.IterationRound != 3 {
		t.Errorf("IterationRound = %d", got.State.IterationRound)
	}

	if len(got.History.Outcomes) != len(want.History.Outcomes) {
		t.Fatalf("got %d outcomes, want %d", len(got.History.Outcomes), len(want.History.Outcomes))
	}
	for i, o := range got.History.Outcomes {
		if o != want.History.Outcomes[i] {
			t.Errorf("outcome %d = %+v, want %+v", i, o, want.History.Outcomes[i])
		}
	}
	if got.History.AvgInformationGain != want.History.AvgInformationGain {
		t.Errorf("AvgInformationGain = %v, want %v", got.History.AvgInformationGain, want.History.AvgInformationGain)
	}
	if got.History.AvgProcessingTime != want.History.AvgProcessingTime {
		t.Errorf("AvgProcessingTime = %v, want %v", got.History.AvgProcessingTime, want.History.AvgProcessingTime)
	}

	if len(got.History.Transitions) != 1 || got.History.Transitions[0] != want.History.Transitions[0] {
		t.Errorf("Transitions = %+v", got.History.Transitions)
	}
	if got.History.PhaseTransitionCount != 1 {
		t.Errorf("PhaseTransitionCount = %d", got.History.PhaseTransitionCount)
	}

	if len(got.Skipped) != 1 {
		t.Fatalf("got %d skipped items, want 1", len(got.Skipped))
	}
	sk := got.Skipped[0]
	if sk.ItemID != "item-09" || sk.Round != 2 {
		t.Errorf("skipped = %+v", sk)
	}
	if len(sk.Reasons) != 1 || !strings.Contains(sk.Reasons[0], "low-tier bound") {
		t.Errorf("skip reasons = %v", sk.Reasons)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := testSetup(t)

	_, _, err := store.GetRun(context.Background(), "run-absent")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
	if !strings.Contains(err.Error(), "run-absent") {
		t.Errorf("error should name the run: %v", err)
	}
}

func TestSaveRunEmptyID(t *testing.T) {
	store := testSetup(t)

	err := store.SaveRun(context.Background(), RunMeta{}, sampleResult())
	if err == nil {
		t.Fatal("expected error for empty run ID")
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()
	meta := sampleMeta("run-001", time.Now().UTC())

	if err := store.SaveRun(ctx, meta, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, meta, sampleResult()); err == nil {
		t.Fatal("expected error for duplicate run ID")
	}
}

func TestSaveRunWithoutSkipsOrTransitions(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	result := &types.RunResult{
		State:             types.SynthesisState{CurrentPhase: types.PhaseExploration},
		Rounds:            1,
		TerminationReason: types.TerminationDynamicStop,
	}
	result.History.Append(types.BatchOutcome{BatchID: "batch-001", Round: 1, Phase: types.PhaseExploration})

	if err := store.SaveRun(ctx, sampleMeta("run-002", time.Now().UTC()), result); err != nil {
		t.Fatal(err)
	}

	_, got, err := store.GetRun(ctx, "run-002")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Skipped) != 0 || len(got.History.Transitions) != 0 {
		t.Errorf("Skipped = %v, Transitions = %v", got.Skipped, got.History.Transitions)
	}
	if got.SynthesisAchieved {
		t.Error("SynthesisAchieved = true for a run with no successful round")
	}
}

// --- ListRuns ---

func TestListRunsNewestFirst(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	older := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)
	newer := older.Add(26 * time.Hour)
	if err := store.SaveRun(ctx, sampleMeta("run-old", older), sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, sampleMeta("run-new", newer), sampleResult()); err != nil {
		t.Fatal(err)
	}

	summaries, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != "run-new" || summaries[1].ID != "run-old" {
		t.Errorf("order = %q, %q", summaries[0].ID, summaries[1].ID)
	}

	first := summaries[0]
	if first.Rounds != 3 || first.TerminationReason != types.TerminationExhausted {
		t.Errorf("summary = %+v", first)
	}
	if first.FinalPhase != types.PhaseConsolidation {
		t.Errorf("FinalPhase = %q", first.FinalPhase)
	}
	if !first.StartedAt.Equal(newer) {
		t.Errorf("StartedAt = %v, want %v", first.StartedAt, newer)
	}
}

func TestListRunsEmptyArchive(t *testing.T) {
	store := testSetup(t)

	summaries, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d summaries from empty archive", len(summaries))
	}
}

// --- replay from archive ---

// An archived history must reproduce the original termination decision when
// replayed against the same configuration.
func TestReplayFromArchive(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	want := sampleResult()
	if err := store.SaveRun(ctx, sampleMeta("run-001", time.Now().UTC()), want); err != nil {
		t.Fatal(err)
	}

	_, got, err := store.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatal(err)
	}

	cfg := types.DefaultEngineConfig()
	reason := convergence.Replay(&got.History, cfg.Phases, cfg.Stop)
	if reason != want.TerminationReason {
		t.Errorf("replayed termination = %q, want %q", reason, want.TerminationReason)
	}
}

// --- export ---

func TestExportYAML(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleMeta("run-001", time.Now().UTC()), sampleResult()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "export.yaml")
	if err := store.ExportYAML(ctx, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var runs []ExportRun
	if err := yaml.Unmarshal(data, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d exported runs, want 1", len(runs))
	}
	if runs[0].ID != "run-001" || runs[0].Result.Rounds != 3 {
		t.Errorf("exported run = %+v", runs[0])
	}
	if len(runs[0].Result.History.Outcomes) != 3 {
		t.Errorf("exported %d outcomes", len(runs[0].Result.History.Outcomes))
	}
}

func TestExportJSON(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleMeta("run-001", time.Now().UTC()), sampleResult()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "export.json")
	if err := store.ExportJSON(ctx, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var runs []ExportRun
	if err := json.Unmarshal(data, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d exported runs, want 1", len(runs))
	}
	if runs[0].Question != "What stabilizes perovskite solar cells?" {
		t.Errorf("exported question = %q", runs[0].Question)
	}
}

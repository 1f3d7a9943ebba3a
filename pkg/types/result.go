// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TerminationReason explains why a run stopped. Per prd004-convergence R2.4:
// every run ends with exactly one reason; callers never see a silent empty
// result.
type TerminationReason string

const (
	// TerminationDynamicStop means consecutive low-gain rounds crossed the
	// configured limit.
	TerminationDynamicStop TerminationReason = "dynamic_stop"

	// TerminationExhausted means the remaining pool ran out of items.
	TerminationExhausted TerminationReason = "exhausted"

	// TerminationCompleted means the run hit the iteration ceiling.
	TerminationCompleted TerminationReason = "completed"
)

// SynthesisState is the accumulated knowledge and loop position of one run.
// Exactly one instance exists per run, owned and mutated only by the
// orchestrator. Per prd005-orchestration R1.1-R1.2.
type SynthesisState struct {
	// Knowledge is the opaque accumulated-knowledge handle returned by the
	// synthesis oracle. Empty until the first successful round.
	Knowledge string `json:"knowledge" yaml:"knowledge"`

	// IterationRound is the 1-based round the run is in.
	IterationRound int `json:"iteration_round" yaml:"iteration_round"`

	// ConsecutiveLowGainCount counts rounds in a row whose gain fell under
	// the active threshold. Reset by any round at or above it.
	ConsecutiveLowGainCount int `json:"consecutive_low_gain_count" yaml:"consecutive_low_gain_count"`

	// CurrentPhase is the controller's phase at this point in the run.
	CurrentPhase BatchPhase `json:"current_phase" yaml:"current_phase"`
}

// RunContext carries the caller's framing of the run into oracle calls.
// Per prd005-orchestration R2.2.
type RunContext struct {
	// Question is the research question driving the synthesis.
	Question string `json:"question" yaml:"question"`

	// Domain is the subject area (e.g. "battery materials").
	Domain string `json:"domain" yaml:"domain"`

	// Round is the current iteration round.
	Round int `json:"round" yaml:"round"`
}

// ProgressUpdate is delivered to the progress sink at each round boundary.
// Per prd005-orchestration R7.1: the sink is the engine's only outward-facing
// interface besides the run result.
type ProgressUpdate struct {
	// Step names the loop position (e.g. "round 3/50 consolidation").
	Step string `json:"step" yaml:"step"`

	// PercentComplete estimates run progress from corpus consumption, in [0,100].
	PercentComplete float64 `json:"percent_complete" yaml:"percent_complete"`

	// Metrics carries the current rolling aggregates for external monitoring.
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// RunResult is everything a finished run reports back to the caller.
// Per prd005-orchestration R4.1-R4.3.
type RunResult struct {
	// State is the final synthesis state.
	State SynthesisState `json:"state" yaml:"state"`

	// Rounds is the number of rounds executed, successful or not.
	Rounds int `json:"rounds" yaml:"rounds"`

	// History is the full append-only outcome log with aggregates.
	History RunHistory `json:"history" yaml:"history"`

	// Skipped lists every item the deviation policy rejected, with reasons.
	Skipped []SkippedItem `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// TerminationReason is why the run stopped.
	TerminationReason TerminationReason `json:"termination_reason" yaml:"termination_reason"`

	// SynthesisAchieved is false when no round succeeded: the run produced
	// no knowledge and State.Knowledge is empty. Per R4.3 this is reported
	// explicitly rather than left as an unset value.
	SynthesisAchieved bool `json:"synthesis_achieved" yaml:"synthesis_achieved"`
}

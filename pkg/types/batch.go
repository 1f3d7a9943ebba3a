// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// BatchPhase names a stage of the progressive synthesis run. Phases are
// totally ordered and normally advance forward only; regression happens
// solely under the triggers in prd003-batching R3.3.
type BatchPhase string

const (
	PhaseExploration   BatchPhase = "exploration"
	PhaseConsolidation BatchPhase = "consolidation"
	PhaseRefinement    BatchPhase = "refinement"
	PhaseOptimization  BatchPhase = "optimization"
)

// PhaseConfig bounds batch size and sets the quality and gain bars for one
// phase. Per prd003-batching R2.1.
type PhaseConfig struct {
	// MinSize is the smallest batch the phase may request.
	MinSize int `json:"min_size" yaml:"min_size"`

	// MaxSize is the largest batch the phase may request.
	MaxSize int `json:"max_size" yaml:"max_size"`

	// QualityThreshold is the average quality score (0-10 scale) required
	// before the controller advances out of this phase.
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold"`

	// InfoGainThreshold is the average information gain required before the
	// controller advances, and the bar under which a round counts as low-gain.
	InfoGainThreshold float64 `json:"info_gain_threshold" yaml:"info_gain_threshold"`
}

// BatchRequest is one round's selection. Created fresh by the controller and
// consumed immediately by the orchestrator. Per prd003-batching R2.3.
type BatchRequest struct {
	// Phase is the phase the controller was in when it selected the batch.
	Phase BatchPhase `json:"phase" yaml:"phase"`

	// Items is the ordered selection drawn from the remaining pool.
	Items []LiteratureItem `json:"items" yaml:"items"`

	// AdaptiveSize is the size the controller aimed for this round.
	AdaptiveSize int `json:"adaptive_size" yaml:"adaptive_size"`

	// Reasoning explains the sizing and selection for operators.
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// BatchOutcome records how one round went. Outcomes are append-only; nothing
// mutates a recorded outcome. Per prd004-convergence R1.1.
type BatchOutcome struct {
	// BatchID identifies the round's batch (e.g. "batch-003").
	BatchID string `json:"batch_id" yaml:"batch_id"`

	// Round is the 1-based iteration round that produced this outcome.
	Round int `json:"round" yaml:"round"`

	// Phase is the phase the batch was selected under.
	Phase BatchPhase `json:"phase" yaml:"phase"`

	// ItemCount is the number of items sent to the oracle after filtering.
	ItemCount int `json:"item_count" yaml:"item_count"`

	// SelectedCount is the number of items drawn from the pool this round,
	// before deviation filtering. Selected items leave the pool whether or
	// not the round succeeded.
	SelectedCount int `json:"selected_count" yaml:"selected_count"`

	// PoolRemaining is the number of items left in the pool after the round.
	PoolRemaining int `json:"pool_remaining" yaml:"pool_remaining"`

	// InformationGain is the oracle's estimate in [0,1] of new knowledge
	// contributed by the batch.
	InformationGain float64 `json:"information_gain" yaml:"information_gain"`

	// QualityScore is the oracle's quality judgment on a 0-10 scale.
	QualityScore float64 `json:"quality_score" yaml:"quality_score"`

	// ProcessingTime is the wall-clock duration of the round's oracle call.
	ProcessingTime time.Duration `json:"processing_time" yaml:"processing_time"`

	// Success reports whether the oracle call produced a usable synthesis.
	Success bool `json:"success" yaml:"success"`
}

// PhaseTransition records one controller move between phases.
// Per prd003-batching R3.4.
type PhaseTransition struct {
	// From is the phase the controller left.
	From BatchPhase `json:"from" yaml:"from"`

	// To is the phase the controller entered.
	To BatchPhase `json:"to" yaml:"to"`

	// Round is the round at whose start the transition fired.
	Round int `json:"round" yaml:"round"`

	// Reason explains which trigger fired.
	Reason string `json:"reason" yaml:"reason"`
}

// RunHistory is the append-only log of a run's outcomes plus rolling
// aggregates maintained by the orchestrator. Per prd004-convergence R1.2.
type RunHistory struct {
	// Outcomes lists every recorded round in order.
	Outcomes []BatchOutcome `json:"outcomes" yaml:"outcomes"`

	// Transitions lists every phase transition in order.
	Transitions []PhaseTransition `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	// AvgProcessingTime is the mean oracle duration across recorded rounds.
	AvgProcessingTime time.Duration `json:"avg_processing_time" yaml:"avg_processing_time"`

	// AvgInformationGain is the mean gain across recorded rounds.
	AvgInformationGain float64 `json:"avg_information_gain" yaml:"avg_information_gain"`

	// AvgQualityScore is the mean quality across recorded rounds.
	AvgQualityScore float64 `json:"avg_quality_score" yaml:"avg_quality_score"`

	// PhaseTransitionCount is the number of recorded transitions.
	PhaseTransitionCount int `json:"phase_transition_count" yaml:"phase_transition_count"`
}

// Append records an outcome and refreshes the rolling aggregates.
func (h *RunHistory) Append(o BatchOutcome) {
	h.Outcomes = append(h.Outcomes, o)

	var totalTime time.Duration
	var totalGain, totalQuality float64
	for _, out := range h.Outcomes {
		totalTime += out.ProcessingTime
		totalGain += out.InformationGain
		totalQuality += out.QualityScore
	}
	n := len(h.Outcomes)
	h.AvgProcessingTime = totalTime / time.Duration(n)
	h.AvgInformationGain = totalGain / float64(n)
	h.AvgQualityScore = totalQuality / float64(n)
}

// RecordTransition appends a phase transition and bumps the counter.
func (h *RunHistory) RecordTransition(t PhaseTransition) {
	h.Transitions = append(h.Transitions, t)
	h.PhaseTransitionCount = len(h.Transitions)
}

// Total returns the number of recorded rounds.
func (h *RunHistory) Total() int {
	return len(h.Outcomes)
}

// SuccessCount returns the number of successful rounds.
func (h *RunHistory) SuccessCount() int {
	n := 0
	for _, o := range h.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// HasFailures reports whether any round failed.
func (h *RunHistory) HasFailures() bool {
	return h.Total() > h.SuccessCount()
}

// Last returns the most recent n outcomes in chronological order, or all
// outcomes when fewer than n are recorded.
func (h *RunHistory) Last(n int) []BatchOutcome {
	if n <= 0 || len(h.Outcomes) == 0 {
		return nil
	}
	if n > len(h.Outcomes) {
		n = len(h.Outcomes)
	}
	return h.Outcomes[len(h.Outcomes)-n:]
}

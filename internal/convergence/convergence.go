// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convergence tracks information-gain trends across rounds and
// decides when a synthesis run should stop.
// Implements: prd004-convergence (R1-R3);
//
//	docs/ARCHITECTURE § Convergence.
package convergence

import (
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Monitor watches the stream of batch outcomes for one run and answers the
// stop question at each round boundary. It is driven by a single
// orchestrator goroutine and holds no locks.
type Monitor struct {
	stop      types.StopConditions
	lowStreak int
}

// NewMonitor returns a Monitor with zero-valued stop conditions replaced by
// the house defaults (3 consecutive low-gain rounds, 50 iterations, minimum
// gain 0.1).
func NewMonitor(stop types.StopConditions) *Monitor {
	if stop.ConsecutiveLowGainRounds <= 0 {
		stop.ConsecutiveLowGainRounds = 3
	}
	if stop.MaxIterations <= 0 {
		stop.MaxIterations = 50
	}
	if stop.MinInformationGain <= 0 {
		stop.MinInformationGain = 0.1
	}
	return &Monitor{stop: stop}
}

// Observe folds one round's outcome into the low-gain streak (R1.1): a gain
// under the active threshold extends the streak, any other round resets it.
// Failed rounds count too; a round that produced nothing gained nothing.
// phaseGainThreshold is the current phase's bar; when unset the monitor
// falls back to StopConditions.MinInformationGain.
func (m *Monitor) Observe(outcome types.BatchOutcome, phaseGainThreshold float64) {
	threshold := phaseGainThreshold
	if threshold <= 0 {
		threshold = m.stop.MinInformationGain
	}
	if outcome.InformationGain < threshold {
		m.lowStreak++
	} else {
		m.lowStreak = 0
	}
}

// LowGainStreak returns the current count of consecutive low-gain rounds.
func (m *Monitor) LowGainStreak() int {
	return m.lowStreak
}

// ShouldStop decides at a round boundary whether the run ends, and why
// (R2.1-R2.4). round is the 1-based round about to execute; poolRemaining
// is the size of the remaining item pool. Reasons are checked in a fixed
// order so replays are deterministic: dynamic stop first, then exhaustion,
// then the iteration ceiling.
func (m *Monitor) ShouldStop(round, poolRemaining int) (bool, types.TerminationReason) {
	if m.lowStreak >= m.stop.ConsecutiveLowGainRounds {
		return true, types.TerminationDynamicStop
	}
	if poolRemaining <= 0 {
		return true, types.TerminationExhausted
	}
	if round > m.stop.MaxIterations {
		return true, types.TerminationCompleted
	}
	return false, ""
}

// Replay feeds a recorded history through a fresh Monitor and returns the
// termination reason it reaches (R3.1). Given the same outcomes, phase
// configs, and stop conditions as the original run, the replayed reason
// matches the recorded one; this is the determinism check the archive
// relies on.
func Replay(hist *types.RunHistory, phases types.PhasesConfig, stop types.StopConditions) types.TerminationReason {
	m := NewMonitor(stop)
	for _, outcome := range hist.Outcomes {
		m.Observe(outcome, phases.For(outcome.Phase).InfoGainThreshold)
		if stopNow, reason := m.ShouldStop(outcome.Round+1, outcome.PoolRemaining); stopNow {
			return reason
		}
	}
	// A history that trips no condition belongs to a run that never got a
	// reason (cancelled mid-run, or replayed under different conditions);
	// report it as exhausted rather than inventing a fourth reason.
	return types.TerminationExhausted
}

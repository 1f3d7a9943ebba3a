// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// ScriptedOracle plays back a fixed script of synthesis responses and
// deviation reports. It backs dry runs and offline development, where a
// live oracle service is unavailable or too slow; runs driven by the same
// script are fully reproducible. Implements both SynthesisOracle and
// DeviationOracle. Per prd005-orchestration R6.1.
type ScriptedOracle struct {
	// Responses is the synthesis script, consumed in order. Once exhausted,
	// the last response repeats for the rest of the run.
	Responses []OracleResponse `yaml:"responses"`

	// Deviations maps item IDs to scripted deviation reports.
	Deviations map[string]types.DeviationReport `yaml:"deviations,omitempty"`

	// DefaultDeviation is returned for items absent from Deviations.
	DefaultDeviation types.DeviationReport `yaml:"default_deviation,omitempty"`

	calls int
}

// LoadScript reads a scripted oracle from a YAML file.
func LoadScript(path string) (*ScriptedOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading oracle script: %w", err)
	}
	var oracle ScriptedOracle
	if err := yaml.Unmarshal(data, &oracle); err != nil {
		return nil, fmt.Errorf("parsing oracle script %s: %w", path, err)
	}
	if len(oracle.Responses) == 0 {
		return nil, fmt.Errorf("oracle script %s contains no responses", path)
	}
	return &oracle, nil
}

// Synthesize returns the next scripted response. The accumulated-knowledge
// handle grows by appending each scripted fragment, so successive rounds
// see a distinct state just as they would against a live service.
func (o *ScriptedOracle) Synthesize(_ context.Context, _ []types.LiteratureItem, state types.SynthesisState, _ types.RunContext) (OracleResponse, error) {
	if len(o.Responses) == 0 {
		return OracleResponse{}, fmt.Errorf("oracle script is empty")
	}

	idx := o.calls
	if idx >= len(o.Responses) {
		idx = len(o.Responses) - 1
	}
	o.calls++

	resp := o.Responses[idx]
	if resp.Success && state.Knowledge != "" {
		resp.Knowledge = state.Knowledge + "\n" + resp.Knowledge
	}
	return resp, nil
}

// EvaluateDeviation returns the scripted report for the item, or the
// default report when the script names none.
func (o *ScriptedOracle) EvaluateDeviation(_ context.Context, item types.LiteratureItem, _ types.SynthesisState) (types.DeviationReport, error) {
	if report, ok := o.Deviations[item.ID]; ok {
		return report, nil
	}
	return o.DefaultDeviation, nil
}

// Calls returns how many synthesis calls the script has served.
func (o *ScriptedOracle) Calls() int {
	return o.calls
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	// Field is the config field path (e.g. "phases.exploration.min_size").
	Field string

	// Value is the invalid value as supplied.
	Value any

	// Message is a human-readable description of the failure.
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every validation failure found in a config.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// DefaultEngineConfig returns the engine configuration with house defaults:
// the four phase bounds from prd003-batching R2.2, stop conditions from
// prd004-convergence R2.1, and deviation thresholds from prd002-deviation R2.1.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Phases: PhasesConfig{
			Exploration:   PhaseConfig{MinSize: 1, MaxSize: 5, QualityThreshold: 6.0, InfoGainThreshold: 0.15},
			Consolidation: PhaseConfig{MinSize: 3, MaxSize: 10, QualityThreshold: 7.0, InfoGainThreshold: 0.12},
			Refinement:    PhaseConfig{MinSize: 5, MaxSize: 15, QualityThreshold: 7.5, InfoGainThreshold: 0.10},
			Optimization:  PhaseConfig{MinSize: 8, MaxSize: 20, QualityThreshold: 8.0, InfoGainThreshold: 0.08},
		},
		Stop: StopConditions{
			MinInformationGain:       0.1,
			ConsecutiveLowGainRounds: 3,
			MaxIterations:            50,
			MinQualityThreshold:      6.0,
		},
		Deviation: DeviationConfig{
			MinReliability:      0.6,
			HighTierThreshold:   0.8,
			MediumTierThreshold: 0.6,
			LowTierThreshold:    0.4,
		},
		Oracle: OracleConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   120 * time.Second,
				UserAgent: "synthesis-engine/0.1",
			},
			MaxRetries: 3,
		},
	}
}

// Validate checks the engine configuration and returns every failure found,
// or nil when the config is usable. Per prd005-orchestration R5.2 an invalid
// config is fatal at construction; no round may run against one.
func (c EngineConfig) Validate() error {
	var errs ValidationErrors

	phases := []struct {
		name string
		cfg  PhaseConfig
	}{
		{"exploration", c.Phases.Exploration},
		{"consolidation", c.Phases.Consolidation},
		{"refinement", c.Phases.Refinement},
		{"optimization", c.Phases.Optimization},
	}
	for _, p := range phases {
		prefix := "phases." + p.name
		if p.cfg.MinSize < 1 {
			errs = append(errs, ValidationError{prefix + ".min_size", p.cfg.MinSize, "must be at least 1"})
		}
		if p.cfg.MaxSize < p.cfg.MinSize {
			errs = append(errs, ValidationError{prefix + ".max_size", p.cfg.MaxSize, fmt.Sprintf("must be at least min_size (%d)", p.cfg.MinSize)})
		}
		if p.cfg.QualityThreshold < 0 || p.cfg.QualityThreshold > 10 {
			errs = append(errs, ValidationError{prefix + ".quality_threshold", p.cfg.QualityThreshold, "must be in [0,10]"})
		}
		if p.cfg.InfoGainThreshold < 0 || p.cfg.InfoGainThreshold > 1 {
			errs = append(errs, ValidationError{prefix + ".info_gain_threshold", p.cfg.InfoGainThreshold, "must be in [0,1]"})
		}
	}

	if c.Stop.ConsecutiveLowGainRounds < 1 {
		errs = append(errs, ValidationError{"stop.consecutive_low_gain_rounds", c.Stop.ConsecutiveLowGainRounds, "must be at least 1"})
	}
	if c.Stop.MaxIterations < 1 {
		errs = append(errs, ValidationError{"stop.max_iterations", c.Stop.MaxIterations, "must be at least 1"})
	}
	if c.Stop.MinInformationGain < 0 || c.Stop.MinInformationGain > 1 {
		errs = append(errs, ValidationError{"stop.min_information_gain", c.Stop.MinInformationGain, "must be in [0,1]"})
	}
	if c.Stop.MinQualityThreshold < 0 || c.Stop.MinQualityThreshold > 10 {
		errs = append(errs, ValidationError{"stop.min_quality_threshold", c.Stop.MinQualityThreshold, "must be in [0,10]"})
	}

	if c.Deviation.MinReliability < 0 || c.Deviation.MinReliability > 1 {
		errs = append(errs, ValidationError{"deviation.min_reliability", c.Deviation.MinReliability, "must be in [0,1]"})
	}
	tiers := []struct {
		name string
		v    float64
	}{
		{"deviation.high_tier_threshold", c.Deviation.HighTierThreshold},
		{"deviation.medium_tier_threshold", c.Deviation.MediumTierThreshold},
		{"deviation.low_tier_threshold", c.Deviation.LowTierThreshold},
	}
	for _, t := range tiers {
		if t.v < 0 || t.v > 1 {
			errs = append(errs, ValidationError{t.name, t.v, "must be in [0,1]"})
		}
	}

	if c.Oracle.MaxRetries < 0 {
		errs = append(errs, ValidationError{"oracle.max_retries", c.Oracle.MaxRetries, "must not be negative"})
	}
	if c.Oracle.Timeout < 0 {
		errs = append(errs, ValidationError{"oracle.timeout", c.Oracle.Timeout, "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

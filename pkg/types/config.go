package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 120s for oracle calls).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "synthesis-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PhasesConfig holds the per-phase batch configuration.
// Per prd003-batching R2.1-R2.2.
type PhasesConfig struct {
	// Exploration bounds the opening phase (default 1-5 items, quality 6.0,
	// gain 0.15).
	Exploration PhaseConfig `json:"exploration" yaml:"exploration"`

	// Consolidation bounds the second phase (default 3-10, 7.0, 0.12).
	Consolidation PhaseConfig `json:"consolidation" yaml:"consolidation"`

	// Refinement bounds the third phase (default 5-15, 7.5, 0.10).
	Refinement PhaseConfig `json:"refinement" yaml:"refinement"`

	// Optimization bounds the final phase (default 8-20, 8.0, 0.08).
	Optimization PhaseConfig `json:"optimization" yaml:"optimization"`
}

// For returns the configuration bound to phase. Unknown phases return the
// zero config, which Validate rejects.
func (p PhasesConfig) For(phase BatchPhase) PhaseConfig {
	switch phase {
	case PhaseExploration:
		return p.Exploration
	case PhaseConsolidation:
		return p.Consolidation
	case PhaseRefinement:
		return p.Refinement
	case PhaseOptimization:
		return p.Optimization
	}
	return PhaseConfig{}
}

// StopConditions holds the run termination settings.
// Per prd004-convergence R2.1-R2.3.
type StopConditions struct {
	// MinInformationGain is the low-gain bar applied when a phase leaves its
	// own InfoGainThreshold unset (default 0.1).
	MinInformationGain float64 `json:"min_information_gain" yaml:"min_information_gain"`

	// ConsecutiveLowGainRounds is how many low-gain rounds in a row trigger
	// a dynamic stop (default 3).
	ConsecutiveLowGainRounds int `json:"consecutive_low_gain_rounds" yaml:"consecutive_low_gain_rounds"`

	// MaxIterations is the hard ceiling on rounds per run (default 50).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// MinQualityThreshold is the floor a quality score must clear to count
	// toward synthesis quality goals (default 6.0).
	MinQualityThreshold float64 `json:"min_quality_threshold" yaml:"min_quality_threshold"`
}

// DeviationConfig holds the skip-policy thresholds.
// Per prd002-deviation R2.1-R2.2.
type DeviationConfig struct {
	// MinReliability is the reliability score under which tier thresholds
	// apply (default 0.6).
	MinReliability float64 `json:"min_reliability" yaml:"min_reliability"`

	// HighTierThreshold is the overall deviation a high-tier item may reach
	// before the tier rule skips it (default 0.8).
	HighTierThreshold float64 `json:"high_tier_threshold" yaml:"high_tier_threshold"`

	// MediumTierThreshold is the medium-tier bound (default 0.6).
	MediumTierThreshold float64 `json:"medium_tier_threshold" yaml:"medium_tier_threshold"`

	// LowTierThreshold is the low-tier bound (default 0.4).
	LowTierThreshold float64 `json:"low_tier_threshold" yaml:"low_tier_threshold"`
}

// OracleConfig holds settings for calls to the synthesis and deviation
// oracles. Per prd005-orchestration R2.1, R3.2.
type OracleConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the oracle service URL for the HTTP adapter. Empty when a
	// scripted oracle is supplied instead.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// MaxRetries is the number of retry attempts for failed oracle calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EngineConfig groups the construction parameters for one synthesis run.
// Per prd005-orchestration R5.1: everything here arrives at construction,
// nothing is read from process-wide state.
type EngineConfig struct {
	Phases    PhasesConfig    `json:"phases" yaml:"phases"`
	Stop      StopConditions  `json:"stop" yaml:"stop"`
	Deviation DeviationConfig `json:"deviation" yaml:"deviation"`
	Oracle    OracleConfig    `json:"oracle" yaml:"oracle"`
}

// ArchiveConfig holds settings for the run archive.
// Per prd007-archive R1.1.
type ArchiveConfig struct {
	// Path is the SQLite database file for archived runs
	// (default "output/synthesis/runs.db").
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig holds settings for the engine log.
type LoggingConfig struct {
	// Path is the rotating log file (default "output/logs/synthesis-engine.log").
	Path string `json:"path" yaml:"path"`

	// Debug lowers the log level to debug.
	Debug bool `json:"debug" yaml:"debug"`
}

// ReportConfig holds settings for run report rendering.
// Per prd008-reporting R2.1.
type ReportConfig struct {
	// OutputDir is the directory for rendered run reports
	// (default "output/reports").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// SynthesisConfig groups all tool configuration for the CLI.
type SynthesisConfig struct {
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Report  ReportConfig  `json:"report" yaml:"report"`
}

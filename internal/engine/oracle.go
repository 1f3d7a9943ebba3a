// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// SynthesisOracle abstracts the external service that folds a batch of
// literature into the accumulated knowledge. Implementations handle one
// batch per call and return the updated knowledge plus the round's metrics.
// Per Strategy pattern (prd005-orchestration R2.1); mocks live in the tests,
// ScriptedOracle and HTTPOracle are the shipped implementations.
type SynthesisOracle interface {
	Synthesize(ctx context.Context, batch []types.LiteratureItem, state types.SynthesisState, rc types.RunContext) (OracleResponse, error)
}

// DeviationOracle abstracts the service that measures how far a candidate
// item diverges from the accumulated knowledge. May be the same backing
// service as the SynthesisOracle. Per prd005-orchestration R3.1.
type DeviationOracle interface {
	EvaluateDeviation(ctx context.Context, item types.LiteratureItem, state types.SynthesisState) (types.DeviationReport, error)
}

// CorpusSource supplies the initial unordered pool of literature items with
// metadata populated. The engine never fetches or parses documents itself.
type CorpusSource interface {
	Load(ctx context.Context) ([]types.LiteratureItem, error)
}

// OracleResponse is the structured result of one synthesis call.
type OracleResponse struct {
	// Knowledge is the updated accumulated-knowledge handle.
	Knowledge string `json:"knowledge" yaml:"knowledge"`

	// InformationGain estimates new knowledge contributed, in [0,1].
	InformationGain float64 `json:"information_gain" yaml:"information_gain"`

	// QualityScore judges the synthesis on a 0-10 scale.
	QualityScore float64 `json:"quality_score" yaml:"quality_score"`

	// Success reports whether the oracle produced a usable synthesis.
	Success bool `json:"success" yaml:"success"`
}

// backoffBase controls the base duration for exponential backoff between
// oracle attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

const (
	defaultOracleTimeout = 120 * time.Second
	defaultMaxRetries    = 3
)

// callWithRetry invokes the synthesis oracle with a per-attempt timeout and
// exponential backoff between attempts (prd005-orchestration R2.3). Timeouts
// and out-of-range responses are retried; a cancelled parent context aborts
// immediately with ctx.Err() so the orchestrator can distinguish caller
// cancellation from call failure. After the final attempt the last error is
// returned wrapped in an OracleError.
func callWithRetry(ctx context.Context, oracle SynthesisOracle, batch []types.LiteratureItem, state types.SynthesisState, rc types.RunContext, cfg types.OracleConfig) (OracleResponse, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return OracleResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := oracle.Synthesize(callCtx, batch, state, rc)
		cancel()

		if ctx.Err() != nil {
			return OracleResponse{}, ctx.Err()
		}

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %v: %v", ErrOracleTimeout, timeout, err)
			}
			lastErr = err
			continue
		}

		if err := validateResponse(resp); err != nil {
			lastErr = err
			continue
		}

		return resp, nil
	}

	return OracleResponse{}, &OracleError{Op: "synthesize", Round: rc.Round, Attempts: maxRetries + 1, Err: lastErr}
}

// validateResponse rejects oracle responses whose metrics fall outside
// their documented ranges. A response like this is retried like any other
// failure; one bad completion should not sink the round outright.
func validateResponse(resp OracleResponse) error {
	if resp.InformationGain < 0 || resp.InformationGain > 1 {
		return fmt.Errorf("%w: information gain %v outside [0,1]", ErrOracleMalformed, resp.InformationGain)
	}
	if resp.QualityScore < 0 || resp.QualityScore > 10 {
		return fmt.Errorf("%w: quality score %v outside [0,10]", ErrOracleMalformed, resp.QualityScore)
	}
	return nil
}

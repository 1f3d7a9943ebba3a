// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"errors"
	"fmt"
)

// Failure taxonomy per prd005-orchestration R4. Per-round failures (oracle
// timeout, malformed response, empty batch after filtering) are recovered
// inside Run as failed outcomes; only construction and corpus-loading
// problems abort a run.
var (
	// ErrOracleTimeout marks a synthesis call that exceeded its deadline.
	ErrOracleTimeout = errors.New("oracle call timed out")

	// ErrOracleMalformed marks an oracle response whose metrics fall
	// outside their documented ranges.
	ErrOracleMalformed = errors.New("malformed oracle response")

	// ErrEmptyBatch marks a round whose selection was entirely filtered
	// away by the deviation policy.
	ErrEmptyBatch = errors.New("batch empty after deviation filtering")

	// ErrCorpusExhausted marks a corpus that loaded with no items.
	ErrCorpusExhausted = errors.New("corpus contains no items")

	// ErrInvalidConfig marks a configuration rejected at construction.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)

// OracleError wraps a failed oracle call with its position in the run, so a
// log line or a wrapped error names the round and the attempt count rather
// than just the underlying cause.
type OracleError struct {
	// Op is the oracle operation that failed ("synthesize" or "deviation").
	Op string

	// Round is the iteration round the call belonged to.
	Round int

	// Attempts is how many calls were made before giving up.
	Attempts int

	// Err is the last underlying error.
	Err error
}

// Error implements the error interface.
func (e *OracleError) Error() string {
	return fmt.Sprintf("%s failed in round %d after %d attempts: %v", e.Op, e.Round, e.Attempts, e.Err)
}

// Unwrap exposes the underlying error for errors.Is and errors.As.
func (e *OracleError) Unwrap() error {
	return e.Err
}
